package registry

import (
	"fmt"
	"reflect"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/value"
)

// HostFunction is a host member callable with boxed arguments.
type HostFunction func(args ...any) (any, error)

type member struct {
	kind domain.MemberKind
	fn   domain.MemberFunc
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// RegisterMember exposes a host member under "Type.Name" for reflection-fallback nodes.
func (r *Registry) RegisterMember(name string, kind domain.MemberKind, fn HostFunction) {
	r.addMember(name, kind, func(args []value.Value) (value.Value, error) {
		boxed := make([]any, len(args))
		for i, a := range args {
			boxed[i] = a.Box()
		}
		out, err := fn(boxed...)
		if err != nil {
			return value.Value{}, err
		}
		return value.FromObject(out), nil
	})
}

// RegisterFunc exposes an arbitrary Go function. Arguments are boxed to the
// parameter types; the function may return a value, an error, or both.
func (r *Registry) RegisterFunc(name string, kind domain.MemberKind, fn any) error {
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		return fmt.Errorf("member %s: %T is not a function", name, fn)
	}
	if ft.NumOut() > 2 || (ft.NumOut() == 2 && ft.Out(1) != errorType) {
		return fmt.Errorf("member %s: results must be (T), (error) or (T, error)", name)
	}
	r.addMember(name, kind, func(args []value.Value) (value.Value, error) {
		if !ft.IsVariadic() && len(args) != ft.NumIn() {
			return value.Value{}, fmt.Errorf("member %s: want %d arguments, got %d", name, ft.NumIn(), len(args))
		}
		in := make([]reflect.Value, len(args))
		for i, a := range args {
			pt := paramType(ft, i)
			boxed, err := a.BoxAs(pt)
			if err != nil {
				return value.Value{}, fmt.Errorf("member %s argument %d: %w", name, i, err)
			}
			in[i] = reflect.ValueOf(boxed)
			if !in[i].IsValid() {
				in[i] = reflect.Zero(pt)
			}
		}
		out := fv.Call(in)
		switch len(out) {
		case 0:
			return value.Value{}, nil
		case 1:
			if ft.Out(0) == errorType {
				err, _ := out[0].Interface().(error)
				return value.Value{}, err
			}
			return value.FromObject(out[0].Interface()), nil
		}
		if err, _ := out[1].Interface().(error); err != nil {
			return value.Value{}, err
		}
		return value.FromObject(out[0].Interface()), nil
	})
	return nil
}

func paramType(ft reflect.Type, i int) reflect.Type {
	if ft.IsVariadic() && i >= ft.NumIn()-1 {
		return ft.In(ft.NumIn() - 1).Elem()
	}
	return ft.In(i)
}

func (r *Registry) addMember(name string, kind domain.MemberKind, fn domain.MemberFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[name] = member{kind: kind, fn: fn}
}

// Member reports whether a host member is registered and its kind.
func (r *Registry) Member(name string) (domain.MemberKind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[name]
	return m.kind, ok
}

// ResolveMember implements domain.MemberResolver.
func (r *Registry) ResolveMember(m domain.ReflectedMember) (domain.MemberFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mem, ok := r.members[m.Key()]
	if !ok {
		return nil, false
	}
	return mem.fn, true
}
