package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/value"
)

// Factory allocates a fresh runtime node.
type Factory func() domain.Node

// LiteralFactory builds a constant node holding v.
type LiteralFactory func(v value.Value) domain.Node

// FallbackFactory builds a reflection node calling the member at memberIndex with argc arguments.
type FallbackFactory func(m domain.ReflectedMember, memberIndex, argc int) domain.Node

// Entry maps an authoring model type (and optional specialization) to a runtime node.
type Entry struct {
	Model          string
	Specialization string
	Factory        Factory
	Excluded       map[string]bool
	Renamed        map[string]string
}

// EntryOption configures an Entry at registration.
type EntryOption func(*Entry)

// Specialize registers the entry for one value of the model's discriminator.
func Specialize(discriminator string) EntryOption {
	return func(e *Entry) {
		e.Specialization = discriminator
	}
}

// ExcludePorts lists authoring ports the compiler ignores.
func ExcludePorts(names ...string) EntryOption {
	return func(e *Entry) {
		for _, n := range names {
			e.Excluded[n] = true
		}
	}
}

// RenamePort maps an authoring port name to a runtime field name.
func RenamePort(authoringName, field string) EntryOption {
	return func(e *Entry) {
		e.Renamed[authoringName] = field
	}
}

type key struct {
	model, specialization string
}

// Registry manages the node types and host members known to the compiler.
type Registry struct {
	mu       sync.RWMutex
	entries  map[key]*Entry
	members  map[string]member
	literal  LiteralFactory
	fallback FallbackFactory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[key]*Entry),
		members: make(map[string]member),
	}
}

// Register adds a runtime node for model.
// If an entry with the same model and specialization exists, it is overwritten.
// The runtime type is also recorded for definition persistence.
func (r *Registry) Register(model string, f Factory, opts ...EntryOption) {
	e := &Entry{
		Model:    model,
		Factory:  f,
		Excluded: make(map[string]bool),
		Renamed:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	name := model
	if e.Specialization != "" {
		name = model + "." + e.Specialization
	}
	domain.RegisterNodeType(name, f())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key{model, e.Specialization}] = e
}

// Lookup finds the entry for model and specialization, falling back to the
// unspecialized entry of the model.
func (r *Registry) Lookup(model, specialization string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[key{model, specialization}]; ok {
		return e, true
	}
	e, ok := r.entries[key{model, ""}]
	return e, ok
}

// Models lists registered model names, with specializations as "Model.Variant".
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for k := range r.entries {
		if k.specialization != "" {
			out = append(out, k.model+"."+k.specialization)
			continue
		}
		out = append(out, k.model)
	}
	sort.Strings(out)
	return out
}

// SetLiteralFactory installs the constant node builder used for port defaults and folding.
func (r *Registry) SetLiteralFactory(fn LiteralFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literal = fn
}

// Literal builds a constant node holding v.
func (r *Registry) Literal(v value.Value) (domain.Node, error) {
	r.mu.RLock()
	fn := r.literal
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("registry has no literal factory")
	}
	return fn(v), nil
}

// SetFallbackFactory installs the reflection node builder used for unmapped models.
func (r *Registry) SetFallbackFactory(fn FallbackFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = fn
}

// Fallback builds a reflection node for m, if a fallback factory is installed.
func (r *Registry) Fallback(m domain.ReflectedMember, memberIndex, argc int) (domain.Node, bool) {
	r.mu.RLock()
	fn := r.fallback
	r.mu.RUnlock()
	if fn == nil {
		return nil, false
	}
	return fn(m, memberIndex, argc), true
}

// SplitMember splits "Type.Name" into its declaring type and member name.
func SplitMember(s string) (declaring, name string) {
	if i := strings.LastIndex(s, "."); i > 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}
