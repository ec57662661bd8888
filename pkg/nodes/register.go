package nodes

import (
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/registry"
	"github.com/aretw0/weft/pkg/value"
)

func arithmetic(op value.Op) registry.Factory {
	return func() domain.Node { return &Arithmetic{Op: op} }
}

func constant(k value.Kind) registry.Factory {
	return func() domain.Node { return &Constant{Type: k} }
}

// Register adds the standard library to r and installs its literal and
// reflection fallback factories.
func Register(r *registry.Registry) {
	r.Register("Constant", func() domain.Node { return &Constant{} })
	r.Register("ConstantBool", constant(value.Bool))
	r.Register("ConstantInt", constant(value.Int))
	r.Register("ConstantFloat", constant(value.Float))

	r.Register("Arithmetic", func() domain.Node { return &Arithmetic{} })
	ops := []struct {
		name string
		op   value.Op
	}{
		{"Add", value.OpAdd},
		{"Subtract", value.OpSubtract},
		{"Multiply", value.OpMultiply},
		{"Divide", value.OpDivide},
		{"Modulo", value.OpModulo},
		{"Min", value.OpMin},
		{"Max", value.OpMax},
	}
	for _, o := range ops {
		r.Register("Arithmetic", arithmetic(o.op), registry.Specialize(o.name))
	}
	for _, o := range ops[:4] {
		r.Register(o.name, arithmetic(o.op))
	}

	r.Register("Compare", func() domain.Node { return &Compare{} })
	r.Register("Not", func() domain.Node { return &Not{} })
	r.Register("MakeList", func() domain.Node { return &MakeList{} })

	r.Register("Branch", func() domain.Node { return &Branch{} })
	r.Register("Sequence", func() domain.Node { return &Sequence{} })
	r.Register("Parallel", func() domain.Node { return &Parallel{} })
	r.Register("Log", func() domain.Node { return &Log{} })

	r.Register("ForLoop", func() domain.Node { return &ForLoop{} })
	r.Register("ForEach", func() domain.Node { return &ForEach{} })
	r.Register("Break", func() domain.Node { return &Break{} })

	r.Register("WaitForFlow", func() domain.Node { return &WaitForFlow{} })
	r.Register("Wait", func() domain.Node { return &Wait{} })
	r.Register("WaitFrames", func() domain.Node { return &WaitFrames{} })
	r.Register("WaitForEndOfFrame", func() domain.Node { return &WaitForEndOfFrame{} })

	r.Register("GetVariable", func() domain.Node { return &GetVariable{} })
	r.Register("SetVariable", func() domain.Node { return &SetVariable{} })

	r.Register("OnStart", func() domain.Node { return &OnStart{} })
	r.Register("OnUpdate", func() domain.Node { return &OnUpdate{} })
	r.Register("OnEvent", func() domain.Node { return &OnEvent{} })
	r.Register("SendEvent", func() domain.Node { return &SendEvent{} })

	r.Register("SubgraphInput", func() domain.Node { return &SubgraphInput{} })
	r.Register("SubgraphCall", func() domain.Node { return &SubgraphCall{} })

	domain.RegisterNodeType("MemberGet", &MemberGet{})
	domain.RegisterNodeType("MemberCall", &MemberCall{})

	r.SetLiteralFactory(func(v value.Value) domain.Node { return &Constant{Value: v} })
	r.SetFallbackFactory(NewMemberNode)
}

// NewRegistry returns a registry holding the standard library.
func NewRegistry() *registry.Registry {
	r := registry.NewRegistry()
	Register(r)
	return r
}
