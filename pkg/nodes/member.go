package nodes

import (
	"fmt"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/value"
)

// reflectedArgs maps every authoring port that is not a reserved name to the
// next argument slot, in the order the ports are declared.
type reflectedArgs struct {
	names []string
}

func (a *reflectedArgs) resolve(name string) (string, int, bool) {
	switch name {
	case "Enter", "Exit", "Result":
		return "", 0, false
	case "Return", "Value", "Out":
		return "Result", -1, true
	}
	for i, n := range a.names {
		if n == name {
			return "Args", i, true
		}
	}
	a.names = append(a.names, name)
	return "Args", len(a.names) - 1, true
}

func invoke(ctx domain.GraphContext, member int, args domain.InputDataMultiPort) value.Value {
	in := make([]value.Value, args.Count)
	for i := range in {
		in[i] = ctx.Read(args.SelectPort(i))
	}
	out, err := ctx.InvokeMember(member, in)
	if err != nil {
		panic(fmt.Errorf("member %d: %w", member, err))
	}
	return out
}

// MemberGet reads a reflected host field or pure property.
type MemberGet struct {
	Member domain.ReflectedMember
	Index  int
	Argc   int
	Args   domain.InputDataMultiPort
	Result domain.OutputDataPort
	args   reflectedArgs
}

func (n *MemberGet) MemberIndex() int { return n.Index }

func (n *MemberGet) PortWidth(field string) int {
	if field == "Args" {
		return n.Argc
	}
	return 0
}

func (n *MemberGet) ResolvePort(name string) (string, int, bool) { return n.args.resolve(name) }

func (n *MemberGet) Evaluate(ctx domain.GraphContext) {
	ctx.Write(n.Result, invoke(ctx, n.Index, n.Args))
}

// MemberCall invokes a reflected host method when triggered.
type MemberCall struct {
	Member domain.ReflectedMember
	Index  int
	Argc   int
	Enter  domain.InputTriggerPort
	Args   domain.InputDataMultiPort
	Result domain.OutputDataPort
	Exit   domain.OutputTriggerPort
	args   reflectedArgs
}

func (n *MemberCall) MemberIndex() int { return n.Index }

func (n *MemberCall) PortWidth(field string) int {
	if field == "Args" {
		return n.Argc
	}
	return 0
}

func (n *MemberCall) ResolvePort(name string) (string, int, bool) { return n.args.resolve(name) }

func (n *MemberCall) Execute(ctx domain.GraphContext, _ domain.InputTriggerPort) domain.Execution {
	ctx.Write(n.Result, invoke(ctx, n.Index, n.Args))
	ctx.Trigger(n.Exit)
	return domain.Done
}

// NewMemberNode is the reflection fallback: fields become data nodes and
// methods become flow nodes.
func NewMemberNode(m domain.ReflectedMember, index, argc int) domain.Node {
	if m.Kind == domain.MemberField {
		return &MemberGet{Member: m, Index: index, Argc: argc}
	}
	return &MemberCall{Member: m, Index: index, Argc: argc}
}
