package nodes

import (
	"reflect"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/value"
)

// Constant outputs a fixed value. A non-Unknown Type coerces the value.
type Constant struct {
	Value value.Value           `option:"value"`
	Type  value.Kind            `option:"type"`
	Out   domain.OutputDataPort `port:"Value"`
}

func (n *Constant) Constant() value.Value {
	if n.Type == value.Unknown {
		return n.Value
	}
	return value.CoerceValueToType(n.Type, n.Value)
}

func (n *Constant) ConstantOutput() domain.OutputDataPort { return n.Out }

func (n *Constant) Evaluate(ctx domain.GraphContext) { ctx.Write(n.Out, n.Constant()) }

func (n *Constant) Foldable() bool { return true }

// Arithmetic applies a binary operator component-wise.
type Arithmetic struct {
	Op     value.Op `option:"op"`
	A      domain.InputDataPort
	B      domain.InputDataPort
	Result domain.OutputDataPort
}

func (n *Arithmetic) Evaluate(ctx domain.GraphContext) {
	ctx.Write(n.Result, value.Arith(n.Op, ctx.Read(n.A), ctx.Read(n.B)))
}

func (n *Arithmetic) Foldable() bool { return true }

// Compare evaluates a relational operator.
type Compare struct {
	Op     value.Comparison `option:"op"`
	A      domain.InputDataPort
	B      domain.InputDataPort
	Result domain.OutputDataPort
}

func (n *Compare) Evaluate(ctx domain.GraphContext) {
	ctx.Write(n.Result, value.FromBool(value.Compare(n.Op, ctx.Read(n.A), ctx.Read(n.B))))
}

func (n *Compare) Foldable() bool { return true }

// Not negates a boolean.
type Not struct {
	In  domain.InputDataPort
	Out domain.OutputDataPort
}

func (n *Not) Evaluate(ctx domain.GraphContext) {
	ctx.Write(n.Out, value.FromBool(!ctx.Read(n.In).Bool()))
}

func (n *Not) Foldable() bool { return true }

// MakeList collects its inputs into a managed []value.Value.
// Count fixes the number of items; zero sizes the list from the authoring ports.
type MakeList struct {
	Count int `option:"count"`
	Items domain.InputDataMultiPort
	List  domain.OutputDataPort
}

func (n *MakeList) PortWidth(field string) int {
	if field == "Items" {
		return n.Count
	}
	return 0
}

func (n *MakeList) Evaluate(ctx domain.GraphContext) {
	items := make([]value.Value, n.Items.Count)
	for i := range items {
		items[i] = ctx.Read(n.Items.SelectPort(i))
	}
	ctx.Write(n.List, value.Object(items))
}

// ListItems reads a list value: a []value.Value, any other slice or array, or Unknown.
func ListItems(v value.Value) []value.Value {
	obj := v.Object()
	switch o := obj.(type) {
	case nil:
		return nil
	case []value.Value:
		return o
	case []any:
		out := make([]value.Value, len(o))
		for i, e := range o {
			out[i] = value.FromObject(e)
		}
		return out
	}
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []value.Value{v}
	}
	out := make([]value.Value, rv.Len())
	for i := range out {
		out[i] = value.FromObject(rv.Index(i).Interface())
	}
	return out
}
