package value

import (
	"errors"
	"fmt"
	"math"
)

// ErrDivideByZero is raised by integer division by zero.
var ErrDivideByZero = errors.New("value: integer divide by zero")

// Op is a binary arithmetic operator.
type Op uint8

const (
	OpAdd Op = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpMin
	OpMax
)

// ParseOp resolves an operator name such as "add" or "+".
func ParseOp(s string) (Op, error) {
	switch s {
	case "add", "Add", "+":
		return OpAdd, nil
	case "subtract", "Subtract", "sub", "-":
		return OpSubtract, nil
	case "multiply", "Multiply", "mul", "*":
		return OpMultiply, nil
	case "divide", "Divide", "div", "/":
		return OpDivide, nil
	case "modulo", "Modulo", "mod", "%":
		return OpModulo, nil
	case "min", "Min":
		return OpMin, nil
	case "max", "Max":
		return OpMax, nil
	}
	return OpAdd, fmt.Errorf("unknown operator %q", s)
}

func widest(a, b Kind) Kind {
	if a == Unknown {
		a = Int
	}
	if b == Unknown {
		b = Int
	}
	if a > b {
		return a
	}
	return b
}

// Arith applies op component-wise after widening both operands to the wider kind.
// Int op Int stays Int. Non-numeric operands panic with *KindError.
func Arith(op Op, a, b Value) Value {
	k := widest(a.kind, b.kind)
	if !k.IsNumeric() {
		panic(&KindError{Want: Float4, Got: k})
	}
	if k == Int {
		return FromInt(int(intOp(op, int32(a.Int()), int32(b.Int()))))
	}
	x, y := CoerceValueToType(k, normalize(a)), CoerceValueToType(k, normalize(b))
	out := Value{kind: k}
	for i := 0; i < k.components(); i++ {
		out.data[i] = math.Float32bits(floatOp(op, x.f(i), y.f(i)))
	}
	return out
}

func normalize(v Value) Value {
	if v.kind == Unknown {
		return FromInt(0)
	}
	return v
}

func intOp(op Op, a, b int32) int32 {
	switch op {
	case OpAdd:
		return a + b
	case OpSubtract:
		return a - b
	case OpMultiply:
		return a * b
	case OpDivide:
		if b == 0 {
			panic(ErrDivideByZero)
		}
		return a / b
	case OpModulo:
		if b == 0 {
			panic(ErrDivideByZero)
		}
		return a % b
	case OpMin:
		return min(a, b)
	case OpMax:
		return max(a, b)
	}
	return 0
}

func floatOp(op Op, a, b float32) float32 {
	switch op {
	case OpAdd:
		return a + b
	case OpSubtract:
		return a - b
	case OpMultiply:
		return a * b
	case OpDivide:
		return a / b
	case OpModulo:
		return float32(math.Mod(float64(a), float64(b)))
	case OpMin:
		return min(a, b)
	case OpMax:
		return max(a, b)
	}
	return 0
}

// Comparison is a relational operator.
type Comparison uint8

const (
	Equal Comparison = iota
	NotEqual
	Less
	LessOrEqual
	Greater
	GreaterOrEqual
)

// ParseComparison resolves a comparison name such as "less" or "<=".
func ParseComparison(s string) (Comparison, error) {
	switch s {
	case "", "eq", "equal", "Equal", "==":
		return Equal, nil
	case "ne", "notequal", "NotEqual", "!=":
		return NotEqual, nil
	case "lt", "less", "Less", "<":
		return Less, nil
	case "le", "lessorequal", "LessOrEqual", "<=":
		return LessOrEqual, nil
	case "gt", "greater", "Greater", ">":
		return Greater, nil
	case "ge", "greaterorequal", "GreaterOrEqual", ">=":
		return GreaterOrEqual, nil
	}
	return Equal, fmt.Errorf("unknown comparison %q", s)
}

// Compare evaluates a relational operator. Ordering comparisons read both sides as Float.
func Compare(c Comparison, a, b Value) bool {
	switch c {
	case Equal:
		return Equals(a, b)
	case NotEqual:
		return !Equals(a, b)
	}
	x, y := a.Float(), b.Float()
	switch c {
	case Less:
		return x < y && !Approximately(x, y)
	case LessOrEqual:
		return x < y || Approximately(x, y)
	case Greater:
		return x > y && !Approximately(x, y)
	case GreaterOrEqual:
		return x > y || Approximately(x, y)
	}
	return false
}

var opNames = [...]string{"add", "subtract", "multiply", "divide", "modulo", "min", "max"}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o Op) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Op) UnmarshalText(b []byte) error {
	op, err := ParseOp(string(b))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

var comparisonNames = [...]string{"equal", "notequal", "less", "lessorequal", "greater", "greaterorequal"}

func (c Comparison) String() string {
	if int(c) < len(comparisonNames) {
		return comparisonNames[c]
	}
	return fmt.Sprintf("comparison(%d)", uint8(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Comparison) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Comparison) UnmarshalText(b []byte) error {
	cmp, err := ParseComparison(string(b))
	if err != nil {
		return err
	}
	*c = cmp
	return nil
}
