package condition

import (
	"fmt"

	"github.com/dagucloud/watcher/internal/stage/internal/objpath"
)

// Op is a comparison operator.
type Op string

const (
	OpEq    Op = "eq"
	OpNotEq Op = "not_eq"
	OpGt    Op = "gt"
	OpGte   Op = "gte"
	OpLt    Op = "lt"
	OpLte   Op = "lte"
)

func parseOp(s string) (Op, error) {
	switch op := Op(s); op {
	case OpEq, OpNotEq, OpGt, OpGte, OpLt, OpLte:
		return op, nil
	default:
		return "", fmt.Errorf("unknown comparison operator [%s]", s)
	}
}

// Eval applies the operator. Ordering a value that is neither a number nor a
// string is never true.
func (o Op) Eval(actual, expected any) bool {
	switch o {
	case OpEq:
		return objpath.Equal(actual, expected)
	case OpNotEq:
		return !objpath.Equal(actual, expected)
	}
	c, ok := objpath.Compare(actual, expected)
	if !ok {
		return false
	}
	switch o {
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	default:
		return false
	}
}
