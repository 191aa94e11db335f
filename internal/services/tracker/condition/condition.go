// Package condition parses and evaluates single-comparison memory
// conditions such as "> 2", ">=0x10" or "& 0x04".
package condition

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/pokeachieve/internal/platform/errors"
)

// Op is a comparison or bitmask operator.
type Op string

const (
	OpGreater      Op = ">"
	OpLess         Op = "<"
	OpGreaterEqual Op = ">="
	OpLessEqual    Op = "<="
	OpEqual        Op = "=="
	OpNotEqual     Op = "!="
	// OpAllBits is true when every bit of the operand is set in the value.
	OpAllBits Op = "&"
)

// two-character operators first so ">=" never parses as ">" then "=0".
var operators = []Op{OpGreaterEqual, OpLessEqual, OpEqual, OpNotEqual, OpGreater, OpLess, OpAllBits}

// Condition is a parsed operator and operand.
type Condition struct {
	Op      Op
	Operand int64
}

// String renders the canonical form.
func (c Condition) String() string {
	if c.Op == OpAllBits {
		return fmt.Sprintf("%s %#x", c.Op, c.Operand)
	}
	return fmt.Sprintf("%s %d", c.Op, c.Operand)
}

// Parse reads one operator followed by one decimal or 0x-prefixed hex
// integer. Whitespace around and between the two is ignored.
func Parse(raw string) (Condition, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Condition{}, evaluationError("empty condition", raw)
	}
	for _, op := range operators {
		rest, ok := strings.CutPrefix(s, string(op))
		if !ok {
			continue
		}
		operand, err := parseOperand(strings.TrimSpace(rest))
		if err != nil {
			return Condition{}, apperrors.WrapWithMetadata(apperrors.CodeEvaluation, "parse condition operand",
				map[string]string{"condition": raw}, err)
		}
		if op == OpAllBits && operand <= 0 {
			return Condition{}, evaluationError("bitmask operand must be positive", raw)
		}
		return Condition{Op: op, Operand: operand}, nil
	}
	return Condition{}, evaluationError("unknown operator", raw)
}

func parseOperand(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("missing operand")
	}
	negative := false
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		negative = true
		s = rest
	}
	var (
		v   uint64
		err error
	)
	if hex, ok := cutHexPrefix(s); ok {
		v, err = strconv.ParseUint(hex, 16, 63)
	} else {
		v, err = strconv.ParseUint(s, 10, 63)
	}
	if err != nil {
		return 0, err
	}
	if negative {
		return -int64(v), nil
	}
	return int64(v), nil
}

func cutHexPrefix(s string) (string, bool) {
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		return rest, true
	}
	return strings.CutPrefix(s, "0X")
}

// Evaluate applies c to value. A zero Condition is false.
func Evaluate(value int64, c Condition) bool {
	switch c.Op {
	case OpGreater:
		return value > c.Operand
	case OpLess:
		return value < c.Operand
	case OpGreaterEqual:
		return value >= c.Operand
	case OpLessEqual:
		return value <= c.Operand
	case OpEqual:
		return value == c.Operand
	case OpNotEqual:
		return value != c.Operand
	case OpAllBits:
		return value&c.Operand == c.Operand
	default:
		return false
	}
}

func evaluationError(message, raw string) error {
	return apperrors.WithMetadata(apperrors.CodeEvaluation, message, map[string]string{"condition": raw})
}
