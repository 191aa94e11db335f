package engine

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/pokeachieve/internal/platform/errors"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/condition"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/derived"
)

// MemoryCondition tests the byte at Address against Condition.
type MemoryCondition struct {
	Address   uint32
	Condition string
}

// Definition is one achievement as supplied by a definition provider. It
// carries either a memory condition or a derived-check tag.
type Definition struct {
	ID          string
	Name        string
	Description string
	Category    string
	TargetValue int
	Rarity      string
	Points      int
	Memory      *MemoryCondition
	Derived     string
}

// Progress is the evaluation state of one achievement.
type Progress struct {
	ID       string
	Current  int
	Target   int
	Unlocked bool
}

// UnlockEvent is published once per achievement per session.
type UnlockEvent struct {
	AchievementID string
	Name          string
	Points        int
	SessionID     string
	UnlockedAt    time.Time
}

type evaluatorKind int

const (
	evaluateNone evaluatorKind = iota
	evaluateMemory
	evaluateDerived
)

// compiled is a definition with its condition or check parsed.
type compiled struct {
	def     Definition
	kind    evaluatorKind
	address uint32
	cond    condition.Condition
	check   derived.Check
	target  int
}

// compile parses the condition or tag of def. A definition that cannot be
// evaluated comes back with kind evaluateNone and the reason.
func compile(def Definition) (compiled, error) {
	c := compiled{def: def, target: def.TargetValue}
	if c.target <= 0 {
		c.target = 1
	}
	switch {
	case def.Memory != nil:
		cond, err := condition.Parse(def.Memory.Condition)
		if err != nil {
			return c, fmt.Errorf("parse condition for %s: %w", def.ID, err)
		}
		if def.Memory.Address == 0 {
			return c, apperrors.New(apperrors.CodeEvaluation, fmt.Sprintf("%s has no memory address", def.ID))
		}
		c.kind = evaluateMemory
		c.address = def.Memory.Address
		c.cond = cond
	case strings.TrimSpace(def.Derived) != "":
		check, err := derived.ParseCheck(def.Derived)
		if err != nil {
			return c, fmt.Errorf("parse derived check for %s: %w", def.ID, err)
		}
		c.kind = evaluateDerived
		c.check = check
	default:
		return c, apperrors.New(apperrors.CodeEvaluation, fmt.Sprintf("%s has neither a condition nor a derived check", def.ID))
	}
	return c, nil
}
