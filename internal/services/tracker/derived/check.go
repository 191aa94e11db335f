package derived

import (
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/pokeachieve/internal/platform/errors"
)

// Kind names a derived check.
type Kind string

const (
	KindPokedexCount   Kind = "pokedex_count"
	KindAllBadges      Kind = "all_badges"
	KindChampion       Kind = "champion"
	KindEliteFour      Kind = "elite_four"
	KindAllEliteFour   Kind = "all_elite_four"
	KindLegendary      Kind = "legendary"
	KindLegendaryBirds Kind = "legendary_birds"
	KindAllLegendaries Kind = "all_legendaries"
	KindFirstSteps     Kind = "first_steps"
	KindPokemonMaster  Kind = "pokemon_master"
	KindHasHM          Kind = "hm"
)

// kinds maps each kind to whether it takes an argument.
var kinds = map[Kind]bool{
	KindPokedexCount:   false,
	KindAllBadges:      false,
	KindChampion:       false,
	KindEliteFour:      true,
	KindAllEliteFour:   false,
	KindLegendary:      true,
	KindLegendaryBirds: false,
	KindAllLegendaries: false,
	KindFirstSteps:     false,
	KindPokemonMaster:  false,
	KindHasHM:          true,
}

// Check is a parsed derived-check tag: "kind" or "kind:arg".
type Check struct {
	Kind Kind
	Arg  string
}

// String renders the tag form.
func (c Check) String() string {
	if c.Arg == "" {
		return string(c.Kind)
	}
	return string(c.Kind) + ":" + c.Arg
}

// ParseCheck parses a derived-check tag such as "all_badges",
// "elite_four:lorelei" or "hm:surf".
func ParseCheck(tag string) (Check, error) {
	raw := tag
	tag = strings.TrimSpace(tag)
	kind, arg, hasArg := strings.Cut(tag, ":")
	check := Check{Kind: Kind(normalizeName(kind)), Arg: normalizeName(arg)}

	needsArg, ok := kinds[check.Kind]
	if !ok {
		return Check{}, checkError(fmt.Sprintf("unknown derived check %q", kind), raw)
	}
	switch {
	case needsArg && check.Arg == "":
		return Check{}, checkError(fmt.Sprintf("%s needs an argument", check.Kind), raw)
	case !needsArg && hasArg:
		return Check{}, checkError(fmt.Sprintf("%s takes no argument", check.Kind), raw)
	}
	switch check.Kind {
	case KindLegendary:
		if _, ok := legendaryIDs[check.Arg]; !ok {
			return Check{}, checkError(fmt.Sprintf("unknown legendary %q", check.Arg), raw)
		}
	case KindHasHM:
		if !knownHM(check.Arg) {
			return Check{}, checkError(fmt.Sprintf("unknown hm %q", check.Arg), raw)
		}
	}
	return check, nil
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func checkError(message, tag string) error {
	return apperrors.WithMetadata(apperrors.CodeEvaluation, message, map[string]string{"derived": tag})
}
