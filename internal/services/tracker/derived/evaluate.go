package derived

import "context"

// Result is the outcome of one derived check. Current is the progress value
// reported alongside it: a count where the check has one, otherwise 1 when
// met and 0 when not.
type Result struct {
	Met     bool
	Current int
}

func boolResult(met bool) Result {
	if met {
		return Result{Met: true, Current: 1}
	}
	return Result{}
}

// Evaluate dispatches a parsed check. target is only used by pokedex_count,
// where zero means the layout's full pokedex.
func (c *Checker) Evaluate(ctx context.Context, check Check, target int) Result {
	if c == nil {
		return Result{}
	}
	switch check.Kind {
	case KindPokedexCount:
		if target <= 0 {
			target = c.cfg.MaxPokemon
		}
		n := c.CaughtCount(ctx)
		return Result{Met: n >= target, Current: n}
	case KindAllBadges:
		n, _ := c.BadgeCount(ctx)
		return Result{Met: c.CheckAllBadges(ctx), Current: n}
	case KindChampion:
		return boolResult(c.CheckChampionDefeated(ctx))
	case KindEliteFour:
		return boolResult(c.CheckEliteFourMember(ctx, check.Arg))
	case KindAllEliteFour:
		met := c.CheckAllEliteFour(ctx)
		if len(c.cfg.EliteFour) == 0 {
			return boolResult(met)
		}
		return Result{Met: met, Current: c.EliteFourCount(ctx)}
	case KindLegendary:
		return boolResult(c.CheckLegendaryCaught(ctx, check.Arg))
	case KindLegendaryBirds:
		n := countCaught(c.ReadPokedexCaught(ctx), legendaryBirds)
		return Result{Met: n == len(legendaryBirds), Current: n}
	case KindAllLegendaries:
		set := generationLegendaries[c.cfg.Generation]
		n := countCaught(c.ReadPokedexCaught(ctx), set)
		return Result{Met: len(set) > 0 && n == len(set), Current: n}
	case KindFirstSteps:
		return boolResult(c.CheckFirstSteps(ctx))
	case KindPokemonMaster:
		return boolResult(c.CheckPokemonMaster(ctx))
	case KindHasHM:
		return boolResult(c.CheckHasHm(ctx, check.Arg))
	default:
		return Result{}
	}
}
