// Package catalog composes the standard achievement list for every title in
// the registry: story flags, badges, Elite Four, champion, legendaries,
// pokedex milestones, HMs and the Pokemon Master capstone.
package catalog

import (
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/pokeachieve/internal/platform/errors"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/derived"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/engine"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/registry"
)

// Categories.
const (
	CategoryStory     = "story"
	CategoryPokedex   = "pokedex"
	CategoryGym       = "gym"
	CategoryEliteFour = "elite_four"
	CategoryChampion  = "champion"
	CategoryLegendary = "legendary"
	CategoryMaster    = "master"
)

// Rarities.
const (
	RarityCommon    = "common"
	RarityUncommon  = "uncommon"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// DefinitionProvider supplies the ordered definitions for a title.
type DefinitionProvider interface {
	Definitions(title string) ([]engine.Definition, error)
}

// Provider builds definitions from registry layouts.
type Provider struct {
	registry *registry.Registry
}

// NewProvider returns a provider over r.
func NewProvider(r *registry.Registry) *Provider {
	return &Provider{registry: r}
}

// Definitions returns the standard set for a registry title key.
func (p *Provider) Definitions(title string) ([]engine.Definition, error) {
	if p == nil || p.registry == nil {
		return nil, apperrors.New(apperrors.CodeConfig, "registry is not configured")
	}
	cfg, ok := p.registry.Lookup(title)
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeConfig, "no memory layout for title", map[string]string{"title": title})
	}
	b := builder{prefix: idPrefix(title), cfg: cfg}
	b.starter()
	b.story()
	b.pokedex()
	b.gyms()
	b.eliteFour()
	b.champion()
	b.legendaries()
	b.hms()
	b.master()
	return b.defs, nil
}

// idPrefix turns "Pokemon FireRed" into "pokemon_firered".
func idPrefix(title string) string {
	fields := strings.Fields(strings.ToLower(title))
	return strings.ReplaceAll(strings.Join(fields, "_"), "'", "")
}

type builder struct {
	prefix string
	cfg    registry.MemoryConfig
	defs   []engine.Definition
}

func (b *builder) add(def engine.Definition) {
	def.ID = b.prefix + "_" + def.ID
	if def.TargetValue <= 0 {
		def.TargetValue = 1
	}
	b.defs = append(b.defs, def)
}

func (b *builder) starter() {
	b.add(engine.Definition{
		ID:          "starter_chosen",
		Name:        "The Journey Begins",
		Description: "Choose your starter Pokemon",
		Category:    CategoryStory,
		Rarity:      RarityCommon,
		Points:      10,
		Derived:     string(derived.KindFirstSteps),
	})
	b.add(engine.Definition{
		ID:          "first_steps",
		Name:        "First Steps",
		Description: "Begin your Pokemon journey",
		Category:    CategoryStory,
		Rarity:      RarityCommon,
		Points:      5,
		Derived:     string(derived.KindFirstSteps),
	})
}

func (b *builder) story() {
	for _, s := range storyFlags[b.cfg.Generation] {
		b.add(engine.Definition{
			ID:          "story_" + s.id,
			Name:        s.name,
			Description: s.description,
			Category:    CategoryStory,
			Rarity:      s.rarity,
			Points:      s.points,
			Memory:      &engine.MemoryCondition{Address: s.address, Condition: s.condition},
		})
	}
}

var pokedexMilestones = []struct {
	target int
	name   string
}{
	{target: 10, name: "Junior Researcher"},
	{target: 25, name: "Collector"},
	{target: 50, name: "Pokemon Enthusiast"},
	{target: 100, name: "Pokedex Master"},
}

func (b *builder) pokedex() {
	for _, m := range pokedexMilestones {
		if m.target > b.cfg.MaxPokemon {
			continue
		}
		rarity := RarityCommon
		switch {
		case m.target >= 100:
			rarity = RarityRare
		case m.target >= 50:
			rarity = RarityUncommon
		}
		b.add(engine.Definition{
			ID:          fmt.Sprintf("pokedex_%d", m.target),
			Name:        m.name,
			Description: fmt.Sprintf("Register %d Pokemon in the Pokedex", m.target),
			Category:    CategoryPokedex,
			TargetValue: m.target,
			Rarity:      rarity,
			Points:      m.target,
			Derived:     string(derived.KindPokedexCount),
		})
	}
	region := regions[b.cfg.Generation]
	b.add(engine.Definition{
		ID:          "pokedex_complete",
		Name:        region + " Completionist",
		Description: fmt.Sprintf("Catch all %d Pokemon", b.cfg.MaxPokemon),
		Category:    CategoryPokedex,
		TargetValue: b.cfg.MaxPokemon,
		Rarity:      RarityEpic,
		Points:      500,
		Derived:     string(derived.KindPokedexCount),
	})
}

func (b *builder) gyms() {
	leaders := gymLeaders[b.cfg.Generation]
	for i := 0; i < b.cfg.BadgeCount && i < len(leaders); i++ {
		g := leaders[i]
		b.add(engine.Definition{
			ID:          fmt.Sprintf("gym_%d_%s", i+1, slug(g.leader)),
			Name:        g.badge + " Badge",
			Description: fmt.Sprintf("Defeat %s and earn the %s Badge", g.leader, g.badge),
			Category:    CategoryGym,
			Rarity:      RarityCommon,
			Points:      25,
			Memory: &engine.MemoryCondition{
				Address:   b.cfg.BadgeAddress,
				Condition: fmt.Sprintf("& 0x%02x", 1<<i),
			},
		})
	}
	b.add(engine.Definition{
		ID:          "gym_all",
		Name:        "Gym Leader Conqueror",
		Description: fmt.Sprintf("Defeat all %d Gym Leaders", b.cfg.BadgeCount),
		Category:    CategoryGym,
		TargetValue: b.cfg.BadgeCount,
		Rarity:      RarityRare,
		Points:      100,
		Derived:     string(derived.KindAllBadges),
	})
}

func (b *builder) eliteFour() {
	for _, member := range b.cfg.EliteFour {
		title := titleCase(member.Name)
		b.add(engine.Definition{
			ID:          "elite_four_" + member.Name,
			Name:        "Elite Four: " + title,
			Description: fmt.Sprintf("Defeat %s of the Elite Four", title),
			Category:    CategoryEliteFour,
			Rarity:      RarityRare,
			Points:      50,
			Derived:     string(derived.KindEliteFour) + ":" + member.Name,
		})
	}
	b.add(engine.Definition{
		ID:          "elite_four_all",
		Name:        "Elite Four Vanquisher",
		Description: "Defeat all members of the Elite Four",
		Category:    CategoryEliteFour,
		TargetValue: 4,
		Rarity:      RarityEpic,
		Points:      200,
		Derived:     string(derived.KindAllEliteFour),
	})
}

func (b *builder) champion() {
	name := champions[b.cfg.Generation]
	b.add(engine.Definition{
		ID:          "champion_" + slug(name),
		Name:        "Champion Slayer: " + name,
		Description: "Defeat Champion " + name,
		Category:    CategoryChampion,
		Rarity:      RarityEpic,
		Points:      300,
		Derived:     string(derived.KindChampion),
	})
}

func (b *builder) legendaries() {
	set := derived.Legendaries(b.cfg.Generation)
	for _, id := range set {
		name, ok := derived.LegendaryName(id)
		if !ok {
			continue
		}
		display := titleCase(name)
		b.add(engine.Definition{
			ID:          "legendary_" + slug(name),
			Name:        "Legendary Caught: " + display,
			Description: "Catch the legendary Pokemon " + display,
			Category:    CategoryLegendary,
			Rarity:      RarityEpic,
			Points:      150,
			Derived:     string(derived.KindLegendary) + ":" + name,
		})
	}
	if b.cfg.Generation == 1 {
		b.add(engine.Definition{
			ID:          "legendary_birds",
			Name:        "Winged Legends",
			Description: "Catch Articuno, Zapdos, and Moltres",
			Category:    CategoryLegendary,
			TargetValue: 3,
			Rarity:      RarityEpic,
			Points:      400,
			Derived:     string(derived.KindLegendaryBirds),
		})
	}
	if len(set) > 0 {
		b.add(engine.Definition{
			ID:          "legendary_all",
			Name:        "Legendary Master",
			Description: "Catch all legendary Pokemon in the game",
			Category:    CategoryLegendary,
			TargetValue: len(set),
			Rarity:      RarityLegendary,
			Points:      1000,
			Derived:     string(derived.KindAllLegendaries),
		})
	}
}

func (b *builder) hms() {
	if b.cfg.Bag.Kind == 0 {
		return
	}
	for i, name := range derived.HMNames(b.cfg.Generation) {
		display := titleCase(strings.ReplaceAll(name, "_", " "))
		achievement, ok := hmAchievements[name]
		if !ok {
			achievement = hmAchievement{name: "HM: " + display, rarity: RarityUncommon, points: 25}
		}
		b.add(engine.Definition{
			ID:          "story_hm_" + name,
			Name:        achievement.name,
			Description: fmt.Sprintf("Obtain HM%02d %s", i+1, display),
			Category:    CategoryStory,
			Rarity:      achievement.rarity,
			Points:      achievement.points,
			Derived:     string(derived.KindHasHM) + ":" + name,
		})
	}
}

func (b *builder) master() {
	b.add(engine.Definition{
		ID:          "pokemon_master",
		Name:        "Pokemon Master",
		Description: "All badges, Champion defeated, and a complete Pokedex",
		Category:    CategoryMaster,
		Rarity:      RarityLegendary,
		Points:      5000,
		Derived:     string(derived.KindPokemonMaster),
	})
}

func slug(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "&", "and")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, "-", "_")
	return strings.Join(strings.Fields(s), "_")
}

// titleCase upper-cases the first letter of each word and after hyphens.
func titleCase(s string) string {
	out := []rune(s)
	upper := true
	for i, r := range out {
		if upper && r >= 'a' && r <= 'z' {
			out[i] = r - 'a' + 'A'
		}
		upper = r == ' ' || r == '-'
	}
	return string(out)
}
