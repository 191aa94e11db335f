// Package registry holds the per-title memory layouts the tracker reads.
//
// A Registry is built once at startup and never mutated; components receive
// it by reference. Titles that share a generation start from a family
// default and override only the addresses that differ.
package registry

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/louisbranch/pokeachieve/internal/platform/errors"
)

// Platform identifies the emulated handheld.
type Platform string

const (
	PlatformGameBoy        Platform = "gb"
	PlatformGameBoyColor   Platform = "gbc"
	PlatformGameBoyAdvance Platform = "gba"
)

// BagKind selects the item pocket encoding.
type BagKind int

const (
	// BagFlat is a count byte followed by [id, quantity] byte pairs.
	BagFlat BagKind = iota + 1
	// BagStride4 is a count at the base and 4-byte slots from base+4, each
	// slot starting with a little-endian 16-bit item id.
	BagStride4
)

func (k BagKind) String() string {
	switch k {
	case BagFlat:
		return "flat"
	case BagStride4:
		return "stride4"
	default:
		return "unknown"
	}
}

// BagLayout locates the item pocket scanned for key items.
type BagLayout struct {
	Kind     BagKind
	Address  uint32
	Capacity int
}

// EliteFourMember pairs a roster name with the address of its defeat flag.
type EliteFourMember struct {
	Name    string
	Address uint32
}

// MemoryConfig describes where one title keeps its progress. Zero addresses
// mean the title has no such location.
type MemoryConfig struct {
	Family     string
	Platform   Platform
	Generation int

	PokedexCaughtStart uint32
	PokedexSeenStart   uint32
	MaxPokemon         int

	BadgeAddress uint32
	BadgeCount   int

	PartyCountAddress uint32
	PartyStartAddress uint32
	PartySlotSize     int
	StarterAddress    uint32

	// EliteFour is nil or exactly four members in roster order.
	EliteFour         []EliteFourMember
	ChampionAddress   uint32
	HallOfFameAddress uint32

	Bag BagLayout
}

// AllBadgesValue is the badge byte with every badge earned.
func (c MemoryConfig) AllBadgesValue() byte {
	return byte((1 << c.BadgeCount) - 1)
}

// PokedexBytes is the length of the caught bitmap.
func (c MemoryConfig) PokedexBytes() int {
	return (c.MaxPokemon + 7) / 8
}

// EliteFourMember resolves a roster name (case-insensitive) to its entry.
func (c MemoryConfig) EliteFourMember(name string) (EliteFourMember, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, member := range c.EliteFour {
		if member.Name == name {
			return member, true
		}
	}
	return EliteFourMember{}, false
}

// Validate checks the layout invariants.
func (c MemoryConfig) Validate() error {
	var problems []string
	if c.Generation < 1 || c.Generation > 3 {
		problems = append(problems, fmt.Sprintf("generation %d out of range", c.Generation))
	}
	if c.PokedexCaughtStart == 0 {
		problems = append(problems, "pokedex caught start is required")
	}
	if c.MaxPokemon <= 0 {
		problems = append(problems, "max pokemon must be positive")
	}
	if c.BadgeCount < 1 || c.BadgeCount > 8 {
		problems = append(problems, fmt.Sprintf("badge count %d must fit one byte", c.BadgeCount))
	}
	if c.BadgeAddress == 0 {
		problems = append(problems, "badge address is required")
	}
	if c.PartySlotSize <= 0 {
		problems = append(problems, "party slot size must be positive")
	}
	if c.EliteFour != nil && len(c.EliteFour) != 4 {
		problems = append(problems, fmt.Sprintf("elite four has %d members, want 4", len(c.EliteFour)))
	}
	if c.Bag.Kind != 0 {
		if c.Bag.Kind != BagFlat && c.Bag.Kind != BagStride4 {
			problems = append(problems, "unknown bag layout")
		}
		if c.Bag.Address == 0 || c.Bag.Capacity <= 0 {
			problems = append(problems, "bag layout needs an address and a capacity")
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return apperrors.New(apperrors.CodeConfig, strings.Join(problems, "; "))
}

// Registry maps canonical title keys to memory layouts.
type Registry struct {
	configs map[string]MemoryConfig
	keys    []string
	// keys ordered longest first for resolution
	byLength []string
}

// New validates every entry and builds a registry.
func New(entries map[string]MemoryConfig) (*Registry, error) {
	if len(entries) == 0 {
		return nil, apperrors.New(apperrors.CodeConfig, "registry has no titles")
	}
	configs := make(map[string]MemoryConfig, len(entries))
	keys := make([]string, 0, len(entries))
	for key, cfg := range entries {
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, apperrors.New(apperrors.CodeConfig, "registry title is required")
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("validate %s: %w", key, err)
		}
		cfg.EliteFour = append([]EliteFourMember(nil), cfg.EliteFour...)
		if len(cfg.EliteFour) == 0 {
			cfg.EliteFour = nil
		}
		configs[key] = cfg
		keys = append(keys, key)
	}
	sort.Strings(keys)

	byLength := append([]string(nil), keys...)
	sort.SliceStable(byLength, func(i, j int) bool {
		return len(byLength[i]) > len(byLength[j])
	})
	return &Registry{configs: configs, keys: keys, byLength: byLength}, nil
}

// Lookup returns the layout registered under the exact title key.
func (r *Registry) Lookup(title string) (MemoryConfig, bool) {
	if r == nil {
		return MemoryConfig{}, false
	}
	cfg, ok := r.configs[title]
	if !ok {
		return MemoryConfig{}, false
	}
	cfg.EliteFour = append([]EliteFourMember(nil), cfg.EliteFour...)
	if len(cfg.EliteFour) == 0 {
		cfg.EliteFour = nil
	}
	return cfg, true
}

// Titles returns the registered title keys in sorted order.
func (r *Registry) Titles() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.keys...)
}
