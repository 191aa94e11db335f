package registry

import (
	"testing"

	apperrors "github.com/louisbranch/pokeachieve/internal/platform/errors"
)

func TestDefaultRegistersTenTitles(t *testing.T) {
	r := Default()
	want := []string{
		TitleBlue, TitleCrystal, TitleEmerald, TitleFireRed, TitleGold,
		TitleLeafGreen, TitleRed, TitleRuby, TitleSapphire, TitleSilver,
	}
	got := r.Titles()
	if len(got) != len(want) {
		t.Fatalf("Titles() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Titles()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLookupUnknownTitle(t *testing.T) {
	if _, ok := Default().Lookup("Pokemon Yellow"); ok {
		t.Fatal("expected no config for unregistered title")
	}
	var r *Registry
	if _, ok := r.Lookup(TitleRed); ok {
		t.Fatal("nil registry should have no configs")
	}
}

func TestKantoRemakesOverrideBag(t *testing.T) {
	r := Default()
	emerald, _ := r.Lookup(TitleEmerald)
	fireRed, _ := r.Lookup(TitleFireRed)

	if emerald.Bag.Address == fireRed.Bag.Address {
		t.Fatalf("bag address should differ, both %#x", emerald.Bag.Address)
	}
	if fireRed.Bag.Address != 0x02025E9C {
		t.Fatalf("FireRed bag = %#x, want 0x02025e9c", fireRed.Bag.Address)
	}
	if emerald.Bag.Address != 0x02025A94 {
		t.Fatalf("Emerald bag = %#x, want 0x02025a94", emerald.Bag.Address)
	}
	if fireRed.BadgeAddress != emerald.BadgeAddress {
		t.Fatalf("badge address = %#x, want shared %#x", fireRed.BadgeAddress, emerald.BadgeAddress)
	}
}

func TestGenerationLayouts(t *testing.T) {
	tests := []struct {
		title      string
		generation int
		maxPokemon int
		bag        BagKind
		eliteFour  bool
	}{
		{title: TitleRed, generation: 1, maxPokemon: 151, bag: BagFlat, eliteFour: true},
		{title: TitleCrystal, generation: 2, maxPokemon: 251, bag: BagFlat, eliteFour: true},
		{title: TitleSapphire, generation: 3, maxPokemon: 386, bag: BagStride4},
		{title: TitleLeafGreen, generation: 3, maxPokemon: 386, bag: BagStride4},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			cfg, ok := Default().Lookup(tt.title)
			if !ok {
				t.Fatalf("Lookup(%q) missing", tt.title)
			}
			if cfg.Generation != tt.generation {
				t.Fatalf("Generation = %d, want %d", cfg.Generation, tt.generation)
			}
			if cfg.MaxPokemon != tt.maxPokemon {
				t.Fatalf("MaxPokemon = %d, want %d", cfg.MaxPokemon, tt.maxPokemon)
			}
			if cfg.Bag.Kind != tt.bag {
				t.Fatalf("Bag.Kind = %v, want %v", cfg.Bag.Kind, tt.bag)
			}
			if got := len(cfg.EliteFour) == 4; got != tt.eliteFour {
				t.Fatalf("has elite four = %v, want %v", got, tt.eliteFour)
			}
		})
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	r := Default()
	cfg, _ := r.Lookup(TitleRed)
	cfg.EliteFour[0].Address = 0
	again, _ := r.Lookup(TitleRed)
	if again.EliteFour[0].Address != 0xD6E0 {
		t.Fatalf("registry mutated through lookup: %#x", again.EliteFour[0].Address)
	}
}

func TestEliteFourMemberLookup(t *testing.T) {
	cfg, _ := Default().Lookup(TitleGold)
	member, ok := cfg.EliteFourMember("Karen")
	if !ok || member.Address != 0xD6E7 {
		t.Fatalf("EliteFourMember(Karen) = %+v, %v", member, ok)
	}
	if _, ok := cfg.EliteFourMember("lorelei"); ok {
		t.Fatal("lorelei is not on the Johto roster")
	}
}

func TestAllBadgesValue(t *testing.T) {
	tests := []struct {
		count int
		want  byte
	}{
		{count: 1, want: 0x01},
		{count: 4, want: 0x0F},
		{count: 8, want: 0xFF},
	}
	for _, tt := range tests {
		cfg := MemoryConfig{BadgeCount: tt.count}
		if got := cfg.AllBadgesValue(); got != tt.want {
			t.Fatalf("AllBadgesValue(%d) = %#x, want %#x", tt.count, got, tt.want)
		}
	}
}

func TestNewRejectsInvalidConfigs(t *testing.T) {
	valid := kantoConfig()
	tests := []struct {
		name   string
		mutate func(*MemoryConfig)
	}{
		{name: "badge count", mutate: func(c *MemoryConfig) { c.BadgeCount = 9 }},
		{name: "elite four size", mutate: func(c *MemoryConfig) { c.EliteFour = c.EliteFour[:3] }},
		{name: "generation", mutate: func(c *MemoryConfig) { c.Generation = 4 }},
		{name: "max pokemon", mutate: func(c *MemoryConfig) { c.MaxPokemon = 0 }},
		{name: "bag capacity", mutate: func(c *MemoryConfig) { c.Bag.Capacity = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			cfg.EliteFour = append([]EliteFourMember(nil), valid.EliteFour...)
			tt.mutate(&cfg)
			_, err := New(map[string]MemoryConfig{"Broken": cfg})
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !apperrors.HasCode(err, apperrors.CodeConfig) {
				t.Fatalf("error code = %s, want %s", apperrors.CodeOf(err), apperrors.CodeConfig)
			}
		})
	}
}

func TestNewRejectsEmptyTable(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for empty registry")
	}
}
