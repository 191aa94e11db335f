package registry

// Title keys of the built-in table.
const (
	TitleRed       = "Pokemon Red"
	TitleBlue      = "Pokemon Blue"
	TitleGold      = "Pokemon Gold"
	TitleSilver    = "Pokemon Silver"
	TitleCrystal   = "Pokemon Crystal"
	TitleRuby      = "Pokemon Ruby"
	TitleSapphire  = "Pokemon Sapphire"
	TitleEmerald   = "Pokemon Emerald"
	TitleFireRed   = "Pokemon FireRed"
	TitleLeafGreen = "Pokemon LeafGreen"
)

// Bag capacities per encoding.
const (
	FlatBagCapacity    = 20
	Stride4BagCapacity = 42
)

func kantoConfig() MemoryConfig {
	return MemoryConfig{
		Family:             "Generation 1 (Red/Blue)",
		Platform:           PlatformGameBoy,
		Generation:         1,
		PokedexCaughtStart: 0xD30A,
		PokedexSeenStart:   0xD2F7,
		MaxPokemon:         151,
		BadgeAddress:       0xD356,
		BadgeCount:         8,
		PartyCountAddress:  0xD16B,
		PartyStartAddress:  0xD16C,
		PartySlotSize:      44,
		StarterAddress:     0xD16C,
		EliteFour: []EliteFourMember{
			{Name: "lorelei", Address: 0xD6E0},
			{Name: "bruno", Address: 0xD6E1},
			{Name: "agatha", Address: 0xD6E2},
			{Name: "lance", Address: 0xD6E3},
		},
		ChampionAddress: 0xD357,
		Bag:             BagLayout{Kind: BagFlat, Address: 0xD31D, Capacity: FlatBagCapacity},
	}
}

func johtoConfig() MemoryConfig {
	return MemoryConfig{
		Family:             "Generation 2 (Gold/Silver/Crystal)",
		Platform:           PlatformGameBoyColor,
		Generation:         2,
		PokedexCaughtStart: 0xDE3C,
		PokedexSeenStart:   0xD929,
		MaxPokemon:         251,
		BadgeAddress:       0xD35C,
		BadgeCount:         8,
		PartyCountAddress:  0xDA22,
		PartyStartAddress:  0xDA23,
		PartySlotSize:      48,
		StarterAddress:     0xDA23,
		EliteFour: []EliteFourMember{
			{Name: "will", Address: 0xD6E4},
			{Name: "koga", Address: 0xD6E5},
			{Name: "bruno", Address: 0xD6E6},
			{Name: "karen", Address: 0xD6E7},
		},
		ChampionAddress: 0xD6E8,
		Bag:             BagLayout{Kind: BagFlat, Address: 0xD892, Capacity: FlatBagCapacity},
	}
}

func hoennConfig() MemoryConfig {
	return MemoryConfig{
		Family:             "Generation 3 (Ruby/Sapphire/Emerald)",
		Platform:           PlatformGameBoyAdvance,
		Generation:         3,
		PokedexCaughtStart: 0x02024D0C,
		PokedexSeenStart:   0x02024C0C,
		MaxPokemon:         386,
		BadgeAddress:       0x02024A6C,
		BadgeCount:         8,
		PartyCountAddress:  0x02024284,
		PartyStartAddress:  0x02024285,
		PartySlotSize:      100,
		StarterAddress:     0x02024285,
		HallOfFameAddress:  0x02024A70,
		Bag:                BagLayout{Kind: BagStride4, Address: 0x02025A94, Capacity: Stride4BagCapacity},
	}
}

// kantoRemakeConfig shares the Hoenn layout except for the item pocket.
func kantoRemakeConfig() MemoryConfig {
	cfg := hoennConfig()
	cfg.Family = "Generation 3 (FireRed/LeafGreen)"
	cfg.Bag.Address = 0x02025E9C
	return cfg
}

// DefaultEntries returns a fresh copy of the built-in title table.
func DefaultEntries() map[string]MemoryConfig {
	return map[string]MemoryConfig{
		TitleRed:       kantoConfig(),
		TitleBlue:      kantoConfig(),
		TitleGold:      johtoConfig(),
		TitleSilver:    johtoConfig(),
		TitleCrystal:   johtoConfig(),
		TitleRuby:      hoennConfig(),
		TitleSapphire:  hoennConfig(),
		TitleEmerald:   hoennConfig(),
		TitleFireRed:   kantoRemakeConfig(),
		TitleLeafGreen: kantoRemakeConfig(),
	}
}

// Default builds the registry of the ten supported titles. The table is
// static, so a validation failure is a programming error.
func Default() *Registry {
	r, err := New(DefaultEntries())
	if err != nil {
		panic(err)
	}
	return r
}
