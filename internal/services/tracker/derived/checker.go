// Package derived answers progress questions that need more than one memory
// read: pokedex bitmaps, badge bytes, Elite Four flags, party and bag scans.
//
// Every check is fail-closed. A failed read anywhere in a check makes the
// check false; nothing here returns an error.
package derived

import (
	"context"
	"math/bits"
	"slices"

	"github.com/louisbranch/pokeachieve/internal/services/tracker/registry"
)

// MemoryReader reads one byte of emulator memory.
type MemoryReader interface {
	ReadByte(ctx context.Context, address uint32) (byte, bool)
}

// Checker runs derived checks for one title layout.
type Checker struct {
	reader MemoryReader
	cfg    registry.MemoryConfig
}

// NewChecker binds a reader to a resolved layout.
func NewChecker(reader MemoryReader, cfg registry.MemoryConfig) *Checker {
	return &Checker{reader: reader, cfg: cfg}
}

// Config returns the layout the checker reads.
func (c *Checker) Config() registry.MemoryConfig {
	return c.cfg
}

func (c *Checker) read(ctx context.Context, address uint32) (byte, bool) {
	if c == nil || c.reader == nil || address == 0 {
		return 0, false
	}
	return c.reader.ReadByte(ctx, address)
}

// readLE16 reads a little-endian 16-bit value.
func (c *Checker) readLE16(ctx context.Context, address uint32) (uint16, bool) {
	lo, ok := c.read(ctx, address)
	if !ok {
		return 0, false
	}
	hi, ok := c.read(ctx, address+1)
	if !ok {
		return 0, false
	}
	return uint16(lo) | uint16(hi)<<8, true
}

// ReadPokedexCaught returns the caught species ids in ascending order.
func (c *Checker) ReadPokedexCaught(ctx context.Context) []int {
	return c.readBitmap(ctx, c.cfg.PokedexCaughtStart)
}

// ReadPokedexSeen returns the seen species ids in ascending order, or none
// when the layout has no seen bitmap.
func (c *Checker) ReadPokedexSeen(ctx context.Context) []int {
	return c.readBitmap(ctx, c.cfg.PokedexSeenStart)
}

// readBitmap decodes bit i of byte b as species b*8+i+1. Unreadable bytes
// count as all clear and ids past MaxPokemon are dropped.
func (c *Checker) readBitmap(ctx context.Context, start uint32) []int {
	if start == 0 || c.cfg.MaxPokemon <= 0 {
		return nil
	}
	var ids []int
	for b := 0; b < c.cfg.PokedexBytes(); b++ {
		value, ok := c.read(ctx, start+uint32(b))
		if !ok {
			continue
		}
		for i := 0; i < 8; i++ {
			id := b*8 + i + 1
			if id > c.cfg.MaxPokemon {
				break
			}
			if value&(1<<i) != 0 {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// CaughtCount returns the number of caught species.
func (c *Checker) CaughtCount(ctx context.Context) int {
	return len(c.ReadPokedexCaught(ctx))
}

// BadgeCount returns how many of the layout's badge bits are set.
func (c *Checker) BadgeCount(ctx context.Context) (int, bool) {
	value, ok := c.read(ctx, c.cfg.BadgeAddress)
	if !ok {
		return 0, false
	}
	return bits.OnesCount8(value & c.cfg.AllBadgesValue()), true
}

// CheckAllBadges is true only when the badge byte is exactly the full set:
// missing badges and stray high bits both fail.
func (c *Checker) CheckAllBadges(ctx context.Context) bool {
	if c.cfg.BadgeCount <= 0 || c.cfg.BadgeCount > 8 {
		return false
	}
	value, ok := c.read(ctx, c.cfg.BadgeAddress)
	return ok && value == c.cfg.AllBadgesValue()
}

// CheckChampionDefeated reads the champion flag, or the hall of fame counter
// on layouts without one.
func (c *Checker) CheckChampionDefeated(ctx context.Context) bool {
	address := c.cfg.ChampionAddress
	if address == 0 {
		address = c.cfg.HallOfFameAddress
	}
	value, ok := c.read(ctx, address)
	return ok && value > 0
}

// CheckEliteFourMember reports whether the named roster member is beaten.
func (c *Checker) CheckEliteFourMember(ctx context.Context, name string) bool {
	member, ok := c.cfg.EliteFourMember(name)
	if !ok {
		return false
	}
	value, ok := c.read(ctx, member.Address)
	return ok && value > 0
}

// EliteFourCount returns how many roster members are beaten.
func (c *Checker) EliteFourCount(ctx context.Context) int {
	n := 0
	for _, member := range c.cfg.EliteFour {
		if value, ok := c.read(ctx, member.Address); ok && value > 0 {
			n++
		}
	}
	return n
}

// CheckAllEliteFour requires every roster flag. Layouts without per-member
// flags fall back to the champion check.
func (c *Checker) CheckAllEliteFour(ctx context.Context) bool {
	if len(c.cfg.EliteFour) == 0 {
		return c.CheckChampionDefeated(ctx)
	}
	for _, member := range c.cfg.EliteFour {
		value, ok := c.read(ctx, member.Address)
		if !ok || value == 0 {
			return false
		}
	}
	return true
}

// CheckLegendaryCaught reports whether the named legendary is in the
// caught bitmap.
func (c *Checker) CheckLegendaryCaught(ctx context.Context, name string) bool {
	id, ok := LegendaryID(name)
	if !ok {
		return false
	}
	return slices.Contains(c.ReadPokedexCaught(ctx), id)
}

// CheckAllLegendaryBirds requires Articuno, Zapdos and Moltres.
func (c *Checker) CheckAllLegendaryBirds(ctx context.Context) bool {
	return countCaught(c.ReadPokedexCaught(ctx), legendaryBirds) == len(legendaryBirds)
}

// CheckAllLegendaries requires every legendary of the layout's generation.
func (c *Checker) CheckAllLegendaries(ctx context.Context) bool {
	set := generationLegendaries[c.cfg.Generation]
	if len(set) == 0 {
		return false
	}
	return countCaught(c.ReadPokedexCaught(ctx), set) == len(set)
}

func countCaught(caught, want []int) int {
	n := 0
	for _, id := range want {
		if _, found := slices.BinarySearch(caught, id); found {
			n++
		}
	}
	return n
}

// CheckFirstSteps is true when the party holds 1 to 6 members and the lead
// is one of the generation's starters.
func (c *Checker) CheckFirstSteps(ctx context.Context) bool {
	count, ok := c.read(ctx, c.cfg.PartyCountAddress)
	if !ok || count < 1 || count > 6 {
		return false
	}
	address := c.cfg.StarterAddress
	if address == 0 {
		address = c.cfg.PartyStartAddress
	}
	species, ok := c.readSpecies(ctx, address)
	if !ok {
		return false
	}
	return slices.Contains(generationStarters[c.cfg.Generation], species)
}

// readSpecies reads a species id: one byte on the handhelds, a
// little-endian halfword on the GBA.
func (c *Checker) readSpecies(ctx context.Context, address uint32) (int, bool) {
	if c.cfg.Generation >= 3 {
		v, ok := c.readLE16(ctx, address)
		return int(v), ok
	}
	v, ok := c.read(ctx, address)
	return int(v), ok
}

// CheckPokemonMaster requires all badges, the champion and a full pokedex,
// checked in that order.
func (c *Checker) CheckPokemonMaster(ctx context.Context) bool {
	if !c.CheckAllBadges(ctx) {
		return false
	}
	if !c.CheckChampionDefeated(ctx) {
		return false
	}
	return c.CaughtCount(ctx) >= c.cfg.MaxPokemon
}

// CheckHasHm scans the item pocket for the named HM.
func (c *Checker) CheckHasHm(ctx context.Context, name string) bool {
	item, ok := HMItem(c.cfg.Generation, name)
	if !ok {
		return false
	}
	switch c.cfg.Bag.Kind {
	case registry.BagFlat:
		return c.scanFlatBag(ctx, item)
	case registry.BagStride4:
		return c.scanStride4Bag(ctx, item)
	default:
		return false
	}
}

// scanFlatBag walks [count][id qty]... and stops at the first match or the
// declared count. A count above capacity invalidates the pocket.
func (c *Checker) scanFlatBag(ctx context.Context, item uint16) bool {
	bag := c.cfg.Bag
	count, ok := c.read(ctx, bag.Address)
	if !ok || int(count) > bag.Capacity {
		return false
	}
	for i := 0; i < int(count); i++ {
		id, ok := c.read(ctx, bag.Address+1+uint32(i)*2)
		if ok && uint16(id) == item {
			return true
		}
	}
	return false
}

// scanStride4Bag walks 4-byte slots starting 4 bytes past the count.
func (c *Checker) scanStride4Bag(ctx context.Context, item uint16) bool {
	bag := c.cfg.Bag
	count, ok := c.read(ctx, bag.Address)
	if !ok || int(count) > bag.Capacity {
		return false
	}
	for i := 0; i < int(count); i++ {
		id, ok := c.readLE16(ctx, bag.Address+4+uint32(i)*4)
		if ok && id == item {
			return true
		}
	}
	return false
}
