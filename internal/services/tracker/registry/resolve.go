package registry

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Resolve maps a title as the emulator reports it, for example
// "Pokémon - Emerald Version (USA, Europe)", to a registry key. Both sides
// are folded to lowercase ASCII words with region and revision groups
// removed. A key matches when its words appear in the reported title, or
// failing that when its last word does. Longer keys are tried first.
//
// platform is the system name from the status reply. When it names a known
// handheld, last-word matches must agree with it, so a spin-off such as
// "Pokemon Mystery Dungeon - Red Rescue Team" on the GBA never resolves to
// Pokemon Red. An empty or unknown platform skips the check.
func (r *Registry) Resolve(reported, platform string) (string, MemoryConfig, bool) {
	if r == nil {
		return "", MemoryConfig{}, false
	}
	if cfg, ok := r.Lookup(reported); ok {
		return reported, cfg, true
	}
	cleaned := " " + NormalizeTitle(reported) + " "
	if strings.TrimSpace(cleaned) == "" {
		return "", MemoryConfig{}, false
	}
	for _, key := range r.byLength {
		if strings.Contains(cleaned, " "+NormalizeTitle(key)+" ") {
			cfg, _ := r.Lookup(key)
			return key, cfg, true
		}
	}
	system, known := PlatformOf(platform)
	for _, key := range r.byLength {
		words := strings.Fields(NormalizeTitle(key))
		if len(words) == 0 {
			continue
		}
		if !strings.Contains(cleaned, " "+words[len(words)-1]+" ") {
			continue
		}
		cfg, _ := r.Lookup(key)
		if known && !runsOn(cfg.Platform, system) {
			continue
		}
		return key, cfg, true
	}
	return "", MemoryConfig{}, false
}

// PlatformOf maps a RetroArch system name, such as "game_boy_advance" or
// "Nintendo - Game Boy Color", to a Platform.
func PlatformOf(system string) (Platform, bool) {
	switch NormalizeTitle(system) {
	case "gb", "game boy", "gameboy", "nintendo game boy":
		return PlatformGameBoy, true
	case "gbc", "game boy color", "gameboy color", "nintendo game boy color":
		return PlatformGameBoyColor, true
	case "gba", "game boy advance", "gameboy advance", "nintendo game boy advance":
		return PlatformGameBoyAdvance, true
	}
	return "", false
}

// runsOn reports whether a layout for platform can be loaded on system. The
// Game Boy Color also plays original Game Boy cartridges.
func runsOn(platform, system Platform) bool {
	return platform == system || (system == PlatformGameBoyColor && platform == PlatformGameBoy)
}

// NormalizeTitle folds case, strips diacritics, drops bracketed groups such
// as "(USA, Europe)" or "[!]" and collapses everything else into
// space-separated words.
func NormalizeTitle(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, title)
	if err != nil {
		stripped = title
	}
	folded := cases.Fold().String(stripped)

	var b strings.Builder
	depth := 0
	for _, r := range folded {
		switch {
		case r == '(' || r == '[':
			depth++
			b.WriteByte(' ')
		case r == ')' || r == ']':
			if depth > 0 {
				depth--
			}
			b.WriteByte(' ')
		case depth > 0:
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
