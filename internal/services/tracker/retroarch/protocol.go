package retroarch

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/pokeachieve/internal/platform/errors"
)

// Command verbs.
const (
	CommandGetStatus      = "GET_STATUS"
	CommandReadCoreMemory = "READ_CORE_MEMORY"
)

// Emulator states reported by GET_STATUS. StateDisconnected is local: it is
// used when no valid status reply arrived.
const (
	StatePlaying      = "PLAYING"
	StatePaused       = "PAUSED"
	StateContentless  = "CONTENTLESS"
	StateDisconnected = "DISCONNECTED"
)

const crcMarker = ",crc32="

// Status is a decoded GET_STATUS reply.
type Status struct {
	Raw      string
	State    string
	Platform string
	Title    string
	CRC32    string
}

// HasContent reports whether a game is loaded.
func (s Status) HasContent() bool {
	return (s.State == StatePlaying || s.State == StatePaused) && s.Title != ""
}

// FormatReadMemory renders a READ_CORE_MEMORY command. The address is
// written the way RetroArch echoes it back: lowercase hex, no prefix.
func FormatReadMemory(address uint32, count int) string {
	return fmt.Sprintf("%s %x %d", CommandReadCoreMemory, address, count)
}

// ParseReadMemory decodes `READ_CORE_MEMORY <addr> <hexbyte>...`. The echoed
// address must match address and at least count byte tokens must be present.
func ParseReadMemory(reply string, address uint32, count int) ([]byte, error) {
	fields := strings.Fields(reply)
	if len(fields) < 2 || fields[0] != CommandReadCoreMemory {
		return nil, protocolError("unexpected read reply", reply)
	}
	echoed, err := parseHex(fields[1], 32)
	if err != nil {
		return nil, protocolError("unparseable read address", reply)
	}
	if uint32(echoed) != address {
		return nil, protocolError(fmt.Sprintf("read reply for %#x, want %#x", echoed, address), reply)
	}
	tokens := fields[2:]
	if len(tokens) < count {
		return nil, protocolError(fmt.Sprintf("read reply has %d bytes, want %d", len(tokens), count), reply)
	}
	values := make([]byte, count)
	for i := 0; i < count; i++ {
		v, err := parseHex(tokens[i], 8)
		if err != nil {
			return nil, protocolError(fmt.Sprintf("unparseable byte %q", tokens[i]), reply)
		}
		values[i] = byte(v)
	}
	return values, nil
}

// ParseStatus decodes a GET_STATUS reply.
//
// RetroArch separates the state from the rest with a space
// (`GET_STATUS PLAYING game_boy,Title,crc32=...`); some builds use a comma.
// Both are accepted. The crc32 suffix is cut first, then the remainder is
// split on its first comma only, because titles carry commas of their own
// ("Pokemon - Emerald Version (USA, Europe)").
func ParseStatus(reply string) (Status, error) {
	raw := strings.TrimSpace(reply)
	rest, ok := strings.CutPrefix(raw, CommandGetStatus)
	if !ok {
		return Status{}, protocolError("unexpected status reply", reply)
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return Status{}, protocolError("empty status reply", reply)
	}

	status := Status{Raw: raw}
	if before, crc, found := strings.Cut(rest, crcMarker); found {
		rest = before
		status.CRC32 = strings.TrimSpace(crc)
	}

	end := strings.IndexAny(rest, " ,")
	if end < 0 {
		status.State = rest
		return status, nil
	}
	status.State = rest[:end]
	rest = strings.TrimSpace(rest[end+1:])

	platform, title, found := strings.Cut(rest, ",")
	status.Platform = strings.TrimSpace(platform)
	if found {
		status.Title = strings.TrimSpace(title)
	}
	return status, nil
}

func parseHex(token string, bits int) (uint64, error) {
	token = strings.TrimPrefix(strings.TrimPrefix(token, "0x"), "0X")
	return strconv.ParseUint(token, 16, bits)
}

func protocolError(message, reply string) error {
	return apperrors.WithMetadata(apperrors.CodeProtocol, message, map[string]string{"reply": reply})
}
