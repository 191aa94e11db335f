package probe

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	platformgrpc "github.com/louisbranch/pokeachieve/internal/platform/grpc"
	trackerapp "github.com/louisbranch/pokeachieve/internal/services/tracker/app"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/retroarch"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/storage"
	journalsqlite "github.com/louisbranch/pokeachieve/internal/services/tracker/storage/sqlite"
)

// startEmulator answers GET_STATUS with status and reads from memory.
func startEmulator(t *testing.T, status string, memory map[uint32]byte) (string, int) {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	go func() {
		buf := make([]byte, 1024)
		for {
			n, addr, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			fields := strings.Fields(string(buf[:n]))
			if len(fields) == 0 {
				continue
			}
			var reply string
			switch fields[0] {
			case retroarch.CommandGetStatus:
				reply = status
			case retroarch.CommandReadCoreMemory:
				start, _ := strconv.ParseUint(fields[1], 16, 32)
				count, _ := strconv.Atoi(fields[2])
				parts := []string{retroarch.CommandReadCoreMemory, fields[1]}
				for i := 0; i < count; i++ {
					parts = append(parts, fmt.Sprintf("%02x", memory[uint32(start)+uint32(i)]))
				}
				reply = strings.Join(parts, " ")
			default:
				continue
			}
			_, _ = conn.WriteTo([]byte(reply), addr)
		}
	}()
	udp := conn.LocalAddr().(*net.UDPAddr)
	return udp.IP.String(), udp.Port
}

func TestParseConfigDefaultsAndFlags(t *testing.T) {
	t.Setenv("POKEACHIEVE_PROBE_PORT", "55400")
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-address", "d356", "-count", "2"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 55400 {
		t.Fatalf("port = %d, want 55400", cfg.Port)
	}
	if cfg.Host != "127.0.0.1" {
		t.Fatalf("host = %q, want %q", cfg.Host, "127.0.0.1")
	}
	if cfg.Address != "d356" || cfg.Count != 2 {
		t.Fatalf("address = %q count = %d, want d356 and 2", cfg.Address, cfg.Count)
	}
	if cfg.JournalPath != "" || cfg.JournalLimit != 10 {
		t.Fatalf("journal = %q limit %d, want none and 10", cfg.JournalPath, cfg.JournalLimit)
	}
}

func TestParseConfigJournalFlags(t *testing.T) {
	t.Setenv("POKEACHIEVE_PROBE_JOURNAL", "env.db")
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-journal-limit", "3"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.JournalPath != "env.db" || cfg.JournalLimit != 3 {
		t.Fatalf("journal = %q limit %d, want env.db and 3", cfg.JournalPath, cfg.JournalLimit)
	}
}

func TestParseAddress(t *testing.T) {
	cases := []struct {
		in   string
		want uint32
		ok   bool
	}{
		{in: "d356", want: 0xD356, ok: true},
		{in: "0xD356", want: 0xD356, ok: true},
		{in: "0x02024285", want: 0x02024285, ok: true},
		{in: "zz", ok: false},
		{in: "0x1ffffffff", ok: false},
	}
	for _, tc := range cases {
		got, err := parseAddress(tc.in)
		if (err == nil) != tc.ok {
			t.Fatalf("parseAddress(%q) error = %v, want ok %v", tc.in, err, tc.ok)
		}
		if tc.ok && got != tc.want {
			t.Fatalf("parseAddress(%q) = %#x, want %#x", tc.in, got, tc.want)
		}
	}
}

func TestRunReportsKnownTitle(t *testing.T) {
	host, port := startEmulator(t, "GET_STATUS PLAYING game_boy,Pokemon - Red Version (USA, Europe) (SGB Enhanced),crc32=9f7fdd53",
		map[uint32]byte{0xD356: 0x07, 0xD2F7: 0x03, 0xD30A: 0x01})
	buf := &bytes.Buffer{}
	cfg := Config{Host: host, Port: port, Timeout: time.Second, Address: "0xd356", Count: 2}
	if err := Run(context.Background(), cfg, buf); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		": PLAYING",
		"layout: Pokemon Red",
		"badges: 3/8",
		"pokedex caught: 1/151",
		"pokedex seen: 2/151",
		"memory 0xd356: 07 00",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunReportsUnknownTitle(t *testing.T) {
	host, port := startEmulator(t, "GET_STATUS PAUSED game_boy,Tetris (World),crc32=46df91ad", nil)
	buf := &bytes.Buffer{}
	if err := Run(context.Background(), Config{Host: host, Port: port, Timeout: time.Second}, buf); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(buf.String(), "layout: none") {
		t.Fatalf("output = %q, want no layout", buf.String())
	}
}

func TestRunFailsWithoutEmulator(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	defer conn.Close()
	udp := conn.LocalAddr().(*net.UDPAddr)

	cfg := Config{Host: udp.IP.String(), Port: udp.Port, Timeout: 50 * time.Millisecond}
	if err := Run(context.Background(), cfg, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error when the emulator is silent")
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	if err := Run(context.Background(), Config{}, nil); err == nil {
		t.Fatal("expected error for nil output")
	}
	if err := Run(context.Background(), Config{Address: "nope", Count: 1}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for bad address")
	}
	if err := Run(context.Background(), Config{Address: "d356", Count: 0}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for zero count")
	}
}

func TestRunReportsTrackerHealth(t *testing.T) {
	host, port := startEmulator(t, "GET_STATUS CONTENTLESS", nil)
	reporter, err := platformgrpc.ListenHealth("127.0.0.1:0", trackerapp.HealthService)
	if err != nil {
		t.Fatalf("listen health: %v", err)
	}
	reporter.SetServing(trackerapp.HealthService, false)
	reporter.Start()
	defer reporter.Stop()

	buf := &bytes.Buffer{}
	cfg := Config{Host: host, Port: port, Timeout: time.Second, HealthAddr: reporter.Addr().String()}
	if err := Run(context.Background(), cfg, buf); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(buf.String(), "tracker.retroarch: NOT_SERVING") {
		t.Fatalf("output = %q, want NOT_SERVING health", buf.String())
	}

	reporter.SetServing(trackerapp.HealthService, true)
	buf.Reset()
	if err := Run(context.Background(), cfg, buf); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(buf.String(), "tracker.retroarch: SERVING") {
		t.Fatalf("output = %q, want SERVING health", buf.String())
	}
}

func TestRunListsJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := journalsqlite.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	for _, record := range []storage.FailureRecord{
		{Source: "127.0.0.1:55355", Kind: storage.KindConnectivityLost, Detail: "3 consecutive commands unanswered", CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{Source: "achievements", Kind: storage.KindCallbackError, Detail: "EVALUATION: bad tag", CreatedAt: time.Date(2026, 1, 2, 3, 5, 0, 0, time.UTC)},
	} {
		if err := store.RecordFailure(context.Background(), record); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close journal: %v", err)
	}

	host, port := startEmulator(t, "GET_STATUS CONTENTLESS", nil)
	buf := &bytes.Buffer{}
	cfg := Config{Host: host, Port: port, Timeout: time.Second, JournalPath: path, JournalLimit: 10}
	if err := Run(context.Background(), cfg, buf); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"2 recent failures",
		"2026-01-02T03:05:00Z callback_error achievements: EVALUATION: bad tag",
		"connectivity_lost 127.0.0.1:55355",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "callback_error") > strings.Index(out, "connectivity_lost") {
		t.Fatalf("journal not listed newest first:\n%s", out)
	}
}

func TestRunRejectsMissingJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")
	cfg := Config{JournalPath: path, JournalLimit: 10}
	if err := Run(context.Background(), cfg, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for a missing journal")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("missing journal was created: %v", err)
	}
}
