// Package probe checks that RetroArch answers network commands and reports
// what the tracker would make of the loaded content.
package probe

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/pokeachieve/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/pokeachieve/internal/platform/grpc"
	trackerapp "github.com/louisbranch/pokeachieve/internal/services/tracker/app"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/derived"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/registry"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/retroarch"
	journalsqlite "github.com/louisbranch/pokeachieve/internal/services/tracker/storage/sqlite"
)

// Config holds probe command configuration. Environment variables carry the
// POKEACHIEVE_PROBE_ prefix.
type Config struct {
	Host         string        `env:"HOST" envDefault:"127.0.0.1"`
	Port         int           `env:"PORT" envDefault:"55355"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"1s"`
	Address      string        `env:"ADDRESS"`
	Count        int           `env:"COUNT" envDefault:"1"`
	HealthAddr   string        `env:"HEALTH_ADDR"`
	JournalPath  string        `env:"JOURNAL"`
	JournalLimit int           `env:"JOURNAL_LIMIT" envDefault:"10"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfigFromArgs(&cfg, entrypoint.ServiceProbe, fs, args, bindFlags); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func bindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Host, "host", cfg.Host, "The RetroArch network command host")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The RetroArch network command port")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Wait for one emulator reply")
	fs.StringVar(&cfg.Address, "address", cfg.Address, "Memory address to dump, e.g. 0xd356")
	fs.IntVar(&cfg.Count, "count", cfg.Count, "Number of bytes to dump at -address")
	fs.StringVar(&cfg.HealthAddr, "health-addr", cfg.HealthAddr, "Tracker gRPC health address to query")
	fs.StringVar(&cfg.JournalPath, "journal", cfg.JournalPath, "Tracker failure journal to list")
	fs.IntVar(&cfg.JournalLimit, "journal-limit", cfg.JournalLimit, "Number of journal records to list")
}

// Run probes the emulator and writes a report to out.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		return errors.New("output is required")
	}
	var address uint32
	if cfg.Address != "" {
		parsed, err := parseAddress(cfg.Address)
		if err != nil {
			return err
		}
		address = parsed
		if cfg.Count <= 0 {
			return errors.New("count must be greater than zero")
		}
	}

	if cfg.JournalPath != "" {
		if err := reportJournal(ctx, out, cfg.JournalPath, cfg.JournalLimit); err != nil {
			return err
		}
	}

	client := retroarch.NewClient(retroarch.Config{Host: cfg.Host, Port: cfg.Port, Timeout: cfg.Timeout})
	if err := client.Connect(); err != nil {
		return fmt.Errorf("connect retroarch: %w", err)
	}
	defer client.Disconnect()

	status := client.GetStatus(ctx)
	if status.State == retroarch.StateDisconnected {
		return fmt.Errorf("retroarch at %s did not answer %s", client.Addr(), retroarch.CommandGetStatus)
	}
	fmt.Fprintf(out, "retroarch %s: %s\n", client.Addr(), status.State)
	if status.HasContent() {
		fmt.Fprintf(out, "content: %s (%s)\n", status.Title, status.Platform)
		reportLayout(ctx, out, client, status)
	}

	if cfg.Address != "" {
		data, ok := client.ReadMemory(ctx, address, cfg.Count)
		if !ok {
			return fmt.Errorf("read %d bytes at %#x: no response", cfg.Count, address)
		}
		fmt.Fprintf(out, "memory %#x: % x\n", address, data)
	}

	if cfg.HealthAddr != "" {
		if err := reportHealth(ctx, out, cfg.HealthAddr, cfg.Timeout); err != nil {
			return err
		}
	}
	return nil
}

func reportLayout(ctx context.Context, out io.Writer, client *retroarch.Client, status retroarch.Status) {
	key, layout, ok := registry.Default().Resolve(status.Title, status.Platform)
	if !ok {
		fmt.Fprintln(out, "layout: none, achievements unavailable")
		return
	}
	fmt.Fprintf(out, "layout: %s (%s)\n", key, layout.Family)
	checker := derived.NewChecker(client, layout)
	if badges, ok := checker.BadgeCount(ctx); ok {
		fmt.Fprintf(out, "badges: %d/%d\n", badges, layout.BadgeCount)
	}
	fmt.Fprintf(out, "pokedex caught: %d/%d\n", checker.CaughtCount(ctx), layout.MaxPokemon)
	if layout.PokedexSeenStart != 0 {
		fmt.Fprintf(out, "pokedex seen: %d/%d\n", len(checker.ReadPokedexSeen(ctx)), layout.MaxPokemon)
	}
}

// reportHealth waits up to timeout for the tracker to report SERVING. A
// tracker that never does, or cannot be reached, is reported as
// NOT_SERVING with the reason.
func reportHealth(ctx context.Context, out io.Writer, addr string, timeout time.Duration) error {
	conn, err := platformgrpc.DialWithHealth(ctx, addr, trackerapp.HealthService, timeout, nil)
	var dialErr *platformgrpc.DialError
	if errors.As(err, &dialErr) && dialErr.Stage == platformgrpc.DialStageHealth {
		fmt.Fprintf(out, "tracker %s: NOT_SERVING (%v)\n", trackerapp.HealthService, dialErr.Err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("dial tracker health: %w", err)
	}
	defer conn.Close()
	fmt.Fprintf(out, "tracker %s: SERVING\n", trackerapp.HealthService)
	return nil
}

func reportJournal(ctx context.Context, out io.Writer, path string, limit int) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open failure journal: %w", err)
	}
	store, err := journalsqlite.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("open failure journal: %w", err)
	}
	defer store.Close()
	records, err := store.ListFailures(ctx, limit)
	if err != nil {
		return fmt.Errorf("list failures: %w", err)
	}
	fmt.Fprintf(out, "journal %s: %d recent failures\n", path, len(records))
	for _, record := range records {
		fmt.Fprintf(out, "  %s %s %s: %s\n", record.CreatedAt.Format(time.RFC3339), record.Kind, record.Source, record.Detail)
	}
	return nil
}

func parseAddress(value string) (uint32, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "0x") && !strings.HasPrefix(value, "0X") {
		value = "0x" + value
	}
	parsed, err := strconv.ParseUint(value, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("parse address %q: %w", value, err)
	}
	return uint32(parsed), nil
}
