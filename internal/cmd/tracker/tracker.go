// Package tracker parses tracker command flags and launches the tracker runtime.
package tracker

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	entrypoint "github.com/louisbranch/pokeachieve/internal/platform/cmd"
	trackerapp "github.com/louisbranch/pokeachieve/internal/services/tracker/app"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/retroarch"
)

// Config holds tracker command configuration. Environment variables carry
// the POKEACHIEVE_TRACKER_ prefix.
type Config struct {
	Host             string        `env:"HOST" envDefault:"127.0.0.1"`
	Port             int           `env:"PORT" envDefault:"55355"`
	Timeout          time.Duration `env:"TIMEOUT" envDefault:"500ms"`
	PollInterval     time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`
	JoinTimeout      time.Duration `env:"JOIN_TIMEOUT" envDefault:"2s"`
	FailureThreshold int           `env:"FAILURE_THRESHOLD" envDefault:"3"`
	ReconnectTimeout time.Duration `env:"RECONNECT_TIMEOUT" envDefault:"30s"`
	HealthAddr       string        `env:"HEALTH_ADDR"`
	JournalPath      string        `env:"JOURNAL_PATH" envDefault:"data/tracker.db"`
	JournalRetention time.Duration `env:"JOURNAL_RETENTION" envDefault:"168h"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfigFromArgs(&cfg, entrypoint.ServiceTracker, fs, args, bindFlags); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func bindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Host, "host", cfg.Host, "The RetroArch network command host")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The RetroArch network command port")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Wait for one emulator reply")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Delay between poll ticks")
	fs.DurationVar(&cfg.JoinTimeout, "join-timeout", cfg.JoinTimeout, "Wait for the poll loop to exit on shutdown")
	fs.IntVar(&cfg.FailureThreshold, "failure-threshold", cfg.FailureThreshold, "Unanswered commands before the emulator counts as unreachable")
	fs.DurationVar(&cfg.ReconnectTimeout, "reconnect-timeout", cfg.ReconnectTimeout, "Retry budget for a lost emulator")
	fs.StringVar(&cfg.HealthAddr, "health-addr", cfg.HealthAddr, "The gRPC health server address (empty disables)")
	fs.StringVar(&cfg.JournalPath, "journal-path", cfg.JournalPath, "The failure journal SQLite path (empty disables)")
	fs.DurationVar(&cfg.JournalRetention, "journal-retention", cfg.JournalRetention, "Drop journal records older than this at startup")
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("failure threshold must be positive")
	}
	return nil
}

// warnings lists settings that work but degrade tracking.
func (c Config) warnings() []string {
	var out []string
	if c.Timeout >= c.PollInterval {
		out = append(out, fmt.Sprintf("timeout %s is not below poll interval %s; one unanswered read can stall a whole tick", c.Timeout, c.PollInterval))
	}
	return out
}

// Run starts the tracker runtime.
func Run(ctx context.Context, cfg Config) error {
	for _, warning := range cfg.warnings() {
		log.Printf("warning: %s", warning)
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceTracker, func(runCtx context.Context) error {
		return trackerapp.Run(runCtx, trackerapp.RuntimeConfig{
			Client: retroarch.Config{
				Host:    cfg.Host,
				Port:    cfg.Port,
				Timeout: cfg.Timeout,
			},
			PollInterval:     cfg.PollInterval,
			JoinTimeout:      cfg.JoinTimeout,
			FailureThreshold: cfg.FailureThreshold,
			ReconnectTimeout: cfg.ReconnectTimeout,
			HealthAddr:       cfg.HealthAddr,
			JournalPath:      cfg.JournalPath,
			JournalRetention: cfg.JournalRetention,
		})
	})
}
