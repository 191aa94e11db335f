// Package cmd holds the startup plumbing shared by tracker commands.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/pokeachieve/internal/platform/config"
	"github.com/louisbranch/pokeachieve/internal/platform/otel"
	"github.com/louisbranch/pokeachieve/internal/platform/timeouts"
)

// EnvPrefix is prepended to every tracker environment variable.
const EnvPrefix = "POKEACHIEVE_"

// Service identifiers for command startup telemetry and CLI naming consistency.
const (
	ServiceTracker = "tracker"
	ServiceProbe   = "probe"
)

// RunOptions controls shared entrypoint behavior for service commands.
type RunOptions struct {
	// ShutdownTimeout sets the timeout used when stopping telemetry.
	ShutdownTimeout time.Duration
}

// ParseServiceConfig loads environment defaults for one service into cfg.
// Variables are named POKEACHIEVE_<SERVICE>_<TAG>.
func ParseServiceConfig[T any](cfg *T, service string) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	service = strings.TrimSpace(service)
	if service == "" {
		return errors.New("service name is required")
	}
	return config.ParseEnvWithPrefix(cfg, EnvPrefix+strings.ToUpper(service))
}

// ParseArgs parses command-line flags.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// ParseConfigFromArgs loads the service environment into cfg, lets bind
// register flags that default to those values and then parses args, so a
// flag beats its variable and a variable beats its envDefault.
func ParseConfigFromArgs[T any](cfg *T, service string, fs *flag.FlagSet, args []string, bind func(*flag.FlagSet, *T)) error {
	if err := ParseServiceConfig(cfg, service); err != nil {
		return err
	}
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if bind != nil {
		bind(fs, cfg)
	}
	return ParseArgs(fs, args)
}

// RunWithTelemetry configures observability and executes a service run loop.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context) error) error {
	return RunWithTelemetryAndOptions(ctx, service, RunOptions{}, run)
}

// RunWithTelemetryAndOptions configures observability and executes a service run loop.
func RunWithTelemetryAndOptions(ctx context.Context, service string, options RunOptions, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return fmt.Errorf("service name is required")
	}
	if run == nil {
		return fmt.Errorf("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := otel.Setup(ctx, "pokeachieve-"+service)
	if err != nil {
		return err
	}
	defer func() {
		shutdownTimeout := options.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = timeouts.Shutdown
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("%s otel shutdown: %v", service, err)
		}
	}()
	return run(ctx)
}
