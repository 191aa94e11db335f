// Package main runs a one-shot RetroArch connectivity probe.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	probecmd "github.com/louisbranch/pokeachieve/internal/cmd/probe"
	"github.com/louisbranch/pokeachieve/internal/platform/config"
)

func main() {
	cfg, err := probecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.ExitUsagef("parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := probecmd.Run(ctx, cfg, os.Stdout); err != nil {
		stop()
		config.Exitf("probe: %v", err)
	}
}
