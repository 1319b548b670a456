// Command vibrapulse-analyze scores an ESP readings file from the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/vibrapulse/internal/cli"
	"github.com/okian/vibrapulse/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := cli.ParseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return 2
	}

	if err := logger.InitWith(os.Stderr, logger.FormatText); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	level := "warn"
	if cfg.Verbose {
		level = "debug"
	}
	_ = logger.SetLevelString(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		logger.Get().Error(ctx, "analysis failed", logger.Error(err))
		return 1
	}
	return 0
}
