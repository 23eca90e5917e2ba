package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Run is the CLI entrypoint used by cmd/shopauth.
// It returns an error instead of calling os.Exit so defers still run.
func Run() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	log := NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, log)
	if err != nil {
		log.Error("app.init.fail", "err", err)
		return err
	}
	return a.Run(ctx)
}
