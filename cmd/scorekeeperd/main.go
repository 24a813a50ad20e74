package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"archery-scoring-service/internal/config"
	"archery-scoring-service/internal/logging"
	"archery-scoring-service/internal/server"
)

var build string
var appVersion = "v0.1.0-dev" + build

const configFlag = "config"

func main() {
	var configPath string
	app := &cli.App{
		Name:    "scorekeeperd",
		Usage:   "Local-first archery scoring daemon with deferred tournament sync",
		Version: appVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        configFlag,
				Aliases:     []string{"c"},
				Usage:       "Path to a YAML config file overlaying the environment",
				Destination: &configPath,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the scoring daemon and status server",
				Action: func(cCtx *cli.Context) error {
					return runDaemon(configPath)
				},
			},
			{
				Name:  "flush",
				Usage: "Drain the pending sync queue once and exit",
				Action: func(cCtx *cli.Context) error {
					return runFlush(configPath)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newLogger() *slog.Logger {
	return logging.NewLogger(logging.Config{
		Level:   os.Getenv("LOG_LEVEL"),
		Format:  os.Getenv("LOG_FORMAT"),
		Service: "archery-scoring-service",
		Version: appVersion,
	})
}

func runDaemon(configPath string) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	logger := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}
	srv.Run(ctx, stop)
	return nil
}

func runFlush(configPath string) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	logger := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}
	defer srv.Close()
	return srv.Flush(ctx)
}
