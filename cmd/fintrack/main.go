package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/core"
	"fintrack/internal/engine"
	applog "fintrack/internal/log"

	"github.com/google/subcommands"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		cli.Fatal("configuration", err)
	}
	logger, err := cli.SetupLogger(cfg, applog.ComponentCLI, os.Stderr)
	if err != nil {
		cli.Fatal("logging", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal("backend", err)
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal("backend", err)
	}

	app := &cli.App{
		Tracker:  engine.NewTracker(res.Repository, engine.Options{Publisher: res.Publisher}),
		Exporter: res.Exporter,
		Clock:    core.SystemClock{},
		Currency: cfg.Currency,
	}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cli.Register(commander, app)

	flag.Parse()
	status := commander.Execute(ctx)

	if err := res.Cleanup(); err != nil {
		logger.WarnContext(ctx, "Cleanup failed", applog.FieldError, err)
	}
	stop()
	os.Exit(int(status))
}
