// Command bonk-tui plays Shiba Bonk in the terminal against a local score store.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/okian/bonk/internal/adapters/repository"
	"github.com/okian/bonk/internal/adapters/tui"
	app "github.com/okian/bonk/internal/app"
	"github.com/okian/bonk/internal/config"
	"github.com/okian/bonk/pkg/logger"
)

const logFilePermission = 0600

func main() {
	logFile := flag.String("log", "bonk-tui.log", "Log file; the terminal itself is used for the game")
	flag.Parse()

	if err := run(*logFile); err != nil {
		os.Stderr.WriteString("bonk-tui: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(logFile string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()
	if err := logger.Init(logger.WithOutput(file), logger.WithFormat(cfg.LogFormat)); err != nil {
		return err
	}
	_ = logger.SetLevelString(cfg.LogLevel)
	log := logger.Get()

	store, err := repository.Open(ctx, cfg.StoreDriver, cfg.DBPath, repository.WithLogger(log.Named("store")))
	if err != nil {
		return err
	}

	view := tui.NewView(cfg.SlotCount)
	svc := app.New(
		app.WithLogger(log),
		app.WithStore(store),
		app.WithRenderer(view),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithInitialTheme(cfg.DefaultTheme),
		app.WithSlots(cfg.SlotCount),
		app.WithRoundSeconds(cfg.RoundSeconds),
		app.WithSpawnDelay(cfg.MinSpawnDelay(), cfg.MaxSpawnDelay()),
		app.WithTargetWindow(cfg.TargetWindow()),
		app.WithPromptDelay(cfg.PromptDelay()),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	log.Info(ctx, "terminal session started", logger.String("store", cfg.StoreDriver))
	return tui.NewApp(screen, view, svc, log.Named("tui")).Run(ctx)
}
