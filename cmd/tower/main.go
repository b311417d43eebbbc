package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/tower/internal/assets"
	"github.com/aristath/tower/internal/config"
	"github.com/aristath/tower/internal/logging"
	"github.com/aristath/tower/internal/persistence"
	"github.com/aristath/tower/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Create signal-aware context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	globalPath, projectPath, err := config.DefaultPaths()
	if err != nil {
		return err
	}
	cfg, err := config.Load(globalPath, projectPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// The TUI owns the terminal, so logs go to a file
	logger, logFile, err := logging.OpenFile(cfg.Log)
	if err != nil {
		return err
	}
	defer logFile.Close()

	store, err := persistence.NewSQLiteStore(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening profile: %w", err)
	}
	defer store.Close()

	// First run: leave an editable config and a playable asset tree behind
	if wrote, err := config.WriteStarter(globalPath); err != nil {
		logger.Warn("failed to write starter config", "path", globalPath, "err", err)
	} else if wrote {
		logger.Info("wrote starter config", "path", globalPath)
	}
	if err := assets.EnsureLayout(cfg.AssetRoot, floorIDs(cfg)); err != nil {
		return fmt.Errorf("preparing assets: %w", err)
	}

	a, err := newApp(ctx, cfg, logger, store)
	if err != nil {
		return err
	}
	defer a.bus.Close()

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr, a.registry, logger)
	}

	model := tui.New(a.bus, a.status)

	// Start Bubble Tea program in a goroutine so main can handle shutdown
	p := tea.NewProgram(model, tea.WithAltScreen())
	a.panels.Attach(p)

	errChan := make(chan error, 1)
	go func() {
		_, err := p.Run()
		errChan <- err
	}()

	gameCtx, cancelGame := context.WithCancel(ctx)
	defer cancelGame()

	go a.router.Run(gameCtx, a.triggers)
	go func() {
		if err := a.orch.Start(gameCtx); err != nil {
			logger.Error("failed to restore last floor", "err", err)
		}
	}()

	// Handle shutdown
	var runErr error
	select {
	case err := <-errChan:
		// Normal TUI exit (user pressed 'q')
		runErr = err
	case <-ctx.Done():
		// Restore default signal handling (double Ctrl+C = force exit)
		stop()
		logger.Info("shutdown signal received, cleaning up")

		p.Quit()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		select {
		case err := <-errChan:
			if err != nil {
				logger.Error("TUI exit error", "err", err)
			}
		case <-shutdownCtx.Done():
			logger.Warn("shutdown timeout exceeded, forcing exit")
		}
	}

	cancelGame()
	if err := a.finish(5 * time.Second); err != nil {
		logger.Error("failed to save profile", "err", err)
		if runErr == nil {
			runErr = err
		}
	}

	logger.Info("shutdown complete")
	return runErr
}
