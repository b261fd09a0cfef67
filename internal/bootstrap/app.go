package bootstrap

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"trendgrid/internal/config"
	"trendgrid/internal/core"

	"golang.org/x/sync/errgroup"
)

// App holds the loaded configuration and core dependencies
type App struct {
	Cfg    *config.Config
	Logger core.ILogger
}

// NewApp creates an App from already constructed dependencies
func NewApp(cfg *config.Config, logger core.ILogger) *App {
	return &App{
		Cfg:    cfg,
		Logger: logger.WithField("component", "app"),
	}
}

// Runner is an interface for components that can be run and stopped gracefully.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// Run installs signal handling and runs main with the auxiliary runners.
// When main returns, the auxiliary runners are cancelled; main's error is returned.
func (a *App) Run(main Runner, aux ...Runner) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx, main, aux...)
}

// RunContext is Run with a caller supplied parent context
func (a *App) RunContext(parent context.Context, main Runner, aux ...Runner) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	a.Logger.Info("Starting application", "aux_runners", len(aux))

	var mainErr error
	g.Go(func() error {
		defer cancel()
		mainErr = main.Run(ctx)
		return mainErr
	})

	for _, r := range aux {
		g.Go(func() error {
			return r.Run(ctx)
		})
	}

	err := g.Wait()
	if mainErr != nil && !errors.Is(mainErr, context.Canceled) {
		err = mainErr
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error("Application stopped with error", "error", err)
		return err
	}

	a.Logger.Info("Application shut down gracefully")
	return nil
}
