package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"trendgrid/internal/config"
	"trendgrid/internal/mock"

	"github.com/stretchr/testify/assert"
)

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func TestRunContext_MainFinishCancelsAux(t *testing.T) {
	app := NewApp(config.DefaultConfig(), mock.NewLogger())
	auxStopped := make(chan struct{})

	err := app.RunContext(context.Background(),
		RunnerFunc(func(ctx context.Context) error { return nil }),
		RunnerFunc(func(ctx context.Context) error {
			defer close(auxStopped)
			return blockUntilDone(ctx)
		}),
	)
	assert.NoError(t, err)

	select {
	case <-auxStopped:
	case <-time.After(time.Second):
		t.Fatal("aux runner not cancelled")
	}
}

func TestRunContext_MainErrorWins(t *testing.T) {
	logger := mock.NewLogger()
	app := NewApp(config.DefaultConfig(), logger)
	boom := errors.New("connectivity lost")

	err := app.RunContext(context.Background(),
		RunnerFunc(func(ctx context.Context) error { return boom }),
		RunnerFunc(blockUntilDone),
	)
	assert.ErrorIs(t, err, boom)
	assert.True(t, logger.Contains("ERROR", "Application stopped with error"))
}

func TestRunContext_AuxFailureStopsMain(t *testing.T) {
	app := NewApp(config.DefaultConfig(), mock.NewLogger())
	listenErr := errors.New("address in use")

	err := app.RunContext(context.Background(),
		RunnerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
		RunnerFunc(func(ctx context.Context) error { return listenErr }),
	)
	assert.ErrorIs(t, err, listenErr)
}

func TestRunContext_ParentCancel(t *testing.T) {
	app := NewApp(config.DefaultConfig(), mock.NewLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := app.RunContext(ctx, RunnerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	assert.NoError(t, err)
}
