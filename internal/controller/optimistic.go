package controller

import (
	"context"

	"go.uber.org/zap"

	"github.com/paylume/productsync/internal/events"
	"github.com/paylume/productsync/internal/metrics"
	"github.com/paylume/productsync/pkg/model"
)

// ToggleCommand is one optimistic mutation: Apply flips the view state
// immediately, Call confirms it remotely, Compensate restores the prior
// value when the call fails. Compensate is mandatory.
type ToggleCommand struct {
	Resource  model.ResourceType
	ProductID string

	// Persisted is false for drafts with no server identity; the remote
	// call is skipped and the optimistic value simply kept, since there is
	// nothing to reconcile against.
	Persisted bool

	Apply      func()
	Compensate func()
	Call       func(ctx context.Context) error

	SuccessMessage string
	FailureMessage string
}

// Toggler runs optimistic toggle mutations. The visible state is never out
// of sync with the server for longer than one round trip: a failure is
// always rolled back and surfaced, never silently dropped.
type Toggler struct {
	logger *zap.Logger
	bus    *events.Bus
}

// NewToggler creates a Toggler publishing notices on bus.
func NewToggler(logger *zap.Logger, bus *events.Bus) *Toggler {
	return &Toggler{logger: logger, bus: bus}
}

// Run executes cmd. The returned error is the remote call's error, already
// compensated and surfaced; most callers can ignore it.
func (t *Toggler) Run(ctx context.Context, cmd ToggleCommand) error {
	cmd.Apply()

	if !cmd.Persisted {
		return nil
	}

	if err := cmd.Call(ctx); err != nil {
		cmd.Compensate()
		metrics.OptimisticRollbacks.Inc()
		t.logger.Warn("optimistic.rolled_back",
			zap.String("resource", string(cmd.Resource)),
			zap.String("product", cmd.ProductID),
			zap.Error(err))
		t.bus.PublishNotice(events.Notice{
			Level:     events.LevelError,
			Message:   cmd.FailureMessage,
			Resource:  cmd.Resource,
			ProductID: cmd.ProductID,
		})
		return err
	}

	t.bus.PublishNotice(events.Notice{
		Level:     events.LevelSuccess,
		Message:   cmd.SuccessMessage,
		Resource:  cmd.Resource,
		ProductID: cmd.ProductID,
	})
	return nil
}
