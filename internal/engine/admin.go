package engine

import (
	"context"
	"log/slog"

	"github.com/Guizzs26/suya-queue/internal/models"
	"github.com/Guizzs26/suya-queue/pkg/metrics"
)

// Next advances the serving value by one customer
func (e *Engine) Next(ctx context.Context) (string, error) {
	prev := e.serving.Value()
	e.serving.Next(e.now())
	return e.afterOperator(ctx, prev, models.EventServingAdvanced), nil
}

// Set moves the serving value to an explicit number. Moving backwards opens a new epoch so the
// monotonic merge does not immediately undo it.
func (e *Engine) Set(ctx context.Context, value string) (string, error) {
	n, err := models.ParseQueueNumber(value)
	if err != nil {
		return "", err
	}

	prev := e.serving.Value()
	cur, moved := e.serving.AdvanceTo(n, e.now())
	switch {
	case moved:
		return e.afterOperator(ctx, prev, models.EventServingAdvanced), nil
	case cur.Suffix() == n:
		return cur.Value, nil
	default:
		e.serving.Rebase(n, e.now())
		return e.afterOperator(ctx, prev, models.EventServingRebased), nil
	}
}

// Reset returns the board to SU-000, forgets this session's number and pending registration,
// and invalidates any cycle that started before it.
func (e *Engine) Reset(ctx context.Context) error {
	now := e.now()

	e.bindMu.Lock()
	defer e.bindMu.Unlock()

	e.mu.Lock()
	e.resetEpoch.Add(1)
	prev := e.serving.Value()
	e.serving.Rebase(0, now)
	e.snapshot = Snapshot{
		Sequence:  e.snapshot.Sequence,
		Serving:   e.serving.Value(),
		UpdatedAt: now,
	}
	e.outcomes = make(map[string]PendingOutcome)
	e.mu.Unlock()

	metrics.ActiveQueueLength.Set(0)
	metrics.ServingNumber.Set(0)
	metrics.ServingUpdates.WithLabelValues("admin").Inc()

	l := e.logger.With("op", "reset")
	l.Warn("Queue reset", "previous", prev)

	if err := e.session.Clear(ctx); err != nil {
		return err
	}
	e.persist(ctx, l)
	e.writeStatus(ctx, l, models.ZeroServing)
	e.emit(ctx, models.QueueEvent{Type: models.EventQueueReset, Serving: models.ZeroServing, Previous: prev, Source: "admin"})
	return nil
}

func (e *Engine) afterOperator(ctx context.Context, prev string, typ models.EventType) string {
	cur := e.rederive()
	metrics.ServingUpdates.WithLabelValues("admin").Inc()

	l := e.logger.With("op", string(typ))
	l.Info("Serving value set by operator", "from", prev, "to", cur)

	e.persist(ctx, l)
	e.writeStatus(ctx, l, cur)
	e.emit(ctx, models.QueueEvent{Type: typ, Serving: cur, Previous: prev, Source: "admin"})
	return cur
}

func (e *Engine) writeStatus(ctx context.Context, l *slog.Logger, value string) {
	if e.statusWriter == nil {
		return
	}
	if err := e.statusWriter.WriteServing(ctx, value); err != nil {
		l.Warn("Remote status write failed, other devices will lag", "error", err, "value", value)
	}
}
