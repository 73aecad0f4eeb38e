package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Guizzs26/suya-queue/internal/models"
	"github.com/Guizzs26/suya-queue/internal/store"
	"github.com/Guizzs26/suya-queue/pkg/metrics"
)

type PendingStatus string

const (
	PendingWaiting    PendingStatus = "pending"
	PendingMatched    PendingStatus = "matched"
	PendingTimeout    PendingStatus = "timeout"
	PendingSuperseded PendingStatus = "superseded"
)

// outcomeRetention bounds how long resolved outcomes stay queryable
const outcomeRetention = 10 * time.Minute

// PendingOutcome is what a client polling its registration sees
type PendingOutcome struct {
	ID          string        `json:"id"`
	Status      PendingStatus `json:"status"`
	QueueNumber string        `json:"queue_number,omitempty"`
	Message     string        `json:"message,omitempty"`
	SubmittedAt time.Time     `json:"submitted_at"`
	ResolvedAt  time.Time     `json:"resolved_at,omitzero"`
}

// Register dispatches a registration and records it as pending for this session.
// The queue number is not known yet: it is assigned by the spreadsheet and bound once a later cycle matches it.
// The session holds one pending registration, so an earlier one still waiting is superseded.
func (e *Engine) Register(ctx context.Context, req models.RegistrationRequest) (models.PendingRegistration, error) {
	if e.submitter == nil {
		return models.PendingRegistration{}, fmt.Errorf("%w: no registration form configured", models.ErrMisconfiguredEndpoint)
	}

	acc, err := e.submitter.Submit(ctx, req)
	if err != nil {
		return models.PendingRegistration{}, err
	}

	if err := e.session.SavePending(ctx, acc.Pending); err != nil {
		return acc.Pending, fmt.Errorf("save pending registration: %w", err)
	}

	now := e.now()
	e.mu.Lock()
	for id, o := range e.outcomes {
		if o.Status == PendingWaiting {
			o.Status = PendingSuperseded
			o.ResolvedAt = now
			e.outcomes[id] = o
		}
	}
	e.outcomes[acc.Pending.ID] = PendingOutcome{
		ID:          acc.Pending.ID,
		Status:      PendingWaiting,
		SubmittedAt: acc.Pending.SubmittedAt,
	}
	e.pruneOutcomes(now)
	e.mu.Unlock()

	return acc.Pending, nil
}

// Outcome reports what happened to a registration made through this engine
func (e *Engine) Outcome(id string) (PendingOutcome, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	o, ok := e.outcomes[id]
	return o, ok
}

// reconcilePending tries to bind the session's pending registration to a feed row.
// entries is nil when the feed read failed; the timeout still runs in that case.
// epoch is the reset epoch the cycle started in: a Reset since then wins and nothing is bound.
func (e *Engine) reconcilePending(ctx context.Context, l *slog.Logger, entries []models.QueueEntry, epoch uint64, now time.Time) {
	e.bindMu.Lock()
	defer e.bindMu.Unlock()

	if epoch != e.resetEpoch.Load() {
		return
	}

	p, err := e.session.Pending(ctx)
	if errors.Is(err, store.ErrCorruptRecord) {
		l.Warn("Discarding unreadable pending registration", "error", err)
		if err := e.session.ClearPending(ctx); err != nil {
			l.Warn("Clearing pending registration failed", "error", err)
			return
		}
		e.expireWaiting(now)
		metrics.PendingMatches.WithLabelValues("timeout").Inc()
		return
	}
	if err != nil {
		l.Warn("Pending registration read failed", "error", err)
		return
	}
	if p == nil {
		return
	}

	if entry, ok := MatchPending(*p, entries, e.opts.Window); ok {
		if err := e.session.BindQueueNumber(ctx, entry.QueueNumber); err != nil {
			l.Warn("Binding queue number failed", "error", err, "queue_number", entry.QueueNumber)
			return
		}
		if err := e.session.ClearPending(ctx); err != nil {
			l.Warn("Clearing pending registration failed", "error", err)
		}
		e.resolve(*p, PendingMatched, entry.QueueNumber, now)
		metrics.PendingMatches.WithLabelValues("matched").Inc()
		l.Info("Pending registration matched", "pending_id", p.ID, "queue_number", entry.QueueNumber)
		e.emit(ctx, models.QueueEvent{
			Type:        models.EventRegistrationMatched,
			Serving:     e.serving.Value(),
			QueueNumber: entry.QueueNumber,
			Source:      "feed",
		})
		return
	}

	if !Expired(*p, now, e.opts.MatchTimeout) {
		return
	}
	if err := e.session.ClearPending(ctx); err != nil {
		l.Warn("Clearing expired registration failed", "error", err)
		return
	}
	e.resolve(*p, PendingTimeout, "", now)
	metrics.PendingMatches.WithLabelValues("timeout").Inc()
	l.Warn("Pending registration expired", "pending_id", p.ID, "error", models.ErrMatchTimeout, "waited", now.Sub(p.SubmittedAt).Round(time.Second))
}

func (e *Engine) resolve(p models.PendingRegistration, status PendingStatus, number string, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	o := PendingOutcome{
		ID:          p.ID,
		Status:      status,
		QueueNumber: number,
		SubmittedAt: p.SubmittedAt,
		ResolvedAt:  now,
	}
	if status == PendingTimeout {
		o.Message = models.UserMessage(models.ErrMatchTimeout)
	}
	e.outcomes[p.ID] = o
	e.pruneOutcomes(now)
}

// expireWaiting times out every waiting outcome; used when the stored pending record is lost
func (e *Engine) expireWaiting(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, o := range e.outcomes {
		if o.Status == PendingWaiting {
			o.Status = PendingTimeout
			o.Message = models.UserMessage(models.ErrMatchTimeout)
			o.ResolvedAt = now
			e.outcomes[id] = o
		}
	}
	e.pruneOutcomes(now)
}

// pruneOutcomes drops resolved outcomes past retention, and waiting ones nothing can resolve anymore.
// Callers hold e.mu.
func (e *Engine) pruneOutcomes(now time.Time) {
	for id, o := range e.outcomes {
		switch {
		case o.Status == PendingWaiting:
			if now.Sub(o.SubmittedAt) > e.opts.MatchTimeout+outcomeRetention {
				delete(e.outcomes, id)
			}
		case now.Sub(o.ResolvedAt) > outcomeRetention:
			delete(e.outcomes, id)
		}
	}
}
