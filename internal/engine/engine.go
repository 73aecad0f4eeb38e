package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Guizzs26/suya-queue/internal/feed"
	"github.com/Guizzs26/suya-queue/internal/form"
	"github.com/Guizzs26/suya-queue/internal/models"
	"github.com/Guizzs26/suya-queue/internal/store"
	"github.com/Guizzs26/suya-queue/pkg/metrics"
	"github.com/google/uuid"
)

// FeedReader returns the registration rows currently in the spreadsheet
type FeedReader interface {
	Entries(ctx context.Context) ([]models.QueueEntry, error)
}

// StatusSource resolves the remote now-serving value
type StatusSource interface {
	Read(ctx context.Context) (string, feed.StatusTier, error)
}

// RegistrationSubmitter dispatches a registration to the write-only form
type RegistrationSubmitter interface {
	Submit(ctx context.Context, req models.RegistrationRequest) (form.Accepted, error)
}

// StatusWriter propagates an operator change of the serving value to the remote status signal
type StatusWriter interface {
	WriteServing(ctx context.Context, value string) error
}

// Notifier receives state change events. Failures are logged and never block reconciliation.
type Notifier interface {
	Notify(ctx context.Context, ev models.QueueEvent) error
}

// Options holds the engine timings
type Options struct {
	FeedInterval    time.Duration
	ServingInterval time.Duration
	FetchTimeout    time.Duration
	MatchTimeout    time.Duration
	Window          MatchWindow
	RebaseGrace     time.Duration
}

func DefaultOptions() Options {
	return Options{
		FeedInterval:    3 * time.Second,
		ServingInterval: 2 * time.Second,
		FetchTimeout:    10 * time.Second,
		MatchTimeout:    30 * time.Second,
		Window:          DefaultMatchWindow,
		RebaseGrace:     60 * time.Second,
	}
}

// Deps wires the engine to its collaborators. Status, Submitter and StatusWriter are optional.
type Deps struct {
	Feed         FeedReader
	Status       StatusSource
	Submitter    RegistrationSubmitter
	StatusWriter StatusWriter
	Device       store.DeviceStore
	Session      store.SessionStore
	Notifiers    []Notifier
}

// Snapshot is an immutable view of the last applied cycle. Readers get copies, never shared slices.
type Snapshot struct {
	Sequence  uint64
	Entries   []models.QueueEntry
	Active    []models.QueueEntry
	Serving   string
	Err       error
	UpdatedAt time.Time
}

func (s Snapshot) clone() Snapshot {
	s.Entries = append([]models.QueueEntry(nil), s.Entries...)
	s.Active = append([]models.QueueEntry(nil), s.Active...)
	return s
}

const notifyTimeout = 3 * time.Second

// Engine reconciles the registration feed, the remote status signal and local operator actions
// into one authoritative snapshot. All mutation goes through it.
type Engine struct {
	feed         FeedReader
	status       StatusSource
	submitter    RegistrationSubmitter
	statusWriter StatusWriter
	device       store.DeviceStore
	session      store.SessionStore
	notifiers    []Notifier
	opts         Options
	logger       *slog.Logger
	now          func() time.Time

	serving *ServingState

	cycleMu     sync.Mutex // held for the duration of one cycle; TryLock is the overlap guard
	tokens      atomic.Uint64
	resetEpoch  atomic.Uint64
	lastFeedErr string // guarded by cycleMu

	bindMu sync.Mutex // serializes session binding with Reset

	mu       sync.RWMutex
	snapshot Snapshot
	outcomes map[string]PendingOutcome

	wg sync.WaitGroup
}

// New builds an engine seeded with the device-persisted serving value
func New(ctx context.Context, deps Deps, opts Options, logger *slog.Logger) (*Engine, error) {
	if deps.Feed == nil {
		return nil, fmt.Errorf("%w: feed reader is required", models.ErrMisconfiguredEndpoint)
	}
	if deps.Device == nil || deps.Session == nil {
		return nil, errors.New("device and session stores are required")
	}

	initial, err := deps.Device.LoadServing(ctx)
	if err != nil {
		return nil, fmt.Errorf("load device serving: %w", err)
	}

	e := &Engine{
		feed:         deps.Feed,
		status:       deps.Status,
		submitter:    deps.Submitter,
		statusWriter: deps.StatusWriter,
		device:       deps.Device,
		session:      deps.Session,
		notifiers:    deps.Notifiers,
		opts:         opts,
		logger:       logger,
		now:          time.Now,
		serving:      NewServingState(initial, opts.RebaseGrace),
		outcomes:     make(map[string]PendingOutcome),
	}
	e.snapshot = Snapshot{Serving: e.serving.Value()}
	metrics.ServingNumber.Set(float64(e.serving.Suffix()))
	return e, nil
}

// Snapshot returns a copy of the current reconciled state
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot.clone()
}

func (e *Engine) Serving() string {
	return e.serving.Value()
}

// QueueNumber returns the number bound to this session, or "" when there is none yet
func (e *Engine) QueueNumber(ctx context.Context) (string, error) {
	return e.session.QueueNumber(ctx)
}

type cycleResult struct {
	token     uint64
	epoch     uint64
	entries   []models.QueueEntry
	feedErr   error
	remote    string
	tier      feed.StatusTier
	statusErr error
}

// Cycle runs one fetch-merge-derive pass. If a previous cycle is still running the call is a no-op.
// It returns the feed error, if any, after the snapshot has been updated with it.
func (e *Engine) Cycle(ctx context.Context) (err error) {
	if !e.cycleMu.TryLock() {
		metrics.PollCycles.WithLabelValues("skipped").Inc()
		e.logger.Debug("Previous cycle still running, skipping")
		return nil
	}
	defer e.cycleMu.Unlock()

	res := cycleResult{
		token: e.tokens.Add(1),
		epoch: e.resetEpoch.Load(),
	}
	l := e.logger.With("cycle", res.token)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			metrics.PollCycles.WithLabelValues("panic").Inc()
			l.Error("Reconciliation cycle panicked", "panic", r)
			err = fmt.Errorf("cycle %d panicked: %v", res.token, r)
		}
		metrics.CycleDuration.Observe(time.Since(start).Seconds())
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, e.opts.FetchTimeout)
	defer cancel()

	// Both reads are independent; one failing must not hold back the other
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				res.entries, res.feedErr = nil, fmt.Errorf("%w: feed reader panicked: %v", models.ErrFeedUnavailable, r)
			}
		}()
		res.entries, res.feedErr = e.feed.Entries(fetchCtx)
	}()
	res.remote, res.tier, res.statusErr = e.readStatus(fetchCtx)
	wg.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return e.apply(ctx, l, res)
}

func (e *Engine) readStatus(ctx context.Context) (string, feed.StatusTier, error) {
	if e.status == nil {
		return "", feed.TierNone, models.ErrStatusUnavailable
	}
	return e.status.Read(ctx)
}

func (e *Engine) apply(ctx context.Context, l *slog.Logger, res cycleResult) error {
	now := e.now()

	metrics.StatusReads.WithLabelValues(string(res.tier)).Inc()
	if res.statusErr != nil {
		l.Debug("Remote serving value unavailable, keeping local", "error", res.statusErr)
	}

	e.mu.Lock()
	if res.epoch != e.resetEpoch.Load() || res.token <= e.snapshot.Sequence {
		e.mu.Unlock()
		metrics.PollCycles.WithLabelValues("stale").Inc()
		l.Info("Discarding stale cycle result", "reset_epoch", res.epoch)
		return nil
	}

	prev := e.serving.Value()
	advanced := res.statusErr == nil && e.serving.MergeRemote(res.remote, now)

	next := Snapshot{
		Sequence:  res.token,
		Serving:   e.serving.Value(),
		Err:       res.feedErr,
		UpdatedAt: now,
	}
	if res.feedErr == nil {
		next.Entries = res.entries
		next.Active = ActiveQueue(res.entries, e.serving.Suffix())
	}
	e.snapshot = next
	e.mu.Unlock()

	metrics.ActiveQueueLength.Set(float64(len(next.Active)))
	metrics.ServingNumber.Set(float64(e.serving.Suffix()))

	if res.feedErr != nil {
		metrics.PollCycles.WithLabelValues("feed_error").Inc()
		metrics.FeedErrors.WithLabelValues(feedErrorKind(res.feedErr)).Inc()
		// A broken sheet fails every few seconds; only log when the failure changes
		if msg := res.feedErr.Error(); msg != e.lastFeedErr {
			e.lastFeedErr = msg
			l.Warn("Queue feed read failed", "error", res.feedErr, "message", models.UserMessage(res.feedErr))
		} else {
			l.Debug("Queue feed still failing", "error", res.feedErr)
		}
	} else {
		metrics.PollCycles.WithLabelValues("ok").Inc()
		if e.lastFeedErr != "" {
			l.Info("Queue feed recovered", "entries", len(next.Entries))
			e.lastFeedErr = ""
		}
	}

	if advanced {
		metrics.ServingUpdates.WithLabelValues("remote").Inc()
		l.Info("Serving value advanced from remote", "from", prev, "to", next.Serving, "tier", res.tier)
		e.persist(ctx, l)
		e.emit(ctx, models.QueueEvent{Type: models.EventServingAdvanced, Serving: next.Serving, Previous: prev, Source: "remote"})
	}

	e.reconcilePending(ctx, l, next.Entries, res.epoch, now)
	return res.feedErr
}

// SyncDevice cross-checks the device store so a change saved by another instance shows up
// even when the change notification was missed.
func (e *Engine) SyncDevice(ctx context.Context) {
	d, err := e.device.LoadServing(ctx)
	if err != nil {
		e.logger.Warn("Device serving read failed", "error", err)
		return
	}
	e.applyDevice(ctx, d)
}

func (e *Engine) applyDevice(ctx context.Context, d store.DeviceServing) {
	prev := e.serving.Value()
	if !e.serving.MergeDevice(d, e.now()) {
		return
	}
	cur := e.rederive()
	metrics.ServingUpdates.WithLabelValues("device").Inc()
	e.logger.Info("Serving value updated from device store", "from", prev, "to", cur, "epoch", d.Epoch)
	e.emit(ctx, models.QueueEvent{Type: models.EventServingAdvanced, Serving: cur, Previous: prev, Source: "device"})
}

// rederive recomputes the active queue against the current serving value without refetching
func (e *Engine) rederive() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.snapshot.Serving = e.serving.Value()
	e.snapshot.Active = ActiveQueue(e.snapshot.Entries, e.serving.Suffix())
	e.snapshot.UpdatedAt = e.now()

	metrics.ActiveQueueLength.Set(float64(len(e.snapshot.Active)))
	metrics.ServingNumber.Set(float64(e.serving.Suffix()))
	return e.snapshot.Serving
}

// persist saves the serving value to the device store and adopts whatever ends up stored
func (e *Engine) persist(ctx context.Context, l *slog.Logger) {
	cur := e.serving.Current()
	cur.UpdatedAt = e.now()

	stored, err := e.device.SaveServing(ctx, cur)
	if err != nil {
		l.Warn("Device serving write failed", "error", err, "value", cur.Value)
		return
	}
	if e.serving.MergeDevice(stored, e.now()) {
		l.Info("Device store holds a newer serving value, adopting it", "value", stored.Value, "epoch", stored.Epoch)
		e.rederive()
	}
}

func (e *Engine) emit(ctx context.Context, ev models.QueueEvent) {
	if len(e.notifiers) == 0 {
		return
	}
	ev.EventID = uuid.NewString()
	ev.Timestamp = e.now()

	for _, n := range e.notifiers {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		if err := n.Notify(nctx, ev); err != nil {
			e.logger.Warn("Event notification failed", "type", ev.Type, "error", err)
		}
		cancel()
	}
}

func isFeedError(err error) bool {
	return errors.Is(err, models.ErrFeedUnavailable) || errors.Is(err, models.ErrFeedNotPublic) ||
		errors.Is(err, models.ErrFeedEmpty) || errors.Is(err, models.ErrMisconfiguredEndpoint)
}

func feedErrorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrFeedNotPublic):
		return "not_public"
	case errors.Is(err, models.ErrFeedEmpty):
		return "empty"
	case errors.Is(err, models.ErrMisconfiguredEndpoint):
		return "misconfigured"
	default:
		return "unavailable"
	}
}
