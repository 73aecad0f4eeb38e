package engine

import (
	"context"
	"errors"
	"time"

	"github.com/Guizzs26/suya-queue/internal/store"
)

// Run polls the feed and the serving value until ctx is done. In-flight cycles are awaited before it returns;
// their results are dropped because ctx is already cancelled.
func (e *Engine) Run(ctx context.Context) {
	feedTicker := time.NewTicker(e.opts.FeedInterval)
	defer feedTicker.Stop()
	servingTicker := time.NewTicker(e.opts.ServingInterval)
	defer servingTicker.Stop()

	var watch <-chan store.DeviceServing
	if ch, err := e.device.Watch(ctx); err != nil {
		e.logger.Warn("Device change notifications unavailable, relying on polling", "error", err)
	} else {
		watch = ch
	}

	e.logger.Info("🔁 Reconciliation engine started",
		"feed_interval", e.opts.FeedInterval,
		"serving_interval", e.opts.ServingInterval,
		"serving", e.serving.Value(),
	)

	e.spawnCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			e.wg.Wait()
			e.logger.Info("Reconciliation engine stopped")
			return
		case <-feedTicker.C:
			e.spawnCycle(ctx)
		case <-servingTicker.C:
			e.SyncDevice(ctx)
		case d, ok := <-watch:
			if !ok {
				watch = nil
				continue
			}
			e.applyDevice(ctx, d)
		}
	}
}

// spawnCycle runs a cycle off the loop goroutine so a slow sheet never delays the serving checks
func (e *Engine) spawnCycle(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.Cycle(ctx); err != nil && !errors.Is(err, context.Canceled) && !isFeedError(err) {
			e.logger.Error("Reconciliation cycle failed", "error", err)
		}
	}()
}

// Task is a running engine started with Start
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Start runs the engine in the background. Stop cancels it and waits for the loop to exit.
func (e *Engine) Start(parent context.Context) *Task {
	ctx, cancel := context.WithCancel(parent)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		e.Run(ctx)
	}()
	return t
}

func (t *Task) Stop() {
	t.cancel()
	<-t.done
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}
