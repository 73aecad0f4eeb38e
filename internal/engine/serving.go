package engine

import (
	"sync"
	"time"

	"github.com/Guizzs26/suya-queue/internal/models"
	"github.com/Guizzs26/suya-queue/internal/store"
)

// MergeServing is the monotonic merge rule: the remote value wins only when it is further ahead
func MergeServing(local, remote int) int {
	if remote > local {
		return remote
	}
	return local
}

// ServingState is the single-writer container for the authoritative serving value.
// Remote and device reads can only move it forward; operator rebases (Set backwards, Reset) start a new epoch.
type ServingState struct {
	mu        sync.RWMutex
	suffix    int
	epoch     uint64
	rebasedAt time.Time
	grace     time.Duration
}

func NewServingState(initial store.DeviceServing, grace time.Duration) *ServingState {
	return &ServingState{
		suffix: initial.Suffix(),
		epoch:  initial.Epoch,
		grace:  grace,
	}
}

// Current returns a copy suitable for persisting to the device store
func (s *ServingState) Current() store.DeviceServing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentLocked(time.Time{})
}

func (s *ServingState) currentLocked(at time.Time) store.DeviceServing {
	return store.DeviceServing{
		Value:     models.FormatQueueNumber(s.suffix),
		Epoch:     s.epoch,
		UpdatedAt: at,
	}
}

func (s *ServingState) Value() string {
	return s.Current().Value
}

func (s *ServingState) Suffix() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.suffix
}

// MergeRemote applies a value read from the status signal.
// Right after a rebase, remote values above the new value are treated as pre-rebase leftovers until the
// remote catches up or the grace period runs out.
func (s *ServingState) MergeRemote(remote string, now time.Time) bool {
	r, err := models.ParseQueueNumber(remote)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.rebasedAt.IsZero() {
		switch {
		case r == s.suffix || now.Sub(s.rebasedAt) >= s.grace:
			s.rebasedAt = time.Time{}
		case r > s.suffix:
			return false
		}
	}

	next := MergeServing(s.suffix, r)
	if next == s.suffix {
		return false
	}
	s.suffix = next
	return true
}

// MergeDevice applies a value saved by this or another instance on the same device
func (s *ServingState) MergeDevice(d store.DeviceServing, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case d.Epoch > s.epoch:
		s.epoch = d.Epoch
		s.suffix = d.Suffix()
		s.rebasedAt = now
		return true
	case d.Epoch == s.epoch && d.Suffix() > s.suffix:
		s.suffix = d.Suffix()
		return true
	default:
		return false
	}
}

// AdvanceTo moves forward to n within the current epoch. Smaller n is a no-op.
func (s *ServingState) AdvanceTo(n int, now time.Time) (store.DeviceServing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= s.suffix {
		return s.currentLocked(now), false
	}
	s.suffix = n
	return s.currentLocked(now), true
}

// Next advances by one customer
func (s *ServingState) Next(now time.Time) store.DeviceServing {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.suffix++
	return s.currentLocked(now)
}

// Rebase sets n unconditionally and opens a new epoch
func (s *ServingState) Rebase(n int, now time.Time) store.DeviceServing {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.suffix = n
	s.rebasedAt = now
	return s.currentLocked(now)
}
