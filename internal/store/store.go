package store

import (
	"context"
	"errors"
	"time"

	"github.com/Guizzs26/suya-queue/internal/models"
)

// ErrCorruptRecord means a stored value exists but cannot be decoded
var ErrCorruptRecord = errors.New("corrupt stored record")

// DeviceServing is the serving value shared by every instance on the same device.
// Epoch increases on operator rebases (set backwards, reset); within an epoch the value only moves forward.
type DeviceServing struct {
	Value     string    `json:"value"`
	Epoch     uint64    `json:"epoch"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Suffix is the numeric part of Value, 0 when Value is empty or malformed
func (d DeviceServing) Suffix() int {
	n, err := models.ParseQueueNumber(d.Value)
	if err != nil {
		return 0
	}
	return n
}

// Supersedes reports whether next may replace cur
func Supersedes(next, cur DeviceServing) bool {
	if next.Epoch != cur.Epoch {
		return next.Epoch > cur.Epoch
	}
	return next.Suffix() > cur.Suffix()
}

func initialServing() DeviceServing {
	return DeviceServing{Value: models.ZeroServing}
}

// DeviceStore keeps long-lived, device-scoped state and tells other instances when it changes
type DeviceStore interface {
	LoadServing(ctx context.Context) (DeviceServing, error)
	// SaveServing applies v if it supersedes the stored value and returns what is stored afterwards
	SaveServing(ctx context.Context, v DeviceServing) (DeviceServing, error)
	// Watch delivers values saved by any instance until ctx is done, then closes the channel
	Watch(ctx context.Context) (<-chan DeviceServing, error)
	Close()
}

// SessionStore keeps state scoped to one visitor session
type SessionStore interface {
	QueueNumber(ctx context.Context) (string, error)
	BindQueueNumber(ctx context.Context, number string) error
	Pending(ctx context.Context) (*models.PendingRegistration, error)
	SavePending(ctx context.Context, p models.PendingRegistration) error
	ClearPending(ctx context.Context) error
	Clear(ctx context.Context) error
}
