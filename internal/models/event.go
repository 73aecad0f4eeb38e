package models

import "time"

type EventType string

const (
	EventServingAdvanced     EventType = "serving.advanced"
	EventServingRebased      EventType = "serving.rebased"
	EventRegistrationMatched EventType = "registration.matched"
	EventQueueReset          EventType = "queue.reset"
)

// QueueEvent is broadcast whenever the reconciled state changes in a way other clients care about
type QueueEvent struct {
	EventID     string    `json:"event_id"`
	Type        EventType `json:"type"`
	Serving     string    `json:"serving"`
	Previous    string    `json:"previous,omitempty"`
	QueueNumber string    `json:"queue_number,omitempty"`
	Source      string    `json:"source"` // local, device, remote, admin
	Timestamp   time.Time `json:"timestamp"`
}
