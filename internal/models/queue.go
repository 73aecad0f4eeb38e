package models

import "time"

// SpiceLevel is the normalized pepper preference of a registration
type SpiceLevel string

const (
	SpiceNone   SpiceLevel = "none"
	SpiceNormal SpiceLevel = "normal"
	SpiceExtra  SpiceLevel = "extra"
)

// Valid reports whether s is one of the known spice levels
func (s SpiceLevel) Valid() bool {
	return s == SpiceNone || s == SpiceNormal || s == SpiceExtra
}

// PortionType is the normalized portion preference of a registration
type PortionType string

const (
	PortionRegular PortionType = "regular"
	PortionKids    PortionType = "kids"
)

func (p PortionType) Valid() bool {
	return p == PortionRegular || p == PortionKids
}

const DefaultDisplayName = "Guest"

// QueueEntry is one registrant as read from the responses feed.
// SequenceNumber is the 1-based row position at read time and QueueNumber is derived from it,
// so neither is a stable identity across fetches.
type QueueEntry struct {
	SequenceNumber int         `json:"sequence_number"`
	QueueNumber    string      `json:"queue_number"`
	SubmittedAt    time.Time   `json:"submitted_at"` // zero when the sheet cell is empty or unparseable
	DisplayName    string      `json:"display_name"`
	SpiceLevel     SpiceLevel  `json:"spice_level"`
	PortionType    PortionType `json:"portion_type"`
}

// Suffix returns the numeric part of the entry's queue number
func (e QueueEntry) Suffix() int {
	n, err := ParseQueueNumber(e.QueueNumber)
	if err != nil {
		return e.SequenceNumber
	}
	return n
}

// RegistrationRequest is what the registration form produces
type RegistrationRequest struct {
	DisplayName string      `json:"display_name"`
	SpiceLevel  SpiceLevel  `json:"spice_level"`
	PortionType PortionType `json:"portion_type"`
}

// PendingRegistration is the client-local record of a submission that has not shown up in the feed yet
type PendingRegistration struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"display_name"`
	SpiceLevel  SpiceLevel  `json:"spice_level"`
	PortionType PortionType `json:"portion_type"`
	SubmittedAt time.Time   `json:"submitted_at"`
}

// ClientViewState is derived per poll tick and never stored
type ClientViewState struct {
	QueueNumber   string `json:"queue_number"`
	Serving       string `json:"serving"`
	Position      int    `json:"position"` // 0 when not in the active queue
	PeopleAhead   int    `json:"people_ahead"`
	IsCurrentTurn bool   `json:"is_current_turn"`
	HasBeenServed bool   `json:"has_been_served"`
}
