package engine

import (
	"strings"
	"time"

	"github.com/Guizzs26/suya-queue/internal/models"
	"golang.org/x/text/cases"
)

// MatchWindow bounds how far a feed timestamp may sit from the submission instant
type MatchWindow struct {
	Lookback time.Duration
	Slack    time.Duration
}

var DefaultMatchWindow = MatchWindow{Lookback: 5 * time.Minute, Slack: 2 * time.Minute}

// Contains reports whether at falls within [submitted-Lookback, submitted+Slack]
func (w MatchWindow) Contains(submitted, at time.Time) bool {
	if at.IsZero() {
		return false
	}
	return !at.Before(submitted.Add(-w.Lookback)) && !at.After(submitted.Add(w.Slack))
}

// MatchPending finds the feed row a pending registration most plausibly became.
// Rows are scanned newest first; the first one inside the window whose name overlaps (either direction,
// case-insensitive) or whose spice and portion both match wins.
func MatchPending(p models.PendingRegistration, entries []models.QueueEntry, w MatchWindow) (models.QueueEntry, bool) {
	folder := cases.Fold()
	pendingName := folder.String(strings.TrimSpace(p.DisplayName))

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if !w.Contains(p.SubmittedAt, e.SubmittedAt) {
			continue
		}
		if namesOverlap(pendingName, folder.String(strings.TrimSpace(e.DisplayName))) {
			return e, true
		}
		if e.SpiceLevel == p.SpiceLevel && e.PortionType == p.PortionType {
			return e, true
		}
	}
	return models.QueueEntry{}, false
}

func namesOverlap(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// Expired reports whether a pending registration has waited longer than timeout
func Expired(p models.PendingRegistration, now time.Time, timeout time.Duration) bool {
	return now.Sub(p.SubmittedAt) >= timeout
}
