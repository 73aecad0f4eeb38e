package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	QueuePrefix = "SU-"
	// ZeroServing means nobody has been called yet
	ZeroServing = "SU-000"
)

var queueNumberPattern = regexp.MustCompile(`^SU-(\d{3,})$`)

// FormatQueueNumber renders a sequence number as its public queue token (7 -> "SU-007")
func FormatQueueNumber(seq int) string {
	return fmt.Sprintf("%s%03d", QueuePrefix, seq)
}

// NormalizeQueueNumber trims and upper-cases a candidate token
func NormalizeQueueNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IsQueueNumber reports whether s already has the queue-number shape after normalization
func IsQueueNumber(s string) bool {
	return queueNumberPattern.MatchString(NormalizeQueueNumber(s))
}

// ParseQueueNumber recovers the numeric suffix of a queue token
func ParseQueueNumber(s string) (int, error) {
	m := queueNumberPattern.FindStringSubmatch(NormalizeQueueNumber(s))
	if m == nil {
		return 0, fmt.Errorf("%w: %q is not a queue number (expected e.g. SU-042)", ErrValidation, s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: queue number %q out of range", ErrValidation, s)
	}
	return n, nil
}
