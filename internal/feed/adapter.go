package feed

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Guizzs26/suya-queue/internal/models"
)

var htmlMarkers = []string{"<!doctype html", "<html"}

// looksLikeHTML detects the sign-in or error page the export returns for private sheets.
// "Sign in" only counts next to markup so a registrant's free text cannot trip it.
func looksLikeHTML(text string) bool {
	head := strings.ToLower(strings.TrimSpace(text))
	if len(head) > 4096 {
		head = head[:4096]
	}
	if strings.HasPrefix(head, "<") {
		return true
	}
	for _, m := range htmlMarkers {
		if strings.Contains(head, m) {
			return true
		}
	}
	return strings.Contains(head, "sign in") && strings.Contains(head, "</")
}

// ParseEntries turns the responses tab into numbered queue entries.
// Row 0 is the header; the Nth data row becomes sequence N and queue number SU-00N.
func ParseEntries(text string, tf TimestampFormat) ([]models.QueueEntry, error) {
	if looksLikeHTML(text) {
		return nil, &models.FeedError{Kind: models.ErrFeedNotPublic, Err: errors.New("received an HTML page instead of CSV")}
	}

	rows := ParseDelimited(text)
	if len(rows) < 2 {
		return nil, &models.FeedError{Kind: models.ErrFeedEmpty, Err: errors.New("no data rows")}
	}

	layout := locateColumns(rows[0])
	entries := make([]models.QueueEntry, 0, len(rows)-1)
	for i, row := range rows[1:] {
		seq := i + 1
		name := cellAt(row, layout.Name)
		if name == "" {
			name = models.DefaultDisplayName
		}
		submittedAt, _ := ParseTimestamp(cellAt(row, layout.Timestamp), tf)

		entries = append(entries, models.QueueEntry{
			SequenceNumber: seq,
			QueueNumber:    models.FormatQueueNumber(seq),
			SubmittedAt:    submittedAt,
			DisplayName:    name,
			SpiceLevel:     NormalizeSpice(cellAt(row, layout.Spice)),
			PortionType:    NormalizePortion(cellAt(row, layout.Portion)),
		})
	}
	return entries, nil
}

// Adapter is the spreadsheet feed adapter. It holds no state between reads and is safe to poll.
type Adapter struct {
	source Source
	gid    string
	tf     TimestampFormat
	logger *slog.Logger
}

func NewAdapter(source Source, gid string, tf TimestampFormat, logger *slog.Logger) *Adapter {
	return &Adapter{
		source: source,
		gid:    gid,
		tf:     tf,
		logger: logger,
	}
}

// Entries fetches and parses the current responses tab
func (a *Adapter) Entries(ctx context.Context) ([]models.QueueEntry, error) {
	text, err := a.source.FetchTab(ctx, a.gid)
	if err != nil {
		return nil, err
	}

	entries, err := ParseEntries(text, a.tf)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("Parsed queue feed", "entries", len(entries))
	return entries, nil
}
