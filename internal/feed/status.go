package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Guizzs26/suya-queue/internal/models"
	"golang.org/x/text/cases"
)

// StatusTier records which fallback produced a remote serving value
type StatusTier string

const (
	TierLabel     StatusTier = "label"
	TierCell      StatusTier = "cell"
	TierResponses StatusTier = "responses"
	TierNone      StatusTier = "none"
)

// defaultServingColumn is where the status form writes its only answer; column 0 is the form timestamp
const defaultServingColumn = 1

var (
	servingLabelWords  = []string{"serving", "current", "now"}
	servingHeaderWords = []string{"serving", "current", "queue", "number", "status"}
)

// StatusReader resolves the remote "now serving" value.
// The value is written through two paths (a status cell edited by hand and a status form log),
// so neither is trusted alone: the cell is tried first and the log is the fallback.
type StatusReader struct {
	source       Source
	statusGID    string
	responsesGID string
	logger       *slog.Logger
}

// NewStatusReader creates a reader. An empty responsesGID disables the form-log fallback.
func NewStatusReader(source Source, statusGID, responsesGID string, logger *slog.Logger) *StatusReader {
	return &StatusReader{
		source:       source,
		statusGID:    statusGID,
		responsesGID: responsesGID,
		logger:       logger,
	}
}

// Read returns the validated serving token, or an error wrapping models.ErrStatusUnavailable
func (r *StatusReader) Read(ctx context.Context) (string, StatusTier, error) {
	var errs []error

	if r.statusGID != "" {
		text, err := r.source.FetchTab(ctx, r.statusGID)
		if err != nil {
			errs = append(errs, fmt.Errorf("status tab: %w", err))
		} else if v, tier, ok := ResolveStatusCell(ParseDelimited(text)); ok {
			return v, tier, nil
		}
	}

	if r.responsesGID != "" {
		text, err := r.source.FetchTab(ctx, r.responsesGID)
		if err != nil {
			errs = append(errs, fmt.Errorf("status responses tab: %w", err))
		} else if v, ok := LatestStatusResponse(ParseDelimited(text)); ok {
			return v, TierResponses, nil
		}
	}

	errs = append(errs, errors.New("no queue-number shaped value found"))
	return "", TierNone, fmt.Errorf("%w: %w", models.ErrStatusUnavailable, errors.Join(errs...))
}

// ResolveStatusCell applies the first two tiers to the status tab:
// a "Current Serving" label with the value in the adjacent cell, or the value alone in the first cell.
func ResolveStatusCell(rows [][]string) (string, StatusTier, bool) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return "", TierNone, false
	}
	first := rows[0][0]

	if isServingLabel(first) {
		if v := models.NormalizeQueueNumber(cellAt(rows[0], 1)); models.IsQueueNumber(v) {
			return v, TierLabel, true
		}
	}
	if v := models.NormalizeQueueNumber(first); models.IsQueueNumber(v) {
		return v, TierCell, true
	}
	return "", TierNone, false
}

// LatestStatusResponse scans the status form log backwards and returns the most recent valid value.
// This is last-write-wins over an append-only log.
func LatestStatusResponse(rows [][]string) (string, bool) {
	if len(rows) < 2 {
		return "", false
	}
	col := statusColumn(rows[0])
	for i := len(rows) - 1; i >= 1; i-- {
		if v := models.NormalizeQueueNumber(cellAt(rows[i], col)); models.IsQueueNumber(v) {
			return v, true
		}
	}
	return "", false
}

func isServingLabel(cell string) bool {
	folded := cases.Fold().String(cell)
	if models.IsQueueNumber(cell) {
		return false
	}
	for _, w := range servingLabelWords {
		if strings.Contains(folded, w) {
			return true
		}
	}
	return false
}

func statusColumn(header []string) int {
	folder := cases.Fold()
	for i, h := range header {
		f := folder.String(h)
		if strings.Contains(f, "timestamp") {
			continue
		}
		for _, w := range servingHeaderWords {
			if strings.Contains(f, w) {
				return i
			}
		}
	}
	return defaultServingColumn
}
