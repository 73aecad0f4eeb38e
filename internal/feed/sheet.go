package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"

	"github.com/Guizzs26/suya-queue/internal/models"
	"github.com/Guizzs26/suya-queue/pkg/encoding"
)

const (
	DefaultExportBase = "https://docs.google.com"
	maxFeedBytes      = 4 << 20
)

var (
	sheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
	gidPattern     = regexp.MustCompile(`[#&?]gid=(\d+)`)
)

// Sheet identifies one spreadsheet and the tab its URL pointed at
type Sheet struct {
	ID  string
	GID string
}

// ParseSheetURL extracts the sheet id and tab gid from a sharing or edit URL
func ParseSheetURL(raw string) (Sheet, error) {
	if raw == "" {
		return Sheet{}, fmt.Errorf("%w: sheet URL is not configured", models.ErrMisconfiguredEndpoint)
	}
	m := sheetIDPattern.FindStringSubmatch(raw)
	if m == nil {
		return Sheet{}, fmt.Errorf("%w: no spreadsheet id in %q", models.ErrMisconfiguredEndpoint, raw)
	}
	gid := "0"
	if g := gidPattern.FindStringSubmatch(raw); g != nil {
		gid = g[1]
	}
	return Sheet{ID: m[1], GID: gid}, nil
}

// Source returns the raw delimited text of one tab of the sheet.
// It is the only I/O boundary of the feed adapter and the status reader.
type Source interface {
	FetchTab(ctx context.Context, gid string) (string, error)
}

// HTTPSource reads tabs through the sheet's public CSV export
type HTTPSource struct {
	client   *http.Client
	sheetID  string
	base     string
	maxBytes int64
	logger   *slog.Logger
}

// NewHTTPSource creates a source for the given sheet. base is the export host, normally DefaultExportBase.
func NewHTTPSource(client *http.Client, sheetID, base string, logger *slog.Logger) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	if base == "" {
		base = DefaultExportBase
	}
	return &HTTPSource{
		client:   client,
		sheetID:  sheetID,
		base:     base,
		maxBytes: maxFeedBytes,
		logger:   logger,
	}
}

// ExportURL is the CSV export endpoint for one tab
func (s *HTTPSource) ExportURL(gid string) string {
	return fmt.Sprintf("%s/spreadsheets/d/%s/export?format=csv&gid=%s", s.base, url.PathEscape(s.sheetID), url.QueryEscape(gid))
}

// FetchTab performs the GET. A 400 from the export endpoint means the sheet is not shared publicly.
func (s *HTTPSource) FetchTab(ctx context.Context, gid string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.ExportURL(gid), nil)
	if err != nil {
		return "", &models.FeedError{Kind: models.ErrMisconfiguredEndpoint, Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &models.FeedError{Kind: models.ErrFeedUnavailable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, s.maxBytes))
		kind := models.ErrFeedUnavailable
		if resp.StatusCode == http.StatusBadRequest {
			kind = models.ErrFeedNotPublic
		}
		return "", &models.FeedError{
			Kind:       kind,
			StatusCode: resp.StatusCode,
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return "", &models.FeedError{Kind: models.ErrFeedUnavailable, Err: fmt.Errorf("read body: %w", err)}
	}
	// A truncated tab would lose its last rows, so an oversized one is refused
	if int64(len(body)) > s.maxBytes {
		return "", &models.FeedError{Kind: models.ErrFeedUnavailable, Err: fmt.Errorf("tab exceeds %d bytes", s.maxBytes)}
	}

	s.logger.Debug("Fetched sheet tab", "gid", gid, "bytes", len(body))
	return encoding.FeedText(body), nil
}
