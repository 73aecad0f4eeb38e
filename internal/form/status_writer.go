package form

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Guizzs26/suya-queue/internal/models"
)

// StatusWriter publishes the serving value through the status form so other devices can read it
// back from the status responses log
type StatusWriter struct {
	client *http.Client
	action string
	entry  string
	logger *slog.Logger
}

func NewStatusWriter(client *http.Client, formURL, base, entry string, logger *slog.Logger) (*StatusWriter, error) {
	if entry == "" {
		return nil, fmt.Errorf("%w: status form entry id is not configured", models.ErrMisconfiguredEndpoint)
	}
	id, err := ResolveFormID(formURL)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &StatusWriter{
		client: client,
		action: ActionURL(base, id),
		entry:  entry,
		logger: logger,
	}, nil
}

// WriteServing dispatches the value; as with registrations, success is inferred, never confirmed
func (w *StatusWriter) WriteServing(ctx context.Context, value string) error {
	values := url.Values{}
	values.Set(w.entry, value)

	if err := dispatch(ctx, w.client, w.action, values); err != nil {
		w.logger.Warn("Status form write failed", "value", value, "error", err)
		return err
	}
	w.logger.Debug("Status form write dispatched", "value", value)
	return nil
}
