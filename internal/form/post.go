package form

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Guizzs26/suya-queue/internal/models"
)

// dispatch posts URL-encoded fields and discards whatever comes back.
// The form endpoint does not give a usable answer, so only a transport failure is reported.
func dispatch(ctx context.Context, client *http.Client, action string, values url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, action, strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrMisconfiguredEndpoint, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransport, err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
	return nil
}
