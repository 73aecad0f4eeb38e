package form

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Guizzs26/suya-queue/internal/models"
)

const DefaultFormBase = "https://docs.google.com"

var (
	publishedFormPattern = regexp.MustCompile(`/forms/d/e/([a-zA-Z0-9-_]+)`)
	editFormPattern      = regexp.MustCompile(`/forms/d/([a-zA-Z0-9-_]+)`)
)

// ResolveFormID extracts the form identifier from a configured form URL.
// Published (/forms/d/e/<id>) and edit (/forms/d/<id>) links are supported; forms.gle short links are not,
// because the id they redirect to cannot be derived offline.
func ResolveFormID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: form URL is not configured", models.ErrMisconfiguredEndpoint)
	}
	if strings.Contains(raw, "forms.gle/") {
		return "", fmt.Errorf("%w: short form links (forms.gle) are not supported, use the full docs.google.com/forms/... URL", models.ErrMisconfiguredEndpoint)
	}
	if m := publishedFormPattern.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}
	if m := editFormPattern.FindStringSubmatch(raw); m != nil && m[1] != "e" {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: could not extract a form id from %q", models.ErrMisconfiguredEndpoint, raw)
}

// ActionURL is the submission endpoint for a form id on the given host
func ActionURL(base, formID string) string {
	if base == "" {
		base = DefaultFormBase
	}
	return fmt.Sprintf("%s/forms/d/e/%s/formResponse", strings.TrimRight(base, "/"), formID)
}
