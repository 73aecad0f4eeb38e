package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Guizzs26/suya-queue/internal/models"
	"github.com/Guizzs26/suya-queue/pkg/metrics"
	"github.com/google/uuid"
)

// Fields maps registration attributes to the form's opaque entry ids
type Fields struct {
	Name    string
	Spice   string
	Portion string
}

var spiceLabels = map[models.SpiceLevel]string{
	models.SpiceNone:   "No Pepper",
	models.SpiceNormal: "Normal",
	models.SpiceExtra:  "Extra",
}

var portionLabels = map[models.PortionType]string{
	models.PortionRegular: "Regular",
	models.PortionKids:    "Kids",
}

// Accepted means the registration was dispatched to the form endpoint.
// It does NOT mean the form recorded it: the only confirmation is the row later appearing in the feed,
// which is why Pending must be kept until the reconciliation engine matches it.
type Accepted struct {
	Pending      models.PendingRegistration
	DispatchedAt time.Time
}

// Submitter posts registrations to the write-only form
type Submitter struct {
	client   *http.Client
	action   string
	fields   Fields
	inFlight atomic.Bool
	now      func() time.Time
	logger   *slog.Logger
}

// NewSubmitter resolves the form URL up front so a bad link fails at startup, not at the first visitor
func NewSubmitter(client *http.Client, formURL, base string, fields Fields, logger *slog.Logger) (*Submitter, error) {
	id, err := ResolveFormID(formURL)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Submitter{
		client: client,
		action: ActionURL(base, id),
		fields: fields,
		now:    time.Now,
		logger: logger,
	}, nil
}

// Validate checks the mandatory spice level and fills defaults
func Validate(req models.RegistrationRequest) (models.RegistrationRequest, error) {
	if req.SpiceLevel == "" {
		return req, fmt.Errorf("%w: please choose a pepper level", models.ErrValidation)
	}
	if !req.SpiceLevel.Valid() {
		return req, fmt.Errorf("%w: unknown pepper level %q", models.ErrValidation, req.SpiceLevel)
	}
	if req.PortionType == "" {
		req.PortionType = models.PortionRegular
	}
	if !req.PortionType.Valid() {
		return req, fmt.Errorf("%w: unknown portion type %q", models.ErrValidation, req.PortionType)
	}
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	return req, nil
}

// Submit sends one registration. A second call while the first is still running is rejected with
// models.ErrSubmissionInFlight so a double click cannot register twice.
func (s *Submitter) Submit(ctx context.Context, req models.RegistrationRequest) (Accepted, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		metrics.Submissions.WithLabelValues("in_flight").Inc()
		return Accepted{}, models.ErrSubmissionInFlight
	}
	defer s.inFlight.Store(false)

	req, err := Validate(req)
	if err != nil {
		metrics.Submissions.WithLabelValues("invalid").Inc()
		return Accepted{}, err
	}

	values := url.Values{}
	values.Set(s.fields.Name, req.DisplayName)
	values.Set(s.fields.Spice, spiceLabels[req.SpiceLevel])
	values.Set(s.fields.Portion, portionLabels[req.PortionType])

	// The pending record is stamped before dispatch: the sheet timestamp cannot precede it by more than clock skew
	submittedAt := s.now()
	if err := dispatch(ctx, s.client, s.action, values); err != nil {
		result := "transport_error"
		if errors.Is(err, models.ErrMisconfiguredEndpoint) {
			result = "invalid"
		}
		metrics.Submissions.WithLabelValues(result).Inc()
		s.logger.Error("Registration dispatch failed", "error", err)
		return Accepted{}, err
	}

	name := req.DisplayName
	if name == "" {
		name = models.DefaultDisplayName
	}
	pending := models.PendingRegistration{
		ID:          uuid.NewString(),
		DisplayName: name,
		SpiceLevel:  req.SpiceLevel,
		PortionType: req.PortionType,
		SubmittedAt: submittedAt,
	}

	metrics.Submissions.WithLabelValues("dispatched").Inc()
	s.logger.Info("Registration dispatched", "pending_id", pending.ID, "spice", pending.SpiceLevel, "portion", pending.PortionType)

	return Accepted{Pending: pending, DispatchedAt: s.now()}, nil
}
