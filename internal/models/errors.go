package models

import (
	"errors"
	"fmt"
)

var (
	ErrFeedUnavailable       = errors.New("feed unavailable")
	ErrFeedNotPublic         = errors.New("feed not public")
	ErrFeedEmpty             = errors.New("feed empty")
	ErrStatusUnavailable     = errors.New("status unavailable")
	ErrValidation            = errors.New("validation error")
	ErrMatchTimeout          = errors.New("match timeout")
	ErrMisconfiguredEndpoint = errors.New("misconfigured endpoint")
	ErrSubmissionInFlight    = errors.New("submission already in progress")
	ErrTransport             = errors.New("transport error")
)

// FeedError carries the HTTP status of a failed feed read alongside its taxonomy kind
type FeedError struct {
	Kind       error
	StatusCode int
	Err        error
}

func (e *FeedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%v (http %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *FeedError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// UserMessage turns an error into the plain-language line shown to visitors and operators
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFeedNotPublic):
		return "The queue sheet is not public. Share it as 'Anyone with the link can view' and try again."
	case errors.Is(err, ErrFeedEmpty):
		return "Nobody has registered yet."
	case errors.Is(err, ErrFeedUnavailable):
		return "The queue could not be loaded right now. Retrying shortly."
	case errors.Is(err, ErrStatusUnavailable):
		return "The now-serving number could not be refreshed."
	case errors.Is(err, ErrMatchTimeout):
		return "We could not find your number yet. Please refresh or register again."
	case errors.Is(err, ErrMisconfiguredEndpoint):
		return "This device is not configured correctly. Ask the stall operator to check the sheet and form links."
	case errors.Is(err, ErrSubmissionInFlight):
		return "Your registration is already being sent."
	case errors.Is(err, ErrTransport):
		return "Your registration could not be sent. Check the connection and try again."
	case errors.Is(err, ErrValidation):
		return err.Error()
	default:
		return "Something went wrong. Please try again."
	}
}
