package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Guizzs26/suya-queue/internal/models"
	"github.com/spf13/cobra"
)

type queueStatus struct {
	Serving   string              `json:"serving"`
	Active    []models.QueueEntry `json:"active"`
	Waiting   int                 `json:"waiting"`
	Total     int                 `json:"total"`
	Sequence  uint64              `json:"sequence"`
	Error     string              `json:"error,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func (s queueStatus) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Now serving: %s\n", s.Serving)
	if s.Error != "" {
		fmt.Fprintf(&b, "Queue unavailable: %s\n", s.Error)
		return strings.TrimRight(b.String(), "\n")
	}
	fmt.Fprintf(&b, "Waiting: %d of %d registered\n", s.Waiting, s.Total)
	for _, e := range s.Active {
		fmt.Fprintf(&b, "  %s  %-20s %s, %s\n", e.QueueNumber, e.DisplayName, e.SpiceLevel, e.PortionType)
	}
	return strings.TrimRight(b.String(), "\n")
}

type clientStatus models.ClientViewState

func (s clientStatus) String() string {
	switch {
	case s.IsCurrentTurn:
		return fmt.Sprintf("%s: it's your turn!", s.QueueNumber)
	case s.HasBeenServed:
		return fmt.Sprintf("%s: already served (now serving %s)", s.QueueNumber, s.Serving)
	case s.Position == 0:
		return fmt.Sprintf("%s: not in the queue yet (now serving %s, %d ahead)", s.QueueNumber, s.Serving, s.PeopleAhead)
	default:
		return fmt.Sprintf("%s: position %d, %d ahead (now serving %s)", s.QueueNumber, s.Position, s.PeopleAhead, s.Serving)
	}
}

// NewStatusCommand creates the status command
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var number string

	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show the board, or one visitor's place in it",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			client := newAPIClient(rootOpts.Server)

			if number == "" {
				var s queueStatus
				if err := client.do(cmd.Context(), http.MethodGet, "/api/queue", nil, &s); err != nil {
					return reportAPIError(f, err)
				}
				return f.Success(s)
			}

			var v clientStatus
			if err := client.do(cmd.Context(), http.MethodGet, "/api/queue/"+url.PathEscape(number), nil, &v); err != nil {
				return reportAPIError(f, err)
			}
			return f.Success(v)
		},
	}

	cmd.Flags().StringVarP(&number, "number", "n", "", "show the view for this queue number (e.g. SU-007)")
	return cmd
}
