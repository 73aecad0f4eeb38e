package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Guizzs26/suya-queue/internal/models"
	"github.com/spf13/cobra"
)

type servingResult struct {
	Serving string `json:"serving"`
}

func (r servingResult) String() string {
	return "Now serving: " + r.Serving
}

// NewNextCommand creates the next command
func NewNextCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "next",
		Short:         "Call the next customer",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdmin(cmd.Context(), rootOpts, cmd, "/api/admin/next", nil)
		},
	}
}

// NewSetCommand creates the set command
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <queue-number>",
		Short: "Set the now-serving number",
		Long: `Set the now-serving number, e.g. "queueboard set SU-042".

Setting a lower number than the current one rewinds the board; the remote status sheet is
ignored for a short grace period so it cannot immediately undo the rewind.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Validate locally first so a typo never reaches the server
			if _, err := models.ParseQueueNumber(args[0]); err != nil {
				f := rootOpts.formatter(cmd)
				_ = f.Error("E_INVALID", err.Error())
				return WrapExitError(ExitCommandError, "invalid queue number", err)
			}
			body := map[string]string{"value": models.NormalizeQueueNumber(args[0])}
			return runAdmin(cmd.Context(), rootOpts, cmd, "/api/admin/serving", body)
		},
	}
}

// NewResetCommand creates the reset command
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:           "reset",
		Short:         "Reset the queue to SU-000",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				f := rootOpts.formatter(cmd)
				_ = f.Error("E_CONFIRM", "reset clears the board and cannot be undone; pass --yes to confirm")
				return NewExitError(ExitCommandError, "reset not confirmed")
			}
			return runAdmin(cmd.Context(), rootOpts, cmd, "/api/admin/reset", nil)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the reset")
	return cmd
}

func runAdmin(ctx context.Context, opts *RootOptions, cmd *cobra.Command, path string, body any) error {
	f := opts.formatter(cmd)
	client := newAPIClient(opts.Server)

	f.VerboseLog("POST %s%s", client.base, path)

	var res servingResult
	if err := client.do(ctx, http.MethodPost, path, body, &res); err != nil {
		return reportAPIError(f, err)
	}
	return f.Success(res)
}

// reportAPIError prints err in the selected format and picks the exit code
func reportAPIError(f *OutputFormatter, err error) error {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		_ = f.Error(fmt.Sprintf("HTTP_%d", apiErr.Status), apiErr.Message)
		return WrapExitError(ExitFailure, "request rejected", err)
	}
	_ = f.Error("E_UNREACHABLE", err.Error())
	return WrapExitError(ExitCommandError, "server unreachable", err)
}
