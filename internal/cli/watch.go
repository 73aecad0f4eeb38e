package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Guizzs26/suya-queue/internal/broker"
	"github.com/Guizzs26/suya-queue/internal/config"
	"github.com/Guizzs26/suya-queue/internal/models"
	"github.com/spf13/cobra"
)

// NewWatchCommand creates the watch command
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	var amqpURL, binding string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print queue events as they are published",
		Long: `Tail the queue.events exchange: serving changes, matched registrations and resets.

Requires RABBITMQ_URL (or --amqp); the server must have been started with it too.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			if amqpURL == "" {
				amqpURL = config.Load().RabbitMQURL
			}
			if amqpURL == "" {
				_ = f.Error("E_CONFIG", "no broker configured: set RABBITMQ_URL or pass --amqp")
				return NewExitError(ExitCommandError, "no broker configured")
			}

			level := slog.LevelWarn
			if rootOpts.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			sub, err := broker.NewSubscriber(amqpURL, logger)
			if err != nil {
				_ = f.Error("E_BROKER", err.Error())
				return WrapExitError(ExitCommandError, "broker unreachable", err)
			}
			defer sub.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return watchEvents(ctx, sub, binding, f)
		},
	}

	cmd.Flags().StringVar(&amqpURL, "amqp", "", "RabbitMQ URL (defaults to RABBITMQ_URL)")
	cmd.Flags().StringVar(&binding, "events", "#", "routing key pattern, e.g. serving.* or registration.matched")
	return cmd
}

type eventSource interface {
	Listen(ctx context.Context, bindingKey string, handle func(models.QueueEvent) error) error
}

func watchEvents(ctx context.Context, src eventSource, binding string, f *OutputFormatter) error {
	return src.Listen(ctx, binding, func(ev models.QueueEvent) error {
		return printEvent(f.Writer, f.Format, ev)
	})
}

// printEvent writes one line per event; JSON mode emits bare events so the output can be piped to jq
func printEvent(w io.Writer, format string, ev models.QueueEvent) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(ev)
	}

	ts := ev.Timestamp.Local().Format("15:04:05")
	var err error
	switch ev.Type {
	case models.EventRegistrationMatched:
		_, err = fmt.Fprintf(w, "%s  %-22s %s registered\n", ts, ev.Type, ev.QueueNumber)
	case models.EventQueueReset:
		_, err = fmt.Fprintf(w, "%s  %-22s board reset (was %s)\n", ts, ev.Type, ev.Previous)
	default:
		_, err = fmt.Fprintf(w, "%s  %-22s %s -> %s (%s)\n", ts, ev.Type, ev.Previous, ev.Serving, ev.Source)
	}
	return err
}
