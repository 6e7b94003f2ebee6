package main

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/validate"
)

func (c *cli) logsCmd() *cobra.Command {
	var tail string
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the audit log (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.app.session(model.RoleAdmin); err != nil {
				return err
			}
			last := 0
			if tail != "" {
				n, ok := validate.NumericInput(tail, 1, math.MaxInt)
				if !ok {
					return fmt.Errorf("--tail must be a whole number of at least 1, got %q", tail)
				}
				last = n
			}
			entries, err := c.app.audit.Entries(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries.")
				return nil
			}
			if last > 0 && last < len(entries) {
				entries = entries[len(entries)-last:]
			}
			for i, e := range entries {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				fmt.Fprintln(cmd.OutOrStdout(), e)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tail, "tail", "", "only the last N entries")
	return cmd
}

func (c *cli) eventsConsumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Append reservation events from RabbitMQ to the feed file until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			a.log.WithField("feed", a.cfg.Events.FeedFile).Info("consuming reservation events")
			err := queue.StartEventConsumer(cmd.Context(), a.cfg.Events.RabbitURL, a.cfg.Events.FeedFile, a.log)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
