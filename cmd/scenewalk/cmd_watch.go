package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zeusync/scenewalk/internal/core/inspector"
)

func newWatchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the registry and print it whenever it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withSession(cmd, func(s *inspector.Session) error {
				return watch(ctx, cmd, s, interval)
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "poll interval")
	return cmd
}

func watch(ctx context.Context, cmd *cobra.Command, s *inspector.Session, interval time.Duration) error {
	out := cmd.OutOrStdout()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var prev *inspector.Snapshot
	for {
		snap, err := s.Snapshot()
		switch {
		case err != nil:
			fmt.Fprintf(cmd.ErrOrStderr(), "snapshot: %v\n", err)
		case snap.Changed(prev):
			if flags.jsonOut {
				if err := writeJSON(out, snap); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "--- %s\n", snap.Taken.Format(time.RFC3339))
				printSnapshot(out, snap, false)
			}
			prev = snap
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
