package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/doglog/doglog/internal/client"
	"github.com/spf13/cobra"
)

func LogCmd() *cobra.Command {
	var (
		intensity int
		tags      string
		notes     string
		noSync    bool
	)

	cmd := &cobra.Command{
		Use:       "log <positive|negative>",
		Short:     "Queue a behavior event and sync if the server is reachable",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"positive", "negative"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := client.NewEvent(args[0], intensity, strings.Split(tags, ","), notes)
			if err != nil {
				return err
			}

			n, err := current.queue.Append(ev)
			if err != nil {
				return err
			}
			fmt.Printf("%s event queued (%d pending)\n", capitalize(ev.Valence), n)

			if noSync {
				return nil
			}
			return runSync(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&intensity, "intensity", "i", 3, "Intensity from 1 to 5")
	cmd.Flags().StringVarP(&tags, "tags", "t", "", "Comma separated tags")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "Free text notes")
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "Only queue the event")

	return cmd
}

func SyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Send all queued events to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context())
		},
	}
}

func runSync(ctx context.Context) error {
	result, err := current.syncer.Sync(ctx)
	if errors.Is(err, client.ErrSyncInProgress) {
		fmt.Println("Sync already running.")
		return nil
	}
	if err != nil {
		return err
	}

	printResult(result)
	return nil
}

func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the pending queue and the last AI generation notice",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := current.queue.Len()
			if err != nil {
				return err
			}
			fmt.Printf("Queue: %d\n", n)

			notice, err := client.TakeNotice(current.dataDir)
			if err != nil {
				return err
			}
			if notice != nil {
				fmt.Printf("Last goal (%s): %s\n", notice.Mode, notice.Notice)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
			defer cancel()
			if current.api.Health(ctx) != nil {
				fmt.Println("Server: offline")
			} else {
				fmt.Println("Server: online")
			}
			return nil
		},
	}
}

func WatchCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep probing the server and sync whenever it comes back online",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validInterval(interval)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Printf("Watching %s every %s (Ctrl+C to stop)\n", serverURL, interval)
			return current.syncer.Watch(ctx, interval, printResult)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 15*time.Second, "Probe interval")

	return cmd
}

func validInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("--interval must be positive, got %s", d)
	}
	return nil
}

func HistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent events stored on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := current.api.Events(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if len(events) == 0 {
				fmt.Println("No events yet.")
				return nil
			}
			for _, ev := range events {
				notes := ""
				if ev.Notes != nil {
					notes = "  " + *ev.Notes
				}
				fmt.Printf("%s  %-8s  %d  [%s]%s\n",
					ev.OccurredAt.Local().Format("2006-01-02 15:04"),
					ev.Valence,
					ev.Intensity,
					strings.Join(ev.Tags, ", "),
					notes,
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of events (max 200)")

	return cmd
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
