package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/doglog/doglog/internal/client"
	"github.com/doglog/doglog/internal/logger"
	"github.com/spf13/cobra"
)

// session is what every subcommand works with once flags are parsed.
type session struct {
	dataDir string
	queue   *client.Queue
	api     *client.API
	syncer  *client.Syncer
}

var (
	serverURL string
	dataDir   string
	timeout   time.Duration
	verbose   bool

	current *session
)

func RootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "doglog",
		Short:        "Log dog behavior offline and sync it to the DogLog server",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.InitCLI(verbose)
			return openSession()
		},
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("DOGLOG_SERVER", client.DefaultServerURL), "Server URL or set DOGLOG_SERVER env")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", envOr("DOGLOG_DATA_DIR", defaultDataDir()), "Directory for the offline queue or set DOGLOG_DATA_DIR env")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", client.DefaultTimeout, "Server request timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging on stderr")

	rootCmd.AddCommand(LogCmd())
	rootCmd.AddCommand(SyncCmd())
	rootCmd.AddCommand(StatusCmd())
	rootCmd.AddCommand(WatchCmd())
	rootCmd.AddCommand(HistoryCmd())
	rootCmd.AddCommand(GoalCmd())
	rootCmd.AddCommand(TodayCmd())

	return rootCmd
}

func openSession() error {
	queue, err := client.OpenQueue(dataDir)
	if err != nil {
		return err
	}

	api := client.NewAPI(serverURL, timeout)
	current = &session{
		dataDir: dataDir,
		queue:   queue,
		api:     api,
		syncer:  client.NewSyncer(queue, api),
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".doglog"
	}
	return filepath.Join(dir, "doglog")
}

// printResult reports a sync the way the queue label did: synced count or the
// offline queue length.
func printResult(r client.Result) {
	switch {
	case r.Offline:
		fmt.Printf("Still offline. Queue kept locally (%d pending).\n", r.Pending)
	case r.Synced > 0:
		fmt.Printf("Synced %d event%s. Queue: %d\n", r.Synced, plural(r.Synced), r.Pending)
	default:
		fmt.Printf("Queue: %d\n", r.Pending)
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
