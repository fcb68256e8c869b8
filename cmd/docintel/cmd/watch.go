package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/docintel/internal/watch"
)

var (
	watchDebounce time.Duration
	watchExisting bool
	watchExts     []string
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Process documents dropped into a directory",
	Long: `Watch a directory and run every new or changed document through the
pipeline, storing the result in the configured store.

Examples:
  docintel watch inbox/
  docintel watch inbox/ --existing --store sqlite`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Quiet period before a file is processed")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "Also process files already in the directory")
	watchCmd.Flags().StringSliceVar(&watchExts, "ext", nil, "Extensions to watch (default: pdf and common images)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := newLogger()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	w := watch.New(watch.Config{
		Dir:         args[0],
		Exts:        watchExts,
		Debounce:    watchDebounce,
		InitialScan: watchExisting,
	}, watch.ProcessInto(newPipeline(log), st, log), log)

	return w.Run(ctx)
}
