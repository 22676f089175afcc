package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kbase/internal/ingest"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Ingest files as they appear in a directory",
	Long: `Ingests the files already in the directory, then keeps watching it and
ingests new or rewritten supported files until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, err := openBase()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runner := newRunner(kb)
		job, err := runner.Start(ctx, args)
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), job.Wait())
		if ctx.Err() != nil {
			return nil
		}

		w, err := ingest.NewWatcher(runner, ingest.DefaultSettle)
		if err != nil {
			return err
		}
		w.OnIngest = func(o ingest.FileOutcome) {
			switch {
			case o.Err != nil:
				fmt.Fprintf(cmd.OutOrStdout(), "failed  %s: %v\n", o.Path, o.Err)
			case o.Chunks > 0:
				fmt.Fprintf(cmd.OutOrStdout(), "added   %s (%d chunks)\n", o.Path, o.Chunks)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s, press Ctrl+C to stop.\n", args[0])
		return w.Run(ctx, args[0])
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
