package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kbase/internal/ingest"
)

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Add files and directories to the knowledge base",
	Long: `Walks the given paths and ingests every supported file. Files whose
source is already stored are skipped. Press Ctrl+C to stop after the file
currently being processed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	kb, err := openBase()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job, err := newRunner(kb).Start(ctx, args)
	if err != nil {
		return err
	}
	rep := job.Wait()
	if ingestJSON {
		return writeJSON(cmd.OutOrStdout(), rep)
	}
	printReport(cmd.OutOrStdout(), rep)
	return nil
}

func printReport(w io.Writer, rep ingest.Report) {
	state := "completed"
	if rep.Cancelled {
		state = "cancelled"
	}
	fmt.Fprintf(w, "Batch %s %s in %s\n", rep.JobID, state, rep.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  files:   %d/%d processed\n", rep.Processed, rep.Total)
	fmt.Fprintf(w, "  added:   %d (%d chunks)\n", rep.Added, rep.Chunks)
	fmt.Fprintf(w, "  skipped: %d already stored, %d empty\n", rep.Skipped, rep.Empty)
	fmt.Fprintf(w, "  failed:  %d\n", rep.Failed)
	for _, kind := range slices.Sorted(maps.Keys(rep.ByType)) {
		fmt.Fprintf(w, "  %s: %d\n", kind, rep.ByType[kind])
	}
	for _, e := range rep.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
