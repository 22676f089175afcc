package cli

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show collection statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		kb, err := openBase()
		if err != nil {
			return err
		}
		st := kb.Stats()
		if statsJSON {
			return writeJSON(cmd.OutOrStdout(), st)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Storage:  %s\n", st.StoragePath)
		fmt.Fprintf(w, "Strategy: %s\n", st.Strategy)
		fmt.Fprintf(w, "Chunks:   %d\n", st.ChunkCount)
		fmt.Fprintf(w, "Sources:  %d\n", st.UniqueSourceCount)
		for _, src := range slices.Sorted(maps.Keys(st.Sources)) {
			info := st.Sources[src]
			fmt.Fprintf(w, "  %-32s %-10s %4d chunks  added %s\n", info.Filename, info.FileType, info.ChunkCount, info.FirstAdded)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}
