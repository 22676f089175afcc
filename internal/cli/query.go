package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kbase/internal/docstore"
	"kbase/internal/domain"
	"kbase/internal/summarizer"
)

var (
	queryTopK   int
	queryDigest bool
	queryJSON   bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>...",
	Short: "Find the chunks most similar to a question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from query.top_k)")
	queryCmd.Flags().BoolVar(&queryDigest, "digest", false, "print a short extract of the results")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

type queryOutput struct {
	Query   string                `json:"query"`
	Digest  string                `json:"digest,omitempty"`
	Results []domain.SearchResult `json:"results"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	kb, err := openBase()
	if err != nil {
		return err
	}
	text := strings.Join(args, " ")
	results := kb.Query(text, queryTopK)
	out := queryOutput{Query: text, Results: results}
	if queryDigest {
		out.Digest = summarizer.Digest(text, results, cfg.Digest.MaxSentences)
	}
	if queryJSON {
		return writeJSON(cmd.OutOrStdout(), out)
	}

	w := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}
	if out.Digest != "" {
		fmt.Fprintf(w, "Digest: %s\n\n", out.Digest)
	}
	for i, r := range results {
		fmt.Fprintf(w, "[%d] %s (distance %.4f)\n", i+1, docstore.Basename(r.Metadata.Source()), r.Distance)
		fmt.Fprintf(w, "    %s\n\n", snippet(r.Content, 240))
	}
	return nil
}

// snippet flattens whitespace and cuts text to at most n runes.
func snippet(text string, n int) string {
	flat := []rune(strings.Join(strings.Fields(text), " "))
	if len(flat) <= n {
		return string(flat)
	}
	return string(flat[:n]) + "..."
}
