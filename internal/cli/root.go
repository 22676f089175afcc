// Package cli implements the kbase command line.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"kbase/internal/chunker"
	"kbase/internal/config"
	"kbase/internal/docstore"
	"kbase/internal/ingest"
	"kbase/internal/logging"
	"kbase/internal/service"
	"kbase/internal/storage"
)

var (
	// Global flags
	cfgFile string
	dataDir string
	verbose bool

	cfg    *config.AppConfig
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "kbase",
	Short: "Local document knowledge base",
	Long: `kbase ingests PDF, CSV, text and Markdown files into a local knowledge
base and answers similarity queries over their chunks.

The collection is stored in the configured data directory (default
./knowledge_db). Configuration is read from --config, ./config.yaml or
~/.config/kbase/config.yaml; KBASE_DATA_DIR and KBASE_LOG_LEVEL override it
and may be set in a .env file.

Examples:
  kbase ingest ./papers ./notes.md
  kbase query "attention mechanisms" -k 3 --digest
  kbase stats --json
  kbase watch ./inbox`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ~/.config/kbase/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "collection directory (overrides store.data_dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func initConfig(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	var err error
	if cfgFile == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgFile)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv(os.Getenv)
	if dataDir != "" {
		cfg.Store.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err = logging.New(cfg.Log, cmd.ErrOrStderr(), verbose)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// openBase assembles the knowledge base from the loaded configuration.
func openBase() (*service.KnowledgeBase, error) {
	files, err := storage.NewLocal(cfg.Store.DataDir)
	if err != nil {
		return nil, err
	}
	store, err := docstore.Open(files, docstore.Options{Index: cfg.Index.Options(), Logger: logger})
	if err != nil {
		return nil, err
	}
	ch, err := chunker.NewWindowChunker(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	return service.NewKnowledgeBase(ch, store, cfg.Query.TopK, logger), nil
}

func newRunner(kb *service.KnowledgeBase) *ingest.Runner {
	return ingest.NewRunner(kb, ingest.DefaultRegistry(cfg.Ingest.PDFToText, cfg.Ingest.Extensions), logger)
}
