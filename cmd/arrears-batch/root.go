package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/common"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core/llm/gemini"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/export"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/ingest"
	repo "github.com/joseph-ayodele/pbb-arrears-tracker/internal/repository"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	startYear  int
	endYear    int
	delay      time.Duration
	out        string
	skipHidden bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "arrears-batch",
		Short: "Extract PBB-P2 tax arrears from scanned documents",
		Long: `arrears-batch sends PBB-P2 documents (PDF or images) to Gemini one at a
time, collects the per-year "Kurang Bayar" amounts for every NOP, prints a
validation summary and writes a CSV or XLSX export.

Example Usage:
  arrears-batch extract ./scans
  arrears-batch extract a.pdf b.jpg --out tunggakan.xlsx --start-year 2018
  arrears-batch watch ./inbox --out ./tunggakan.csv`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "YAML config file overlaid on the environment")
	pf.IntVar(&g.startYear, "start-year", 0, "first tracked tax year (default START_YEAR or 2015)")
	pf.IntVar(&g.endYear, "end-year", 0, "last tracked tax year (default END_YEAR or 2024)")
	pf.DurationVar(&g.delay, "delay", -1, "pause between files (default INTER_FILE_DELAY or 1.5s)")
	pf.StringVarP(&g.out, "out", "o", "", "export path; .xlsx selects XLSX, anything else CSV")
	pf.BoolVar(&g.skipHidden, "skip-hidden", true, "skip dot-files and dot-directories")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newExtractCmd(g), newWatchCmd(g))
	return root
}

// runtime is the wired pipeline shared by the subcommands.
type runtime struct {
	cfg       *common.Config
	logger    *slog.Logger
	store     repo.RecordStore
	client    *gemini.Client
	processor *core.Processor
	ingestor  ingest.Collector
	exporter  *export.Service
}

func (g *globalFlags) setup(ctx context.Context) (*runtime, error) {
	_ = godotenv.Load()

	cfg, err := common.LoadConfigFile(g.configFile)
	if err != nil {
		return nil, err
	}
	if g.startYear > 0 {
		cfg.Extraction.StartYear = g.startYear
	}
	if g.endYear > 0 {
		cfg.Extraction.EndYear = g.endYear
	}
	if g.delay >= 0 {
		cfg.Extraction.InterFileDelay = g.delay
	}
	if g.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	store, err := repo.Open(ctx, repo.Config{DSN: cfg.Store.DSN, DialTimeout: 3 * time.Second}, logger)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	client, err := gemini.NewClient(ctx, gemini.ConfigFrom(cfg), logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &runtime{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		client:    client,
		processor: core.NewProcessor(logger, client, store, core.WithInterFileDelay(cfg.Extraction.InterFileDelay)),
		ingestor:  ingest.NewFSIngestor(logger),
		exporter:  export.NewService(store, cfg.Years(), logger),
	}, nil
}

func (r *runtime) Close() {
	if err := r.client.Close(); err != nil {
		r.logger.Warn("failed to close gemini client", "error", err)
	}
	if err := r.store.Close(); err != nil {
		r.logger.Warn("failed to close record store", "error", err)
	}
}

// outputFormat picks the export encoding from the file extension.
func outputFormat(path string) export.Format {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return export.XLSX
	}
	return export.CSV
}

// writeExport renders every stored record to path, or to the dated default name.
func (r *runtime) writeExport(ctx context.Context, path string) (string, error) {
	f := outputFormat(path)
	name, data, err := r.exporter.Export(ctx, f)
	if err != nil {
		return "", err
	}
	if path == "" {
		path = name
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
