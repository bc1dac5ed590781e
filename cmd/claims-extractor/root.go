package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
)

var (
	cfgFile  string
	logLevel string
	logJSON  bool

	cfg    *common.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "claims-extractor",
	Short: "Extract structured records from scanned work-injury claim forms",
	Long: `claims-extractor turns a scanned claim form (PDF, JPG, PNG, BMP, TIFF)
into a fixed-shape JSON record.

Each document goes through:
  - layout analysis (text lines, selection marks, tables)
  - model extraction over a geometry-annotated text payload
  - direct extraction of checkbox and detached fields from the geometry
  - reconciliation (direct values win) and record validation`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := common.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") || c.Log.Level == "" {
			c.Log.Level = logLevel
		}
		cfg = c
		logger = newLogger(c.Log.Level, logJSON)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./claims-extractor.yaml or ~/.claims-extractor/claims-extractor.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit JSON log lines")

	rootCmd.AddCommand(extractCmd, batchCmd, serveCmd, exportCmd, ocrCmd, llmCmd, dbCmd, versionCmd)
}

// newLogger writes to stderr so stdout carries only command output.
func newLogger(level string, asJSON bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: common.ParseLogLevel(level)}
	if asJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
