package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/ingest"
	"github.com/joseph-ayodele/claims-extractor/internal/ocr"
)

var (
	ocrSave   string
	ocrReplay string
	ocrAsJSON bool
	ocrRadius float64
)

var ocrCmd = &cobra.Command{
	Use:   "ocr <file>",
	Short: "Run layout analysis only and print the model payload",
	Long: `Analyze a file and print the geometry-annotated text payload that the
model would receive, or the normalized layout document with --json.

Examples:
  claims-extractor ocr scans/form.pdf --save-ocr ./ocr
  claims-extractor ocr scans/form.pdf --ocr-json ./ocr/form.pdf.ocr.json --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := common.WithTimeout(cmd.Context(), cfg.Pipeline.ProcessTimeout)
		defer cancel()
		ctx, _ = common.EnsureRequestID(ctx)

		doc, err := ingest.LoadFile(ctx, args[0], logger)
		if err != nil {
			return err
		}
		analyzer, err := newAnalyzer(ocrReplay, firstNonEmpty(ocrSave, cfg.Pipeline.SaveOCRDir))
		if err != nil {
			return err
		}

		start := time.Now()
		analyzed, err := analyzer.Analyze(ctx, doc.File())
		if err != nil {
			return err
		}
		logger.Info("ocr.run.ok",
			"pages", len(analyzed.Pages),
			"lines", len(analyzed.Lines()),
			"marks", analyzed.MarkCount(),
			"tables", len(analyzed.Tables()),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)

		out := cmd.OutOrStdout()
		if ocrAsJSON {
			enc := json.NewEncoder(out)
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(analyzed)
		}
		_, err = fmt.Fprintln(out, ocr.FormatPayload(analyzed, ocrRadius))
		return err
	},
}

func init() {
	ocrCmd.Flags().StringVar(&ocrSave, "save-ocr", "", "directory to save the raw analyze result in")
	ocrCmd.Flags().StringVar(&ocrReplay, "ocr-json", "", "replay a saved analyze result")
	ocrCmd.Flags().BoolVar(&ocrAsJSON, "json", false, "print the normalized layout document instead of the payload")
	ocrCmd.Flags().Float64Var(&ocrRadius, "radius", ocr.DefaultNearbyRadius, "nearby-text radius for selection marks")
}
