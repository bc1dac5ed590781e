package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/pipeline"
)

var (
	extractOCRJSON string
	extractSaveOCR string
	extractForce   bool
	extractOut     string
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract one claim form and print its JSON record",
	Long: `Run the full pipeline over a single file and print the record.

Examples:
  claims-extractor extract scans/form.pdf
  claims-extractor extract scans/form.pdf --save-ocr ./ocr
  claims-extractor extract scans/form.pdf --ocr-json ./ocr/form.pdf.ocr.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := common.WithTimeout(cmd.Context(), cfg.Pipeline.ProcessTimeout)
		defer cancel()

		st, err := openStore(ctx, false)
		if err != nil {
			return err
		}
		defer st.Close()

		analyzer, err := newAnalyzer(extractOCRJSON, firstNonEmpty(extractSaveOCR, cfg.Pipeline.SaveOCRDir))
		if err != nil {
			return err
		}
		proc, err := newProcessor(analyzer, st.jobs)
		if err != nil {
			return err
		}

		res, runErr := proc.ProcessPath(ctx, args[0], extractForce)
		out := pipeline.Render(res, runErr)
		if extractOut != "" {
			if err := os.WriteFile(extractOut, out, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", extractOut, err)
			}
		} else {
			_, _ = cmd.OutOrStdout().Write(out)
		}
		return runErr
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractOCRJSON, "ocr-json", "", "replay a saved analyze result instead of calling the layout service")
	extractCmd.Flags().StringVar(&extractSaveOCR, "save-ocr", "", "directory to save the raw analyze result in")
	extractCmd.Flags().BoolVar(&extractForce, "force", false, "re-run even if this content was already processed")
	extractCmd.Flags().StringVarP(&extractOut, "out", "o", "", "write the JSON record to this file instead of stdout")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
