package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
)

var llmTimes int

var llmCmd = &cobra.Command{
	Use:   "llm <payload.txt>",
	Short: "Send a saved payload to the model and print its JSON",
	Long: `Send a payload (as printed by "claims-extractor ocr") to the model one or
more times. Repeated runs show how stable the model's answers are.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		fields, err := newFieldExtractor()
		if err != nil {
			return err
		}

		failed := 0
		for i := 1; i <= llmTimes; i++ {
			ctx, cancel := common.WithTimeout(cmd.Context(), cfg.LLM.Timeout)
			ctx, _ = common.EnsureRequestID(ctx)
			start := time.Now()
			_, raw, err := fields.ExtractFields(ctx, string(payload))
			cancel()
			if err != nil {
				failed++
				logger.Error("llm.run.error", "iter", i, "error", err)
				continue
			}
			logger.Info("llm.run.ok", "iter", i, "elapsed_ms", time.Since(start).Milliseconds())
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", raw)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d runs failed", failed, llmTimes)
		}
		return nil
	},
}

func init() {
	llmCmd.Flags().IntVar(&llmTimes, "times", 1, "number of runs")
}
