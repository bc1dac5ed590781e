package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/claims-extractor/internal/async"
	"github.com/joseph-ayodele/claims-extractor/internal/ingest"
	"github.com/joseph-ayodele/claims-extractor/internal/pipeline"
)

var (
	batchOutDir     string
	batchForce      bool
	batchSkipHidden bool
	batchWorkers    int
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Extract every supported file under a directory",
	Long: `Walk a directory and run the pipeline on each supported file with a
worker pool. Records are written as <name>.json into --out-dir when set.

Examples:
  claims-extractor batch ./inbox --out-dir ./records
  claims-extractor batch ./inbox --workers 8 --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		start := time.Now()

		paths, stats, err := ingest.ListDirectory(args[0], batchSkipHidden)
		if err != nil {
			return err
		}
		logger.Info("batch.scan.ok", "root", args[0], "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
		if len(paths) == 0 {
			return nil
		}
		if batchOutDir != "" {
			if err := os.MkdirAll(batchOutDir, 0o755); err != nil {
				return err
			}
		}

		st, err := openStore(ctx, false)
		if err != nil {
			return err
		}
		defer st.Close()
		analyzer, err := newAnalyzer("", cfg.Pipeline.SaveOCRDir)
		if err != nil {
			return err
		}
		proc, err := newProcessor(analyzer, st.jobs)
		if err != nil {
			return err
		}

		workers := cfg.Pipeline.Workers
		if batchWorkers > 0 {
			workers = batchWorkers
		}
		queue := async.NewProcessorQueue(func(ctx context.Context, job async.Job) error {
			res, err := proc.ProcessPath(ctx, job.Path, job.Force)
			if batchOutDir == "" {
				return err
			}
			name := filepath.Base(job.Path) + ".json"
			if werr := os.WriteFile(filepath.Join(batchOutDir, name), pipeline.Render(res, err), 0o644); werr != nil && err == nil {
				err = werr
			}
			return err
		}, logger,
			async.WithWorkers(workers),
			async.WithQueueSize(cfg.Pipeline.QueueSize),
			async.WithProcessTimeout(cfg.Pipeline.ProcessTimeout),
		)

		for _, p := range paths {
			if err := queue.Enqueue(ctx, async.Job{Path: p, Force: batchForce}); err != nil {
				logger.Warn("batch.enqueue.stopped", "error", err)
				break
			}
		}
		queue.Shutdown(ctx)

		s := queue.Stats()
		logger.Info("batch.done", "succeeded", s.Succeeded, "failed", s.Failed, "elapsed_ms", time.Since(start).Milliseconds())
		if s.Failed > 0 {
			return fmt.Errorf("%d of %d files failed", s.Failed, len(paths))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "", "directory for per-file JSON records")
	batchCmd.Flags().BoolVar(&batchForce, "force", false, "re-run files whose content was already processed")
	batchCmd.Flags().BoolVar(&batchSkipHidden, "skip-hidden", true, "skip dot-files and dot-directories")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "worker count (default from config)")
}
