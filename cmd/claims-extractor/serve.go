package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/claims-extractor/internal/async"
	"github.com/joseph-ayodele/claims-extractor/internal/export"
	"github.com/joseph-ayodele/claims-extractor/internal/ingest"
	"github.com/joseph-ayodele/claims-extractor/internal/server"
)

var (
	serveWatch     []string
	servePathRoots []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gRPC and HTTP APIs and watch inbox directories",
	Long: `Start the extraction service.

The server provides:
  - gRPC claims.v1.ExtractionService (ExtractForm, GetJob), health, reflection
  - HTTP POST /v1/extract, GET /v1/jobs/{id}, GET /v1/export.xlsx, GET /healthz
  - an inbox watcher that queues new files for extraction

Examples:
  claims-extractor serve
  claims-extractor serve --watch ./inbox --watch ./scans
  claims-extractor serve --path-root /srv/claims`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

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

		var (
			jobs     server.JobReader
			exporter server.Exporter
		)
		if st.jobs != nil {
			jobs = st.jobs
			exporter = export.NewService(st.jobs, logger)
		}
		pathRoots := cfg.Server.PathRoots
		if len(servePathRoots) > 0 {
			pathRoots = servePathRoots
		}
		svc := server.NewExtractionService(proc, jobs, logger, server.WithPathRoots(pathRoots...))

		queue := async.NewProcessorQueue(func(ctx context.Context, job async.Job) error {
			_, err := proc.ProcessPath(ctx, job.Path, job.Force)
			return err
		}, logger,
			async.WithWorkers(cfg.Pipeline.Workers),
			async.WithQueueSize(cfg.Pipeline.QueueSize),
			async.WithProcessTimeout(cfg.Pipeline.ProcessTimeout),
		)

		g, gctx := errgroup.WithContext(ctx)

		if cfg.Server.GRPCAddr != "" {
			lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
			if err != nil {
				return err
			}
			grpcServer := server.NewGRPCServer(svc, logger)
			g.Go(func() error {
				logger.Info("grpc.listen", "addr", cfg.Server.GRPCAddr)
				return grpcServer.Serve(lis)
			})
			g.Go(func() error {
				<-gctx.Done()
				grpcServer.GracefulStop()
				return nil
			})
		}

		if cfg.Server.HTTPAddr != "" {
			httpServer := &http.Server{
				Addr: cfg.Server.HTTPAddr,
				Handler: server.NewHTTPHandler(svc, exporter, server.HTTPOptions{
					MaxUploadBytes: cfg.Server.MaxUploadBytes,
					Health:         st.health,
				}),
				ReadHeaderTimeout: 10 * time.Second,
			}
			g.Go(func() error {
				logger.Info("http.listen", "addr", cfg.Server.HTTPAddr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return httpServer.Shutdown(shutdownCtx)
			})
		}

		roots := cfg.Watch.Roots
		if len(serveWatch) > 0 {
			roots = serveWatch
		}
		if len(roots) > 0 {
			files, errs, err := ingest.StartWatcher(gctx, ingest.WatchConfig{
				Roots:       roots,
				InitialScan: cfg.Watch.InitialScan,
				Debounce:    cfg.Watch.Debounce,
			}, logger)
			if err != nil {
				return err
			}
			g.Go(func() error {
				for {
					select {
					case <-gctx.Done():
						return nil
					case err, ok := <-errs:
						if !ok {
							errs = nil
							continue
						}
						logger.Warn("watch.error", "error", err)
					case path, ok := <-files:
						if !ok {
							return nil
						}
						if err := queue.Enqueue(gctx, async.Job{Path: path}); err != nil {
							logger.Warn("watch.enqueue.failed", "path", path, "error", err)
						}
					}
				}
			})
		}

		err = g.Wait()

		drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.ProcessTimeout)
		defer cancel()
		queue.Shutdown(drainCtx)
		logger.Info("serve.stopped")
		return err
	},
}

func init() {
	serveCmd.Flags().StringSliceVar(&serveWatch, "watch", nil, "inbox directories to watch (overrides watch.roots)")
	serveCmd.Flags().StringSliceVar(&servePathRoots, "path-root", nil, "directories API callers may name files in (overrides server.path_roots)")
}
