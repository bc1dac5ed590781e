// Package server exposes the extraction pipeline over gRPC and HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/entity"
	"github.com/joseph-ayodele/claims-extractor/internal/ingest"
	"github.com/joseph-ayodele/claims-extractor/internal/pipeline"
)

// Extractor runs the pipeline. *pipeline.Processor implements it.
type Extractor interface {
	Process(ctx context.Context, doc *ingest.Document, force bool) (*pipeline.Result, error)
	ProcessPath(ctx context.Context, path string, force bool) (*pipeline.Result, error)
}

type JobReader interface {
	GetByID(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error)
}

// Exporter renders finished jobs as XLSX.
type Exporter interface {
	ExportRecordsXLSX(ctx context.Context) ([]byte, error)
}

// ExtractionService is shared by the gRPC and HTTP surfaces. jobs may be nil
// when no store is configured.
type ExtractionService struct {
	proc      Extractor
	jobs      JobReader
	pathRoots []string
	logger    *slog.Logger
}

type Option func(*ExtractionService)

// WithPathRoots allows requests to name server-local files that sit under
// one of roots. Without it, path requests are refused.
func WithPathRoots(roots ...string) Option {
	return func(s *ExtractionService) {
		for _, r := range roots {
			if strings.TrimSpace(r) != "" {
				s.pathRoots = append(s.pathRoots, resolvePath(r))
			}
		}
	}
}

func NewExtractionService(proc Extractor, jobs JobReader, logger *slog.Logger, opts ...Option) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ExtractionService{proc: proc, jobs: jobs, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// processPath runs the pipeline over a server-local file once it is known to
// sit under an allowed root.
func (s *ExtractionService) processPath(ctx context.Context, path string, force bool) (*pipeline.Result, error) {
	resolved, err := s.allowedPath(path)
	if err != nil {
		common.LoggerFrom(ctx, s.logger).Warn("server.path.rejected", "path", path, "error", err)
		return nil, err
	}
	return s.proc.ProcessPath(ctx, resolved, force)
}

func (s *ExtractionService) allowedPath(path string) (string, error) {
	if len(s.pathRoots) == 0 {
		return "", common.NewAppError(common.CodeInvalid, "server-local paths are disabled; upload the file instead", common.ErrInvalidInput)
	}
	resolved := resolvePath(path)
	for _, root := range s.pathRoots {
		if within(root, resolved) {
			return resolved, nil
		}
	}
	return "", common.NewAppError(common.CodeInvalid, "path is outside the allowed directories", common.ErrInvalidInput)
}

// resolvePath makes p absolute and follows symlinks in as much of it as
// exists, so a link inside a root cannot point outside it.
func resolvePath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = filepath.Clean(p)
	}
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		return r
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(dir, filepath.Base(abs))
	}
	return abs
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (s *ExtractionService) lookupJob(ctx context.Context, raw string) (*entity.ExtractJob, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, common.NewAppError(common.CodeInvalid, "job_id must be a UUID", common.ErrInvalidInput)
	}
	if s.jobs == nil {
		return nil, common.NewAppError(common.CodeStore, "job store is not configured", common.ErrNotFound)
	}
	return s.jobs.GetByID(ctx, id)
}

// isInputError reports whether err is the caller's fault rather than a
// failure inside the pipeline.
func isInputError(err error) bool {
	return errors.Is(err, common.ErrInvalidInput) || errors.Is(err, common.ErrUnsupported)
}

// toStruct converts a JSON-tagged value into a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
