package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/ingest"
	"github.com/joseph-ayodele/claims-extractor/internal/pipeline"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HTTPOptions configures the HTTP surface.
type HTTPOptions struct {
	MaxUploadBytes int64
	// Health reports store reachability for /healthz; nil means always healthy.
	Health func(ctx context.Context) error
}

type httpAPI struct {
	svc      *ExtractionService
	exporter Exporter
	opts     HTTPOptions
	logger   *slog.Logger
}

// NewHTTPHandler mounts the REST routes. exporter may be nil.
func NewHTTPHandler(svc *ExtractionService, exporter Exporter, opts HTTPOptions) http.Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	api := &httpAPI{svc: svc, exporter: exporter, opts: opts, logger: svc.logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(api.withRequestContext)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", api.healthz)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/extract", api.extract)
		r.Get("/jobs/{id}", api.getJob)
		r.Get("/export.xlsx", api.exportXLSX)
	})
	return r
}

// withRequestContext carries chi's request ID into the pipeline's context and
// logs each request.
func (a *httpAPI) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if rid := middleware.GetReqID(ctx); rid != "" {
			ctx = common.WithRequestID(ctx, rid)
		}
		ctx, _ = common.EnsureRequestID(ctx)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		common.LoggerFrom(ctx, a.logger).Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

// extract accepts a multipart "file" upload or a "path" form value naming a
// file under one of the service's allowed roots. The body is the rendered
// record or {"error": ...}; with diagnostics=true a successful run returns the
// record together with its issues and the direct-extraction reasoning.
func (a *httpAPI) extract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.ContentLength > a.opts.MaxUploadBytes {
		a.writeResult(w, nil, &http.MaxBytesError{Limit: a.opts.MaxUploadBytes})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(a.opts.MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		a.writeResult(w, nil, common.NewAppError(common.CodeInvalid, "read upload", errors.Join(common.ErrInvalidInput, err)))
		return
	}
	force, _ := strconv.ParseBool(r.FormValue("force"))
	diagnostics, _ := strconv.ParseBool(r.FormValue("diagnostics"))

	var (
		res *pipeline.Result
		err error
	)
	file, header, ferr := r.FormFile("file")
	switch {
	case ferr == nil:
		defer file.Close()
		var content []byte
		content, err = io.ReadAll(file)
		if err != nil {
			err = common.NewAppError(common.CodeInvalid, "read upload", errors.Join(common.ErrInvalidInput, err))
			break
		}
		var doc *ingest.Document
		doc, err = ingest.FromBytes(header.Filename, content)
		if err != nil {
			break
		}
		res, err = a.svc.proc.Process(ctx, doc, force)
	default:
		path := r.FormValue("path")
		if err = common.NewValidator().Field("file|path", path, common.Required, common.SupportedDocument).Error(); err != nil {
			break
		}
		res, err = a.svc.processPath(ctx, path, force)
	}
	if err == nil && diagnostics {
		writeJSON(w, http.StatusOK, res)
		return
	}
	a.writeResult(w, res, err)
}

func (a *httpAPI) writeResult(w http.ResponseWriter, res *pipeline.Result, err error) {
	code := http.StatusOK
	if err != nil {
		code = statusFor(err)
	} else if res.JobID != uuid.Nil {
		w.Header().Set("X-Job-ID", res.JobID.String())
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(pipeline.Render(res, err))
}

func (a *httpAPI) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.svc.lookupJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, statusFor(err), map[string]string{"error": common.UserMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a *httpAPI) exportXLSX(w http.ResponseWriter, r *http.Request) {
	if a.exporter == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "export requires a job store"})
		return
	}
	b, err := a.exporter.ExportRecordsXLSX(r.Context())
	if err != nil {
		common.LoggerFrom(r.Context(), a.logger).Error("http.export.failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": common.UserMessage(err)})
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="claims.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (a *httpAPI) healthz(w http.ResponseWriter, r *http.Request) {
	if a.opts.Health != nil {
		if err := a.opts.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case isInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrAnalysis), errors.Is(err, common.ErrCompletion):
		return http.StatusBadGateway
	case errors.Is(err, common.ErrExtraction):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
