package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/claims-extractor/constants"
	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/ingest"
	"github.com/joseph-ayodele/claims-extractor/internal/llm"
	"github.com/joseph-ayodele/claims-extractor/internal/ocr"
	"github.com/joseph-ayodele/claims-extractor/internal/repository"
)

const modelReply = "```json\n" + `{
  "lastName": "כהן",
  "firstName": "ישראל",
  "idNumber": "0123456789",
  "gender": "זכר",
  "landlinePhone": "123",
  "mobilePhone": "502345678",
  "jobType": "",
  "accidentLocation": "אחר",
  "dateOfInjury": {"day": "14", "month": "3", "year": "2024"},
  "medicalInstitutionFields": {"healthFundMember": "", "natureOfAccident": "", "medicalDiagnoses": ""}
}` + "\n```"

func square(cx, cy float64) ocr.Polygon {
	return ocr.Polygon{{X: cx - 0.05, Y: cy - 0.05}, {X: cx + 0.05, Y: cy - 0.05}, {X: cx + 0.05, Y: cy + 0.05}, {X: cx - 0.05, Y: cy + 0.05}}
}

func analyzedForm() *ocr.Document {
	return &ocr.Document{
		Content: "טופס תביעה",
		Pages: []ocr.Page{{
			Number: 1, Width: 8.5, Height: 11,
			Lines: []ocr.Line{
				{Content: "טלפון קווי 8975423541", Polygon: square(4, 1)},
				{Content: "סוג העבודה: טבח", Polygon: square(4, 1.3)},
			},
		}},
	}
}

type harness struct {
	proc     *Processor
	analyzed atomic.Int32
	prompts  atomic.Int32
}

func newHarness(t *testing.T, jobs repository.ExtractJobRepository, analyzeErr, llmErr error) *harness {
	t.Helper()
	h := &harness{}
	analyzer := ocr.AnalyzerFunc(func(ctx context.Context, f ocr.File) (*ocr.Document, error) {
		h.analyzed.Add(1)
		if analyzeErr != nil {
			return nil, analyzeErr
		}
		return analyzedForm(), nil
	})
	completer := llm.CompleterFunc(func(ctx context.Context, req llm.CompletionRequest) (string, error) {
		h.prompts.Add(1)
		if llmErr != nil {
			return "", llmErr
		}
		if !strings.Contains(req.Prompt, "טלפון קווי 8975423541") {
			return "", errors.New("payload missing from prompt")
		}
		return modelReply, nil
	})
	var opts []Option
	if jobs != nil {
		opts = append(opts, WithJobs(jobs))
	}
	h.proc = NewProcessor(nil, analyzer, llm.NewModelExtractor(completer, nil), nil, opts...)
	return h
}

func testDocument(t *testing.T) *ingest.Document {
	t.Helper()
	doc, err := ingest.FromBytes("form.jpg", []byte("fake image bytes"))
	require.NoError(t, err)
	doc.SourcePath = "/inbox/form.jpg"
	return doc
}

func openJobs(t *testing.T) repository.ExtractJobRepository {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, common.StoreConfig{
		Driver: "sqlite",
		DSN:    "file:" + filepath.Join(t.TempDir(), "jobs.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	return repository.NewExtractJobRepository(db, nil)
}

func TestProcessReconcilesAndValidates(t *testing.T) {
	h := newHarness(t, nil, nil, nil)

	res, err := h.proc.Process(context.Background(), testDocument(t), false)
	require.NoError(t, err)

	assert.Equal(t, uuid.Nil, res.JobID)
	assert.Equal(t, "0975423541", res.Form.LandlinePhone, "direct value beats the model's")
	assert.Equal(t, "טבח", res.Form.JobType)
	assert.Equal(t, "אחר", res.Form.AccidentLocation, "no direct mark leaves the model value")
	assert.Equal(t, "012345678", res.Form.IDNumber)
	assert.Equal(t, "0502345678", res.Form.MobilePhone)
	assert.Equal(t, "14/3/2024", res.Form.DateOfInjury.String())
	assert.Contains(t, res.Issues, "Truncated ID number: 0123456789 -> 012345678")
	assert.Contains(t, res.Payload, "Full Document Text:")
	assert.NotEmpty(t, res.LLMJSON)
}

func TestProcessTracksJobAndDeduplicates(t *testing.T) {
	ctx := context.Background()
	jobs := openJobs(t)
	h := newHarness(t, jobs, nil, nil)

	first, err := h.proc.Process(ctx, testDocument(t), false)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, first.JobID)

	job, err := jobs.GetByID(ctx, first.JobID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusDone, job.Status)
	assert.Equal(t, "/inbox/form.jpg", job.SourcePath)
	assert.Equal(t, first.Issues, job.Issues)
	assert.Contains(t, job.OCRPayload, "טלפון קווי")
	var stored map[string]any
	require.NoError(t, json.Unmarshal(job.RecordJSON, &stored))
	assert.Equal(t, "0975423541", stored["landlinePhone"])

	again, err := h.proc.Process(ctx, testDocument(t), false)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, first.JobID, again.JobID)
	assert.Equal(t, first.Form, again.Form)
	assert.Equal(t, int32(1), h.analyzed.Load())

	forced, err := h.proc.Process(ctx, testDocument(t), true)
	require.NoError(t, err)
	assert.False(t, forced.Cached)
	assert.NotEqual(t, first.JobID, forced.JobID)
	assert.Equal(t, int32(2), h.analyzed.Load())
}

type failureSpy struct {
	repository.ExtractJobRepository
	mu       sync.Mutex
	failures map[uuid.UUID]string
}

func (s *failureSpy) FinishFailure(ctx context.Context, id uuid.UUID, msg string) error {
	s.mu.Lock()
	s.failures[id] = msg
	s.mu.Unlock()
	return s.ExtractJobRepository.FinishFailure(ctx, id, msg)
}

func TestProcessFailures(t *testing.T) {
	cases := []struct {
		name       string
		analyzeErr error
		llmErr     error
		want       error
		prompted   int32
	}{
		{"analysis", errors.New("layout service down"), nil, common.ErrAnalysis, 0},
		{"completion", nil, errors.New("rate limited"), common.ErrCompletion, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spy := &failureSpy{ExtractJobRepository: openJobs(t), failures: map[uuid.UUID]string{}}
			h := newHarness(t, spy, tc.analyzeErr, tc.llmErr)

			res, err := h.proc.Process(context.Background(), testDocument(t), false)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.prompted, h.prompts.Load())

			require.Len(t, spy.failures, 1)
			for id, msg := range spy.failures {
				job, err := spy.GetByID(context.Background(), id)
				require.NoError(t, err)
				assert.Equal(t, constants.JobStatusFailed, job.Status)
				assert.Equal(t, msg, job.ErrorMessage)
			}
		})
	}
}

func TestProcessPathRejectsUnsupported(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	_, err := h.proc.ProcessPath(context.Background(), filepath.Join(t.TempDir(), "notes.txt"), false)
	assert.ErrorIs(t, err, common.ErrUnsupported)
	assert.Equal(t, int32(0), h.analyzed.Load())
}

func TestRender(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	res, err := h.proc.Process(context.Background(), testDocument(t), false)
	require.NoError(t, err)

	out := string(Render(res, nil))
	assert.True(t, strings.HasPrefix(out, "{\n  \"lastName\": \"כהן\""), out)
	assert.Less(t, strings.Index(out, `"landlinePhone"`), strings.Index(out, `"medicalInstitutionFields"`))
	assert.NotContains(t, out, `\u`)

	failed := Render(nil, common.NewAnalysisError("document analysis failed", nil))
	var body map[string]string
	require.NoError(t, json.Unmarshal(failed, &body))
	assert.True(t, strings.HasPrefix(body["error"], "Error processing document: document analysis failed"))
}
