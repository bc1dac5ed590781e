package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/claims-extractor/constants"
	"github.com/joseph-ayodele/claims-extractor/internal/common"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, common.StoreConfig{
		Driver: "sqlite",
		DSN:    "file:" + filepath.Join(t.TempDir(), "jobs.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx), "migrate is repeatable")
	return db
}

func TestExtractJobLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewExtractJobRepository(openTestDB(t), nil)

	job, err := repo.Start(ctx, "/inbox/form.pdf", "abc123", 2)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusRunning, job.Status)

	require.NoError(t, repo.FinishOCR(ctx, job.ID, "Full Document Text:\nשלום"))
	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusOCROK, got.Status)
	assert.Equal(t, "Full Document Text:\nשלום", got.OCRPayload)
	assert.Equal(t, 2, got.PageCount)
	assert.Nil(t, got.FinishedAt)

	require.NoError(t, repo.FinishLLM(ctx, job.ID, []byte(`{"firstName":"ישראל"}`)))
	require.NoError(t, repo.FinishSuccess(ctx, job.ID, SuccessOutcome{
		DirectJSON: []byte(`{"landlinePhone":"0975423541"}`),
		RecordJSON: []byte(`{"lastName":"כהן"}`),
		Issues:     []string{"Added missing 'address'"},
	}))

	got, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusDone, got.Status)
	assert.JSONEq(t, `{"firstName":"ישראל"}`, string(got.LLMJSON))
	assert.JSONEq(t, `{"lastName":"כהן"}`, string(got.RecordJSON))
	assert.Equal(t, []string{"Added missing 'address'"}, got.Issues)
	require.NotNil(t, got.FinishedAt)
	assert.WithinDuration(t, time.Now(), *got.FinishedAt, time.Minute)

	done, err := repo.FindDoneByHash(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, job.ID, done.ID)
}

func TestExtractJobFailureAndLookups(t *testing.T) {
	ctx := context.Background()
	repo := NewExtractJobRepository(openTestDB(t), nil)

	job, err := repo.Start(ctx, "/inbox/bad.pdf", "dead", 0)
	require.NoError(t, err)
	require.NoError(t, repo.FinishFailure(ctx, job.ID, "document analysis failed"))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusFailed, got.Status)
	assert.Equal(t, "document analysis failed", got.ErrorMessage)

	_, err = repo.FindDoneByHash(ctx, "dead")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, repo.FinishOCR(ctx, uuid.New(), "x"), common.ErrNotFound)
}

func TestListDone(t *testing.T) {
	ctx := context.Background()
	repo := NewExtractJobRepository(openTestDB(t), nil).(*extractJobRepo)

	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	var ids []uuid.UUID
	for i, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		job, err := repo.Start(ctx, name, name, 1)
		require.NoError(t, err)
		if i == 1 {
			require.NoError(t, repo.FinishFailure(ctx, job.ID, "boom"))
			continue
		}
		require.NoError(t, repo.FinishSuccess(ctx, job.ID, SuccessOutcome{RecordJSON: []byte(`{}`)}))
		ids = append(ids, job.ID)
	}

	jobs, err := repo.ListDone(ctx, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, ids[0], jobs[0].ID)
	assert.Equal(t, ids[1], jobs[1].ID)
	assert.Empty(t, jobs[0].Issues)

	jobs, err = repo.ListDone(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), common.StoreConfig{Driver: "mysql"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
