package server

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/extract"
)

func dialTestServer(t *testing.T, ext *fakeExtractor) *grpc.ClientConn {
	t.Helper()
	job := storedJob()
	return dialService(t, NewExtractionService(ext, fakeJobs{job.ID: job}, nil, WithPathRoots("/inbox")))
}

func dialService(t *testing.T, svc *ExtractionService) *grpc.ClientConn {
	t.Helper()
	srv := NewGRPCServer(svc, nil)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func call(t *testing.T, conn *grpc.ClientConn, method string, in map[string]any) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(in)
	require.NoError(t, err)
	out := new(structpb.Struct)
	err = conn.Invoke(context.Background(), method, req, out)
	return out, err
}

func TestGRPCExtractForm(t *testing.T) {
	ext := &fakeExtractor{res: okResult()}
	conn := dialTestServer(t, ext)

	out, err := call(t, conn, MethodExtractForm, map[string]any{"path": "/inbox/form.pdf", "force": true})
	require.NoError(t, err)

	assert.Equal(t, "/inbox/form.pdf", ext.gotPath)
	assert.True(t, ext.gotForce)
	f := out.GetFields()
	assert.Equal(t, "0b7c6f0e-4a8e-4d59-9d8a-3f2f3f7c1a11", f["job_id"].GetStringValue())
	rec := f["record"].GetStructValue().GetFields()
	assert.Equal(t, "כהן", rec["lastName"].GetStringValue())
	assert.Equal(t, "0975423541", rec["landlinePhone"].GetStringValue())
	assert.Contains(t, rec, "medicalInstitutionFields")
	require.Len(t, f["issues"].GetListValue().GetValues(), 1)
}

func TestGRPCExtractFormDiagnostics(t *testing.T) {
	res := okResult()
	res.Direct = &extract.Result{HealthFundHeaderHint: "כללית", Reasoning: map[string][]string{}}
	conn := dialTestServer(t, &fakeExtractor{res: res})

	plain, err := call(t, conn, MethodExtractForm, map[string]any{"path": "/inbox/form.pdf"})
	require.NoError(t, err)
	assert.NotContains(t, plain.GetFields(), "direct")

	out, err := call(t, conn, MethodExtractForm, map[string]any{"path": "/inbox/form.pdf", "diagnostics": true})
	require.NoError(t, err)
	direct := out.GetFields()["direct"].GetStructValue().GetFields()
	assert.Equal(t, "כללית", direct["healthFundHeaderHint"].GetStringValue())
}

func TestGRPCExtractFormErrors(t *testing.T) {
	conn := dialTestServer(t, &fakeExtractor{err: common.NewCompletionError("completion call failed", errors.New("429"))})

	_, err := call(t, conn, MethodExtractForm, map[string]any{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = call(t, conn, MethodExtractForm, map[string]any{"path": "/inbox/notes.txt"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	out, err := call(t, conn, MethodExtractForm, map[string]any{"path": "/inbox/form.pdf"})
	require.NoError(t, err)
	assert.Contains(t, out.GetFields()["error"].GetStringValue(), "Error processing document: completion call failed")
	assert.NotContains(t, out.GetFields(), "record")
}

func TestGRPCExtractFormPathRoots(t *testing.T) {
	ext := &fakeExtractor{res: okResult()}
	conn := dialTestServer(t, ext)
	_, err := call(t, conn, MethodExtractForm, map[string]any{"path": "/inbox/../etc/form.pdf"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "outside the allowed directories")

	closed := dialService(t, NewExtractionService(ext, nil, nil))
	_, err = call(t, closed, MethodExtractForm, map[string]any{"path": "/inbox/form.pdf"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Zero(t, ext.calls)
}

func TestGRPCExtractFormUnsupportedFromPipeline(t *testing.T) {
	conn := dialTestServer(t, &fakeExtractor{err: common.NewUnsupportedError("unreadable PDF", nil)})
	_, err := call(t, conn, MethodExtractForm, map[string]any{"path": "/inbox/broken.pdf"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCGetJob(t *testing.T) {
	conn := dialTestServer(t, &fakeExtractor{})

	out, err := call(t, conn, MethodGetJob, map[string]any{"job_id": "0b7c6f0e-4a8e-4d59-9d8a-3f2f3f7c1a11"})
	require.NoError(t, err)
	assert.Equal(t, "DONE", out.GetFields()["status"].GetStringValue())
	assert.Equal(t, float64(2), out.GetFields()["page_count"].GetNumberValue())
	assert.Equal(t, "כהן", out.GetFields()["record_json"].GetStructValue().GetFields()["lastName"].GetStringValue())

	_, err = call(t, conn, MethodGetJob, map[string]any{"job_id": "nope"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = call(t, conn, MethodGetJob, map[string]any{"job_id": uuid.NewString()})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPCHealth(t *testing.T) {
	conn := dialTestServer(t, &fakeExtractor{})
	resp, err := grpc_health_v1.NewHealthClient(conn).Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
}
