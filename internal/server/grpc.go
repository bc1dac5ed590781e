package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/pipeline"
)

const (
	ServiceName       = "claims.v1.ExtractionService"
	MethodExtractForm = "/" + ServiceName + "/ExtractForm"
	MethodGetJob      = "/" + ServiceName + "/GetJob"
)

// ExtractionServer is the gRPC contract. Messages are google.protobuf.Struct:
//
//	ExtractForm {path, force, diagnostics} -> {job_id, record, issues, cached, direct?} or {error}
//	GetJob      {job_id}                   -> the stored job
type ExtractionServer interface {
	ExtractForm(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetJob(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var _ ExtractionServer = (*ExtractionService)(nil)

var ExtractionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ExtractForm", Handler: unaryHandler(MethodExtractForm, ExtractionServer.ExtractForm)},
		{MethodName: "GetJob", Handler: unaryHandler(MethodGetJob, ExtractionServer.GetJob)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "claims/v1/extraction.proto",
}

func RegisterExtractionServer(s grpc.ServiceRegistrar, srv ExtractionServer) {
	s.RegisterService(&ExtractionServiceDesc, srv)
}

type structMethod func(ExtractionServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, m structMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return m(srv.(ExtractionServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return m(srv.(ExtractionServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// NewGRPCServer builds a server with the extraction service, health and reflection.
func NewGRPCServer(svc *ExtractionService, logger *slog.Logger) *grpc.Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(requestIDInterceptor(logger)))
	RegisterExtractionServer(s, svc)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	reflection.Register(s)
	return s
}

// requestIDInterceptor takes x-request-id from metadata, or generates one.
func requestIDInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get("x-request-id"); len(ids) > 0 && ids[0] != "" {
				ctx = common.WithRequestID(ctx, ids[0])
			}
		}
		ctx, _ = common.EnsureRequestID(ctx)
		start := time.Now()
		resp, err := handler(ctx, req)
		common.LoggerFrom(ctx, logger).Info("grpc.request",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

// ExtractForm runs the pipeline over a server-local path under an allowed
// root. Bad input is a gRPC status; pipeline failures come back in the
// response's error field.
func (s *ExtractionService) ExtractForm(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	path := fields["path"].GetStringValue()
	v := common.NewValidator().Field("path", path, common.Required, common.SupportedDocument)
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	force := fields["force"].GetBoolValue()

	log := common.LoggerFrom(ctx, s.logger)
	log.Info("grpc.extract.start", "path", path, "force", force)
	res, err := s.processPath(ctx, path, force)
	if err != nil {
		if isInputError(err) {
			return nil, common.GRPCError(err)
		}
		log.Error("grpc.extract.failed", "path", path, "error", err)
		return structpb.NewStruct(map[string]any{
			"error": "Error processing document: " + common.UserMessage(err),
		})
	}
	return resultStruct(res, fields["diagnostics"].GetBoolValue())
}

func resultStruct(res *pipeline.Result, diagnostics bool) (*structpb.Struct, error) {
	rec, err := toStruct(res.Form)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode record: %v", err)
	}
	issues := make([]any, len(res.Issues))
	for i, is := range res.Issues {
		issues[i] = is
	}
	out, err := structpb.NewStruct(map[string]any{
		"job_id": res.JobID.String(),
		"issues": issues,
		"cached": res.Cached,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	out.Fields["record"] = structpb.NewStructValue(rec)
	if diagnostics && res.Direct != nil {
		direct, err := toStruct(res.Direct)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "encode diagnostics: %v", err)
		}
		out.Fields["direct"] = structpb.NewStructValue(direct)
	}
	return out, nil
}

// GetJob returns the tracked job for job_id.
func (s *ExtractionService) GetJob(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	raw := in.GetFields()["job_id"].GetStringValue()
	v := common.NewValidator().Field("job_id", raw, common.Required, common.UUID)
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	job, err := s.lookupJob(ctx, raw)
	if err != nil {
		return nil, common.GRPCError(err)
	}
	out, err := toStruct(job)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode job: %v", err)
	}
	return out, nil
}
