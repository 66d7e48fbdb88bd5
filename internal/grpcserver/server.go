// Package grpcserver implements the internal JobService gRPC surface.
//
// It delegates all business logic to jobs.Service and handles only the gRPC
// transport concerns: metadata extraction, error mapping, and conversion
// between the domain model and protobuf well-known types.
package grpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"jobmate/jobs-service/internal/jobs"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "jobs.v1.JobService"

// Server implements the JobService handlers.
type Server struct {
	svc *jobs.Service
}

// NewServer constructs a gRPC Server backed by the given jobs.Service.
func NewServer(svc *jobs.Service) *Server {
	return &Server{svc: svc}
}

// Register attaches the JobService to gs.
func (s *Server) Register(gs *grpc.Server) {
	gs.RegisterService(&serviceDesc, s)
}

// ─── RPC implementations ──────────────────────────────────────────────────────

// GetJob returns one job with its company.
func (s *Server) GetJob(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	if _, err := userIDFromCtx(ctx); err != nil {
		return nil, err
	}
	id, err := jobID(req)
	if err != nil {
		return nil, err
	}
	job, err := s.svc.GetJob(ctx, id)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(job)
}

// ListJobs returns all jobs, or the filtered set when req carries any of
// title, minSalary or hasEquity.
func (s *Server) ListJobs(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := userIDFromCtx(ctx); err != nil {
		return nil, err
	}

	var (
		found []jobs.Job
		err   error
	)
	if len(req.GetFields()) == 0 {
		found, err = s.svc.ListJobs(ctx)
	} else {
		var opts jobs.FilterOptions
		if opts, err = filterFromStruct(req); err != nil {
			return nil, err
		}
		found, err = s.svc.FilterJobs(ctx, opts)
	}
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(map[string]any{"jobs": found})
}

// DeleteJob removes a job. Admin only.
func (s *Server) DeleteJob(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	if _, err := userIDFromCtx(ctx); err != nil {
		return nil, err
	}
	if !isAdmin(ctx) {
		return nil, status.Error(codes.PermissionDenied, "admin only")
	}
	id, err := jobID(req)
	if err != nil {
		return nil, err
	}
	if err := s.svc.RemoveJob(ctx, id); err != nil {
		return nil, toGRPCError(err)
	}
	return &emptypb.Empty{}, nil
}

// ─── Service descriptor ───────────────────────────────────────────────────────

// JobServiceServer is the handler contract for ServiceName.
type JobServiceServer interface {
	GetJob(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	ListJobs(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteJob(context.Context, *wrapperspb.Int64Value) (*emptypb.Empty, error)
}

var _ JobServiceServer = (*Server)(nil)

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*JobServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetJob", Handler: unary("GetJob", JobServiceServer.GetJob)},
		{MethodName: "ListJobs", Handler: unary("ListJobs", JobServiceServer.ListJobs)},
		{MethodName: "DeleteJob", Handler: unary("DeleteJob", JobServiceServer.DeleteJob)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "jobs/v1/jobs.proto",
}

// unary adapts a typed method to grpc.MethodHandler, running interceptors
// the same way generated code does.
func unary[Req any, PReq interface{ *Req }, Resp any](
	method string,
	call func(JobServiceServer, context.Context, PReq) (Resp, error),
) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(JobServiceServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(PReq))
		})
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// userIDFromCtx extracts the x-user-id value forwarded by the Gateway
// via gRPC metadata.
func userIDFromCtx(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("x-user-id")
	if len(vals) == 0 || vals[0] == "" {
		return "", status.Error(codes.Unauthenticated, "missing x-user-id metadata")
	}
	return vals[0], nil
}

func isAdmin(ctx context.Context) bool {
	md, _ := metadata.FromIncomingContext(ctx)
	vals := md.Get("x-user-admin")
	return len(vals) > 0 && strings.EqualFold(vals[0], "true")
}

// jobID narrows req to the int4 range of the id column. Anything outside
// it names no job.
func jobID(req *wrapperspb.Int64Value) (int, error) {
	v := req.GetValue()
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, status.Error(codes.NotFound, jobs.ErrNotFound.Error())
	}
	return int(v), nil
}

// toGRPCError maps domain errors to gRPC status errors.
func toGRPCError(err error) error {
	var ve *jobs.ValidationError
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, jobs.ErrConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, jobs.ErrConstraint):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &ve):
		return status.Error(codes.InvalidArgument, ve.Msg)
	}
	return status.Error(codes.Internal, "internal server error")
}

// filterFromStruct reads title (string), minSalary (number) and hasEquity
// (bool) from req; other fields are ignored.
func filterFromStruct(req *structpb.Struct) (jobs.FilterOptions, error) {
	var opts jobs.FilterOptions
	f := req.GetFields()
	if v, ok := f["title"]; ok {
		sv, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return opts, status.Error(codes.InvalidArgument, "title must be a string")
		}
		opts.Title = &sv.StringValue
	}
	if v, ok := f["minSalary"]; ok {
		nv, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return opts, status.Error(codes.InvalidArgument, "minSalary must be a number")
		}
		f := nv.NumberValue
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return opts, status.Error(codes.InvalidArgument, "minSalary must be an integer")
		}
		n := int(f)
		opts.MinSalary = &n
	}
	if v, ok := f["hasEquity"]; ok {
		bv, ok := v.GetKind().(*structpb.Value_BoolValue)
		if !ok {
			return opts, status.Error(codes.InvalidArgument, "hasEquity must be a bool")
		}
		opts.HasEquity = &bv.BoolValue
	}
	return opts, nil
}

// toStruct converts v to a Struct through its JSON form, so field names match
// the HTTP API exactly.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return st, nil
}
