package logger

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// requestIDMetadataKey is the incoming metadata key carrying a caller-provided request ID
const requestIDMetadataKey = "x-request-id"

// UnaryServerInterceptor returns a gRPC interceptor that logs every unary call
// and attaches a call-scoped logger to the handler context.
func UnaryServerInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		ctx, callLogger := WithRPCMethod(ctx, logger, info.FullMethod)
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(requestIDMetadataKey); len(ids) > 0 && ids[0] != "" {
				ctx, callLogger = WithRequestID(ctx, callLogger, ids[0])
			}
		}

		resp, err := handler(ctx, req)

		code := status.Code(err)
		fields := []zap.Field{
			zap.String("code", code.String()),
			zap.Duration("latency", time.Since(start)),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}

		msg := "gRPC Request"
		switch code {
		case codes.OK:
			callLogger.Info(msg, fields...)
		case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
			callLogger.Error(msg, fields...)
		default:
			callLogger.Warn(msg, fields...)
		}
		return resp, err
	}
}

// RecoveryUnaryInterceptor converts handler panics into codes.Internal
func RecoveryUnaryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic recovered",
					zap.String("rpc_method", info.FullMethod),
					zap.Any("error", r),
					zap.Stack("stacktrace"),
				)
				resp = nil
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}
