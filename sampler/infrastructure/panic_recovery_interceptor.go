package infrastructure

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"github.com/samoilenko/sensorlog/sampler/domain"
)

var errInternal = errors.New("internal server error")

// PanicRecoveryInterceptor turns panics in control handlers into CodeInternal errors.
type PanicRecoveryInterceptor struct {
	logger domain.Logger
}

// WrapUnary implements connect.Interceptor.
func (i *PanicRecoveryInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (resp connect.AnyResponse, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				i.logger.Error("panic in %s: %v", req.Spec().Procedure, rec)
				resp = nil
				err = connect.NewError(connect.CodeInternal, errInternal)
			}
		}()
		return next(ctx, req)
	}
}

// WrapStreamingClient implements connect.Interceptor; clients are passed through.
func (i *PanicRecoveryInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

// WrapStreamingHandler implements connect.Interceptor.
func (i *PanicRecoveryInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				i.logger.Error("panic in stream %s: %v", conn.Spec().Procedure, rec)
				err = connect.NewError(connect.CodeInternal, errInternal)
			}
		}()
		return next(ctx, conn)
	}
}

// NewPanicRecoveryInterceptor creates the interceptor.
func NewPanicRecoveryInterceptor(logger domain.Logger) *PanicRecoveryInterceptor {
	return &PanicRecoveryInterceptor{logger: logger}
}
