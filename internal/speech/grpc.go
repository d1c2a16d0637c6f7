package speech

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorFromGRPC converts an error returned by a gRPC speech client into a
// *ServiceError. Errors that carry no gRPC status (dial failures, context
// cancellation) are returned unchanged. A Canceled status caused by ctx
// itself is turned back into the context error.
func ErrorFromGRPC(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	if st.Code() == codes.Canceled && ctx.Err() != nil {
		return fmt.Errorf("%s: %w", st.Message(), ctx.Err())
	}
	return &ServiceError{
		Code:    errorCodeFromGRPC(st.Code()),
		Details: st.Message(),
	}
}

func errorCodeFromGRPC(c codes.Code) CancellationErrorCode {
	switch c {
	case codes.OK:
		return NoError
	case codes.Unauthenticated:
		return AuthenticationFailure
	case codes.PermissionDenied:
		return Forbidden
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange, codes.NotFound:
		return BadRequest
	case codes.ResourceExhausted:
		return TooManyRequests
	case codes.DeadlineExceeded:
		return ServiceTimeout
	case codes.Unavailable:
		return ServiceUnavailable
	case codes.Canceled:
		return ConnectionFailure
	default:
		return ServiceErrorCode
	}
}
