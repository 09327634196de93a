package errors

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aws/smithy-go"
)

// sentinels lists every classification target so already-classified errors
// pass through Classify untouched.
var sentinels = []error{
	ErrStoreUnavailable,
	ErrAccessDenied,
	ErrAmbiguousMapping,
	ErrObjectNotFound,
	ErrBucketNotFound,
	ErrInvalidInput,
	ErrInvalidBucketName,
	ErrInvalidObjectKey,
	ErrUnsupported,
}

// Classify maps AWS SDK and transport errors onto the package sentinels so
// callers can drive retry decisions with errors.Is. Errors that already
// match a sentinel are returned unchanged; unrecognized errors are returned
// unchanged and treated as terminal.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %s", ErrObjectNotFound, apiErr.ErrorMessage())
		case "NoSuchBucket":
			return fmt.Errorf("%w: %s", ErrBucketNotFound, apiErr.ErrorMessage())
		case "AccessDenied", "AccessDeniedException", "InvalidAccessKeyId",
			"SignatureDoesNotMatch", "ExpiredToken", "TokenRefreshRequired":
			return fmt.Errorf("%w: %s: %s", ErrAccessDenied, apiErr.ErrorCode(), apiErr.ErrorMessage())
		case "SlowDown", "Throttling", "ThrottlingException", "RequestLimitExceeded",
			"RequestTimeout", "RequestTimeoutException", "ServiceUnavailable", "InternalError":
			return fmt.Errorf("%w: %s: %s", ErrStoreUnavailable, apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return err
	}

	// Transport-level failures: timeouts and broken connections are
	// transient, everything else stays terminal.
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return err
}
