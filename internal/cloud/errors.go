package cloud

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// Error taxonomy. Every provider error is classified into exactly one of
// these before it crosses a stage boundary, so stages decide retry vs abort
// on class, never on provider-specific codes.
var (
	// ErrDependencyBlocked: retriable within a stage, escalates across
	// stages if it persists.
	ErrDependencyBlocked = errors.New("dependency blocked")
	// ErrTimeout: retriable per the retry policy.
	ErrTimeout = errors.New("timeout")
	// ErrPermissionDenied: fatal for the affected action only.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrProviderUnavailable: fatal for the whole run.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrLockConflict: another process holds the manifest lock.
	ErrLockConflict = errors.New("manifest lock conflict")
)

type classified struct {
	class error
	err   error
}

func (c *classified) Error() string {
	return fmt.Sprintf("%s: %s", c.class.Error(), c.err.Error())
}

func (c *classified) Unwrap() []error { return []error{c.class, c.err} }

// Classify wraps err with its taxonomy class. Already-classified errors
// pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, class := range []error{ErrDependencyBlocked, ErrTimeout, ErrPermissionDenied, ErrProviderUnavailable, ErrLockConflict} {
		if errors.Is(err, class) {
			return err
		}
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "AccessDenied", "AccessDeniedException", "UnauthorizedOperation", "UnauthorizedAccess":
			return &classified{class: ErrPermissionDenied, err: err}
		case "DependencyViolation", "ResourceInUse", "ResourceInUseException", "ResourceConflictException":
			return &classified{class: ErrDependencyBlocked, err: err}
		case "RequestTimeout", "RequestTimeoutException":
			return &classified{class: ErrTimeout, err: err}
		case "ServiceUnavailable", "InternalError", "InternalFailure":
			return &classified{class: ErrProviderUnavailable, err: err}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &classified{class: ErrTimeout, err: err}
	}

	if isUnreachable(err) {
		return &classified{class: ErrProviderUnavailable, err: err}
	}

	return err
}

// Retryable reports whether an error class may succeed on a later attempt.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrProviderUnavailable) {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrDependencyBlocked) || errors.Is(err, ErrLockConflict) {
		return true
	}
	return isThrottle(err)
}

// IsNotFound reports provider "already gone" responses, which idempotent
// deletes treat as success.
func IsNotFound(err error) bool {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "NotFound", "NoSuchBucket", "NoSuchEntity", "ResourceNotFoundException",
			"InvalidNetworkInterfaceID.NotFound", "LoadBalancerNotFound", "TargetGroupNotFound":
			return true
		}
	}
	return false
}

func isThrottle(err error) bool {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "Throttling", "ThrottlingException", "TooManyRequestsException", "RequestLimitExceeded", "SlowDown":
			return true
		}
	}
	return false
}

func isUnreachable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"no such host",
		"i/o timeout",
		"tls handshake",
		"temporary failure",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
