// Package errors provides error types and classification for S3 transfer operations.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// Error represents a transfer operation error with context about the operation
// that failed. It wraps the underlying AWS SDK error (or a local error such as
// a file or key problem) with the bucket and key involved.
type Error struct {
	// Op is the operation that failed (e.g., "upload", "download", "copy")
	Op string

	// Bucket is the S3 bucket name (if applicable)
	Bucket string

	// Key is the S3 object key (if applicable)
	Key string

	// Err is the underlying error from the AWS SDK or other source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("s3tool.%s s3://%s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("s3tool.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("s3tool.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("s3tool.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// Sentinel errors for common transfer failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("s3tool: object not found")

	// ErrBucketNotFound indicates that the requested bucket does not exist
	ErrBucketNotFound = errors.New("s3tool: bucket not found")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("s3tool: access denied")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("s3tool: invalid input")

	// ErrInvalidBucketName indicates that the bucket name is invalid
	ErrInvalidBucketName = errors.New("s3tool: invalid bucket name")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("s3tool: invalid object key")

	// ErrMissingKey indicates that a named encryption key could not be found
	// in the local key directory
	ErrMissingKey = errors.New("s3tool: encryption key not found")

	// ErrUnsupportedVersion indicates that the object was written by an
	// incompatible tool version
	ErrUnsupportedVersion = errors.New("s3tool: unsupported object version")

	// ErrNotEncrypted indicates that a key-management operation was attempted
	// on an object that carries no encryption metadata
	ErrNotEncrypted = errors.New("s3tool: object is not encrypted")

	// ErrKeyExists indicates that the object is already encrypted to the
	// named key
	ErrKeyExists = errors.New("s3tool: key already attached to object")

	// ErrLastKeyRemoval indicates an attempt to remove the only key an
	// encrypted object is wrapped to, which would make it unreadable
	ErrLastKeyRemoval = errors.New("s3tool: cannot remove the last encryption key")

	// ErrWrongKeyLength indicates that an unwrapped symmetric key did not
	// have the expected length
	ErrWrongKeyLength = errors.New("s3tool: unwrapped key has wrong length")

	// ErrCrypto indicates a failure while encrypting or decrypting object
	// data or key material
	ErrCrypto = errors.New("s3tool: cryptographic operation failed")

	// ErrUnexpectedEOF indicates that an object body ended before the length
	// recorded in its metadata
	ErrUnexpectedEOF = errors.New("s3tool: unexpected end of object data")
)

// IsObjectNotFound checks if an error indicates that an object was not found.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsBucketNotFound checks if an error indicates that a bucket was not found.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsAccessDenied checks if an error indicates access was denied.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsMissingKey checks if an error indicates a missing encryption key.
func IsMissingKey(err error) bool {
	return errors.Is(err, ErrMissingKey)
}

// terminal errors are never worth retrying: bad input, key problems, and
// metadata the tool cannot interpret stay broken on every attempt.
var terminal = []error{
	ErrInvalidInput,
	ErrInvalidBucketName,
	ErrInvalidObjectKey,
	ErrMissingKey,
	ErrUnsupportedVersion,
	ErrNotEncrypted,
	ErrKeyExists,
	ErrLastKeyRemoval,
	ErrWrongKeyLength,
	ErrCrypto,
}

// IsRetryable reports whether retrying the failed operation could plausibly
// succeed. Context cancellation and the terminal sentinel errors above are
// not retryable; everything else (network faults, service errors, throttling)
// is.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	for _, t := range terminal {
		if errors.Is(err, t) {
			return false
		}
	}
	return true
}

// IsClientError reports whether the error is a client-fault service error
// (HTTP 4xx) that is not a throttling response. Throttling is classified as a
// server-side condition because backing off and retrying is the correct
// reaction to it.
func IsClientError(err error) bool {
	var re *smithyhttp.ResponseError
	if errors.As(err, &re) {
		code := re.HTTPStatusCode()
		if code == http.StatusTooManyRequests {
			return false
		}
		if code >= 400 && code < 500 {
			var ae smithy.APIError
			if errors.As(err, &ae) && isThrottleCode(ae.ErrorCode()) {
				return false
			}
			return true
		}
		return false
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		if isThrottleCode(ae.ErrorCode()) {
			return false
		}
		return ae.ErrorFault() == smithy.FaultClient
	}
	return false
}

func isThrottleCode(code string) bool {
	switch code {
	case "Throttling", "ThrottlingException", "RequestLimitExceeded",
		"SlowDown", "TooManyRequestsException", "ProvisionedThroughputExceededException":
		return true
	}
	return false
}
