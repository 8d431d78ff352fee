package validation

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/s3tool/s3tool/errors"
	"github.com/s3tool/s3tool/internal/chunk"
	"github.com/s3tool/s3tool/internal/retry"
	"github.com/s3tool/s3tool/s3types"
)

// ValidateBucketName validates that a bucket name is DNS-compliant according
// to AWS S3 rules. Returns ErrInvalidBucketName if the bucket name is invalid.
func ValidateBucketName(bucket string) error {
	if bucket == "" {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage("bucket name cannot be empty")
	}

	if len(bucket) < 3 || len(bucket) > 63 {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage("bucket name must be between 3 and 63 characters long")
	}

	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
				WithBucket(bucket).
				WithMessage("bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}

	if bucket[0] == '-' || bucket[0] == '.' || bucket[len(bucket)-1] == '-' || bucket[len(bucket)-1] == '.' {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage("bucket name cannot start or end with a hyphen or dot")
	}

	if isIPAddress(bucket) {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage("bucket name cannot be formatted as an IP address")
	}

	if hasAdjacentSpecialChars(bucket) {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage("bucket name cannot contain two adjacent periods or hyphens")
	}

	return nil
}

// ValidateObjectKey validates that an object key is valid according to AWS S3
// rules. This includes preventing path traversal and control characters.
func ValidateObjectKey(key string) error {
	if key == "" {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot be empty")
	}

	if hasPathTraversal(key) {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot contain path traversal sequences")
	}

	// S3 supports keys up to 1024 bytes
	if len(key) > 1024 {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot exceed 1024 characters")
	}

	for _, char := range key {
		if unicode.IsControl(char) {
			return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
				WithKey(key).
				WithMessage("object key cannot contain control characters")
		}
	}

	return nil
}

// ValidateChunkSize validates a plaintext chunk size. Encrypted transfers
// additionally require block alignment so parts stay independent CBC streams.
func ValidateChunkSize(size int64, encrypted bool) error {
	if size <= 0 {
		return errors.NewError("validateChunkSize", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("chunk size must be positive, got %d", size))
	}
	if encrypted && size%chunk.BlockSize != 0 {
		return errors.NewError("validateChunkSize", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("chunk size %d must be a multiple of %d for encrypted transfers",
				size, chunk.BlockSize))
	}
	return nil
}

// ValidateRetryCount validates the configured retry budget.
func ValidateRetryCount(count int) error {
	if count < 0 || count > retry.MaxAttemptsLimit {
		return errors.NewError("validateRetryCount", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("retry count must be between 0 and %d, got %d",
				retry.MaxAttemptsLimit, count))
	}
	return nil
}

// ValidateACL validates that a canned ACL is one the tool accepts. An empty
// value is allowed and means the client default applies.
func ValidateACL(acl s3types.ObjectACL) error {
	if acl == "" {
		return nil
	}
	for _, valid := range s3types.AllACLs() {
		if acl == valid {
			return nil
		}
	}

	names := make([]string, 0, len(s3types.AllACLs()))
	for _, a := range s3types.AllACLs() {
		names = append(names, string(a))
	}
	return errors.NewError("validateACL", errors.ErrInvalidInput).
		WithMessage("ACL must be one of: " + strings.Join(names, ", "))
}

// ValidateKeyName validates an encryption key name. Key names become file
// names under the key directory and metadata list entries, so path
// separators and commas are rejected.
func ValidateKeyName(name string) error {
	if name == "" {
		return errors.NewError("validateKeyName", errors.ErrInvalidInput).
			WithMessage("key name cannot be empty")
	}
	if strings.ContainsAny(name, `/\,`) {
		return errors.NewError("validateKeyName", errors.ErrInvalidInput).
			WithMessage("key name cannot contain path separators or commas")
	}
	return nil
}

// ValidateMetadata validates user metadata keys and values according to S3
// rules, and rejects entries that would collide with the tool's own
// metadata contract.
func ValidateMetadata(metadata map[string]string) error {
	for key, value := range metadata {
		if err := validateMetadataKey(key); err != nil {
			return err
		}
		if err := validateMetadataValue(value); err != nil {
			return err
		}
	}
	return nil
}

func validateMetadataKey(key string) error {
	if key == "" {
		return errors.NewError("validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata key cannot be empty")
	}

	if len(key) > 128 {
		return errors.NewError("validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata key cannot exceed 128 characters")
	}

	if strings.HasPrefix(strings.ToLower(key), "s3tool-") {
		return errors.NewError("validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata key cannot use the reserved s3tool- prefix")
	}

	reservedPrefixes := []string{"aws:", "x-amz-"}
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(strings.ToLower(key), prefix) {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage(fmt.Sprintf("metadata key cannot start with reserved prefix: %s", prefix))
		}
	}

	for _, char := range key {
		if char < 33 || char > 126 {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage("metadata key can only contain printable ASCII characters")
		}
	}

	return nil
}

func validateMetadataValue(value string) error {
	// S3 metadata values can be up to 2KB
	if len(value) > 2048 {
		return errors.NewError("validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata value cannot exceed 2048 characters")
	}

	for _, char := range value {
		if !unicode.IsPrint(char) && char != '\n' && char != '\t' {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage("metadata value can only contain printable characters")
		}
	}

	return nil
}

// isValidBucketChar checks if a character is valid in a bucket name
func isValidBucketChar(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') || char == '.' || char == '-'
}

// hasAdjacentSpecialChars checks for adjacent special characters
func hasAdjacentSpecialChars(bucket string) bool {
	for i := 0; i < len(bucket)-1; i++ {
		if (bucket[i] == '.' && bucket[i+1] == '.') || (bucket[i] == '-' && bucket[i+1] == '-') {
			return true
		}
	}
	return false
}

// isIPAddress checks if a string is formatted as an IP address
func isIPAddress(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}

	for _, part := range parts {
		if len(part) == 0 {
			return true
		}
		num := 0
		for _, char := range part {
			if char < '0' || char > '9' {
				return false
			}
			num = num*10 + int(char-'0')
		}
		if num > 255 {
			return false
		}
	}

	return true
}

// hasPathTraversal checks for path traversal attempts in object keys
func hasPathTraversal(key string) bool {
	if strings.Contains(key, "..") {
		return true
	}

	cleaned := filepath.Clean(key)
	if strings.HasPrefix(cleaned, "..") || strings.HasPrefix(cleaned, "/") {
		return true
	}

	return false
}
