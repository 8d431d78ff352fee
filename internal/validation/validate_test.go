package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/s3tool/s3tool/s3types"
)

func TestValidateBucketName(t *testing.T) {
	tests := []struct {
		name      string
		bucket    string
		wantError bool
		errMsg    string
	}{
		// Valid bucket names
		{"valid_simple", "my-bucket", false, ""},
		{"valid_with_numbers", "my-bucket123", false, ""},
		{"valid_with_dots", "my.bucket", false, ""},
		{"valid_min_length", "abc", false, ""},
		{"valid_max_length", strings.Repeat("a", 63), false, ""},
		{"valid_starts_with_number", "1bucket", false, ""},

		// Invalid bucket names
		{"empty", "", true, "bucket name cannot be empty"},
		{"too_short", "ab", true, "bucket name must be between 3 and 63 characters long"},
		{"too_long", strings.Repeat("a", 64), true, "bucket name must be between 3 and 63 characters long"},
		{"starts_with_hyphen", "-bucket", true, "bucket name cannot start or end with a hyphen or dot"},
		{"ends_with_dot", "bucket.", true, "bucket name cannot start or end with a hyphen or dot"},
		{"contains_uppercase", "MyBucket", true, "bucket name can only contain lowercase letters, numbers, dots, and hyphens"},
		{"contains_underscore", "my_bucket", true, "bucket name can only contain lowercase letters, numbers, dots, and hyphens"},
		{"ip_address", "192.168.1.1", true, "bucket name cannot be formatted as an IP address"},
		{"double_dots", "my..bucket", true, "bucket name cannot contain two adjacent periods or hyphens"},
		{"double_hyphens", "my--bucket", true, "bucket name cannot contain two adjacent periods or hyphens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBucketName(tt.bucket)
			if tt.wantError {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateObjectKey(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		wantError bool
	}{
		{"valid_simple", "file.txt", false},
		{"valid_nested", "path/to/file.txt", false},
		{"valid_unicode", "日本語/ファイル.txt", false},
		{"valid_max_length", strings.Repeat("a", 1024), false},

		{"empty", "", true},
		{"too_long", strings.Repeat("a", 1025), true},
		{"traversal", "path/../../etc/passwd", true},
		{"leading_slash", "/etc/passwd", true},
		{"control_char", "file\x00.txt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateObjectKey(tt.key)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateChunkSize(t *testing.T) {
	tests := []struct {
		name      string
		size      int64
		encrypted bool
		wantError bool
	}{
		{"valid_plain", 5 * 1024 * 1024, false, false},
		{"valid_odd_plain", 1000, false, false},
		{"valid_encrypted_aligned", 4 * 1024 * 1024, true, false},
		{"zero", 0, false, true},
		{"negative", -1, false, true},
		{"encrypted_unaligned", 1000, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunkSize(tt.size, tt.encrypted)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRetryCount(t *testing.T) {
	assert.NoError(t, ValidateRetryCount(0))
	assert.NoError(t, ValidateRetryCount(10))
	assert.NoError(t, ValidateRetryCount(50))
	assert.Error(t, ValidateRetryCount(-1))
	assert.Error(t, ValidateRetryCount(51))
}

func TestValidateACL(t *testing.T) {
	// empty means the client default applies
	assert.NoError(t, ValidateACL(""))

	for _, acl := range s3types.AllACLs() {
		assert.NoError(t, ValidateACL(acl), "acl=%s", acl)
	}

	assert.Error(t, ValidateACL("world-writable"))
	assert.Error(t, ValidateACL("PRIVATE"))
}

func TestValidateKeyName(t *testing.T) {
	assert.NoError(t, ValidateKeyName("alice"))
	assert.NoError(t, ValidateKeyName("team-key.2024"))

	assert.Error(t, ValidateKeyName(""))
	assert.Error(t, ValidateKeyName("a/b"))
	assert.Error(t, ValidateKeyName(`a\b`))
	assert.Error(t, ValidateKeyName("a,b"))
}

func TestValidateMetadata(t *testing.T) {
	assert.NoError(t, ValidateMetadata(nil))
	assert.NoError(t, ValidateMetadata(map[string]string{"team": "storage"}))

	tests := []struct {
		name string
		meta map[string]string
	}{
		{"empty_key", map[string]string{"": "v"}},
		{"long_key", map[string]string{strings.Repeat("k", 129): "v"}},
		{"reserved_tool_prefix", map[string]string{"s3tool-version": "1.0"}},
		{"reserved_aws_prefix", map[string]string{"x-amz-meta-x": "v"}},
		{"key_with_space", map[string]string{"my key": "v"}},
		{"long_value", map[string]string{"k": strings.Repeat("v", 2049)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidateMetadata(tt.meta))
		})
	}
}
