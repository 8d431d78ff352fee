package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s3tool/s3tool/errors"
)

func TestParse_Unencrypted(t *testing.T) {
	meta := map[string]string{
		"s3tool-version":     "0.0",
		"s3tool-chunk-size":  "5242880",
		"s3tool-file-length": "12345",
	}

	info, present, err := Parse(meta)
	require.NoError(t, err)
	require.True(t, present)
	assert.False(t, info.Encrypted())
	assert.Equal(t, int64(5242880), info.ChunkSize)
	assert.Equal(t, int64(12345), info.FileLength)
}

func TestParse_Encrypted(t *testing.T) {
	meta := map[string]string{
		"s3tool-version":       "0.0",
		"s3tool-key-name":      "alice,bob",
		"s3tool-symmetric-key": "QUFB,QkJC",
		"s3tool-chunk-size":    "4194304",
		"s3tool-file-length":   "100",
	}

	info, present, err := Parse(meta)
	require.NoError(t, err)
	require.True(t, present)
	assert.True(t, info.Encrypted())
	assert.Equal(t, []string{"alice", "bob"}, info.KeyNames)
	assert.Equal(t, []string{"QUFB", "QkJC"}, info.WrappedKeys)
	assert.True(t, info.HasKey("bob"))
	assert.False(t, info.HasKey("carol"))
}

func TestParse_ForeignObject(t *testing.T) {
	info, present, err := Parse(map[string]string{"x-custom": "value"})
	require.NoError(t, err)
	assert.False(t, present)
	assert.Nil(t, info)
}

func TestParse_UnsupportedVersion(t *testing.T) {
	meta := map[string]string{
		"s3tool-version":     "9.9",
		"s3tool-chunk-size":  "5242880",
		"s3tool-file-length": "1",
	}

	_, present, err := Parse(meta)
	assert.True(t, present)
	assert.ErrorIs(t, err, errors.ErrUnsupportedVersion)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]string
	}{
		{
			name: "missing chunk size",
			meta: map[string]string{"s3tool-version": "0.0", "s3tool-file-length": "1"},
		},
		{
			name: "non-numeric length",
			meta: map[string]string{"s3tool-version": "0.0", "s3tool-chunk-size": "5", "s3tool-file-length": "abc"},
		},
		{
			name: "negative length",
			meta: map[string]string{"s3tool-version": "0.0", "s3tool-chunk-size": "5", "s3tool-file-length": "-1"},
		},
		{
			name: "key name without wrapped key",
			meta: map[string]string{
				"s3tool-version": "0.0", "s3tool-chunk-size": "5",
				"s3tool-file-length": "1", "s3tool-key-name": "alice",
			},
		},
		{
			name: "mismatched key lists",
			meta: map[string]string{
				"s3tool-version": "0.0", "s3tool-chunk-size": "5", "s3tool-file-length": "1",
				"s3tool-key-name": "alice,bob", "s3tool-symmetric-key": "QUFB",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, present, err := Parse(tt.meta)
			assert.True(t, present)
			assert.Error(t, err)
		})
	}
}

func TestApply_RoundTrip(t *testing.T) {
	info := &ObjectInfo{
		Version:     Version,
		KeyNames:    []string{"alice"},
		WrappedKeys: []string{"QUFB"},
		ChunkSize:   4194304,
		FileLength:  999,
	}

	meta := map[string]string{"x-custom": "kept"}
	info.Apply(meta)

	// foreign entries pass through untouched
	assert.Equal(t, "kept", meta["x-custom"])
	assert.Equal(t, "0.0", meta["s3tool-version"])

	got, present, err := Parse(meta)
	require.NoError(t, err)
	require.True(t, present)
	assert.Equal(t, info.KeyNames, got.KeyNames)
	assert.Equal(t, info.WrappedKeys, got.WrappedKeys)
	assert.Equal(t, info.ChunkSize, got.ChunkSize)
	assert.Equal(t, info.FileLength, got.FileLength)
}

func TestApply_StripsKeyEntriesWhenUnencrypted(t *testing.T) {
	meta := map[string]string{
		"s3tool-key-name":      "stale",
		"s3tool-symmetric-key": "stale",
	}

	info := &ObjectInfo{Version: Version, ChunkSize: 16, FileLength: 0}
	info.Apply(meta)

	_, hasName := meta["s3tool-key-name"]
	_, hasKey := meta["s3tool-symmetric-key"]
	assert.False(t, hasName)
	assert.False(t, hasKey)
}
