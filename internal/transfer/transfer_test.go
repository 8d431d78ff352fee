package transfer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/s3tool/s3tool/internal/keystore"
	"github.com/s3tool/s3tool/internal/retry"
	"github.com/s3tool/s3tool/internal/s3api"
)

// newTestEnv builds an Env with a fast retry policy and a key directory
// under the test's temp dir.
func newTestEnv(t *testing.T, api s3api.S3API, chunkSize int64) (*Env, string) {
	t.Helper()

	keyDir := t.TempDir()
	keys, err := keystore.NewDirProvider(keyDir)
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.ErrorLevel)

	env := NewEnv(Env{
		API: api,
		Retry: &retry.Executor{
			MaxAttempts:  3,
			InitialDelay: time.Microsecond,
			MaxDelay:     time.Millisecond,
		},
		Keys:      keys,
		ChunkSize: chunkSize,
		Log:       log,
	})
	return env, keyDir
}

// writeTestFile writes content into the test's temp dir and returns the path.
func writeTestFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

// assertFileContent compares a file's bytes against the expected content.
func assertFileContent(t *testing.T, path string, want []byte) {
	t.Helper()
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	if len(want) == 0 {
		require.Empty(t, got)
		return
	}
	require.Equal(t, want, got)
}

// patternBytes generates deterministic non-repeating test data.
func patternBytes(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte((i*7 + i/256) % 251)
	}
	return data
}
