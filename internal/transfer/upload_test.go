package transfer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3toolerrors "github.com/s3tool/s3tool/errors"
	"github.com/s3tool/s3tool/internal/chunk"
	"github.com/s3tool/s3tool/internal/keystore"
	"github.com/s3tool/s3tool/internal/metadata"
	"github.com/s3tool/s3tool/internal/testutil"
)

func TestUploader_Upload_Unencrypted(t *testing.T) {
	store := testutil.NewFakeStore()
	env, _ := newTestEnv(t, store.Client(), 1024)

	content := patternBytes(3000)
	file := writeTestFile(t, "data.bin", content)

	result, err := NewUploader(env).Upload(context.Background(), UploadRequest{
		Bucket: "bucket",
		Key:    "path/data.bin",
		File:   file,
	})
	require.NoError(t, err)
	assert.Equal(t, "bucket", result.Bucket)
	assert.Equal(t, "path/data.bin", result.Key)
	assert.Equal(t, int64(3000), aws.ToInt64(result.Size))

	obj := store.Object("bucket", "path/data.bin")
	require.NotNil(t, obj)
	assert.Equal(t, content, obj.Data)

	assert.Equal(t, "0.0", obj.Metadata["s3tool-version"])
	assert.Equal(t, "1024", obj.Metadata["s3tool-chunk-size"])
	assert.Equal(t, "3000", obj.Metadata["s3tool-file-length"])
	_, hasKey := obj.Metadata["s3tool-key-name"]
	assert.False(t, hasKey)

	assert.Equal(t, "bucket-owner-full-control", obj.ACL)
	assert.Equal(t, 0, store.PendingUploadCount())
}

func TestUploader_Upload_Encrypted(t *testing.T) {
	store := testutil.NewFakeStore()
	env, keyDir := newTestEnv(t, store.Client(), 1024)
	_, err := keystore.GenerateKeyPair(keyDir, "alice", 2048)
	require.NoError(t, err)

	content := patternBytes(3000)
	file := writeTestFile(t, "data.bin", content)

	_, err = NewUploader(env).Upload(context.Background(), UploadRequest{
		Bucket:  "bucket",
		Key:     "enc.bin",
		File:    file,
		KeyName: "alice",
	})
	require.NoError(t, err)

	obj := store.Object("bucket", "enc.bin")
	require.NotNil(t, obj)

	// ciphertext geometry: 3 parts of 1024/1024/952 plaintext bytes
	assert.Equal(t, chunk.TotalCipherLen(3000, 1024, true), int64(len(obj.Data)))
	assert.NotEqual(t, content, obj.Data)

	assert.Equal(t, "alice", obj.Metadata["s3tool-key-name"])
	assert.NotEmpty(t, obj.Metadata["s3tool-symmetric-key"])
	assert.Equal(t, "3000", obj.Metadata["s3tool-file-length"])

	// plaintext round trip through the matching download path
	dest := writeTestFile(t, "out.bin", nil)
	_, err = NewDownloader(env).Download(context.Background(), DownloadRequest{
		Bucket:    "bucket",
		Key:       "enc.bin",
		File:      dest,
		Overwrite: true,
	})
	require.NoError(t, err)
	assertFileContent(t, dest, content)
}

func TestUploader_Upload_ZeroLength(t *testing.T) {
	tests := []struct {
		name    string
		keyName string
		wantLen int64
	}{
		{name: "unencrypted", wantLen: 0},
		{name: "encrypted", keyName: "alice", wantLen: 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewFakeStore()
			env, keyDir := newTestEnv(t, store.Client(), 1024)
			if tt.keyName != "" {
				_, err := keystore.GenerateKeyPair(keyDir, tt.keyName, 2048)
				require.NoError(t, err)
			}

			file := writeTestFile(t, "empty.bin", nil)
			result, err := NewUploader(env).Upload(context.Background(), UploadRequest{
				Bucket:  "bucket",
				Key:     "empty.bin",
				File:    file,
				KeyName: tt.keyName,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(0), aws.ToInt64(result.Size))

			obj := store.Object("bucket", "empty.bin")
			require.NotNil(t, obj)
			// a zero-length file still produces exactly one part
			assert.Equal(t, tt.wantLen, int64(len(obj.Data)))
			assert.Equal(t, "0", obj.Metadata["s3tool-file-length"])
		})
	}
}

func TestUploader_Upload_PartRetried(t *testing.T) {
	store := testutil.NewFakeStore()
	client := store.Client()

	// part 2 fails once, then succeeds; other parts are untouched
	var failed atomic.Bool
	inner := client.UploadPartFunc
	client.UploadPartFunc = func(ctx context.Context, in *s3.UploadPartInput, opts ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
		if aws.ToInt32(in.PartNumber) == 2 && failed.CompareAndSwap(false, true) {
			return nil, errors.New("transient failure")
		}
		return inner(ctx, in, opts...)
	}

	env, _ := newTestEnv(t, client, 1024)
	content := patternBytes(3000)
	file := writeTestFile(t, "data.bin", content)

	_, err := NewUploader(env).Upload(context.Background(), UploadRequest{
		Bucket: "bucket",
		Key:    "data.bin",
		File:   file,
	})
	require.NoError(t, err)

	obj := store.Object("bucket", "data.bin")
	require.NotNil(t, obj)
	assert.Equal(t, content, obj.Data)
}

func TestUploader_Upload_AbortsOnPartFailure(t *testing.T) {
	store := testutil.NewFakeStore()
	client := store.Client()

	inner := client.UploadPartFunc
	client.UploadPartFunc = func(ctx context.Context, in *s3.UploadPartInput, opts ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
		if aws.ToInt32(in.PartNumber) == 2 {
			return nil, errors.New("persistent failure")
		}
		return inner(ctx, in, opts...)
	}

	env, _ := newTestEnv(t, client, 1024)
	file := writeTestFile(t, "data.bin", patternBytes(3000))

	_, err := NewUploader(env).Upload(context.Background(), UploadRequest{
		Bucket: "bucket",
		Key:    "data.bin",
		File:   file,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uploading part 2")

	// failed upload leaves no object and no orphaned multipart state
	assert.Nil(t, store.Object("bucket", "data.bin"))
	assert.Equal(t, 0, store.PendingUploadCount())
}

func TestUploader_Upload_CancelledDuringParts(t *testing.T) {
	store := testutil.NewFakeStore()
	client := store.Client()

	// the first part to reach the service cancels the transfer mid-flight,
	// the way an interrupted SDK call would surface it
	ctx, cancel := context.WithCancel(context.Background())
	client.UploadPartFunc = func(ctx context.Context, in *s3.UploadPartInput, opts ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
		cancel()
		return nil, ctx.Err()
	}
	var aborted atomic.Bool
	innerAbort := client.AbortMultipartUploadFunc
	client.AbortMultipartUploadFunc = func(ctx context.Context, in *s3.AbortMultipartUploadInput, opts ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
		aborted.Store(true)
		return innerAbort(ctx, in, opts...)
	}

	env, _ := newTestEnv(t, client, 1024)
	file := writeTestFile(t, "data.bin", patternBytes(3000))

	_, err := NewUploader(env).Upload(ctx, UploadRequest{
		Bucket: "bucket",
		Key:    "data.bin",
		File:   file,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// the cancelled transfer still tears down its multipart session
	assert.True(t, aborted.Load())
	assert.Nil(t, store.Object("bucket", "data.bin"))
	assert.Equal(t, 0, store.PendingUploadCount())
}

func TestUploader_Upload_EncryptedPartLengths(t *testing.T) {
	store := testutil.NewFakeStore()
	client := store.Client()

	// record the declared content length of every part
	var mu sync.Mutex
	lengths := map[int32]int64{}
	inner := client.UploadPartFunc
	client.UploadPartFunc = func(ctx context.Context, in *s3.UploadPartInput, opts ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
		mu.Lock()
		lengths[aws.ToInt32(in.PartNumber)] = aws.ToInt64(in.ContentLength)
		mu.Unlock()
		return inner(ctx, in, opts...)
	}

	env, keyDir := newTestEnv(t, client, 1024)
	_, err := keystore.GenerateKeyPair(keyDir, "alice", 2048)
	require.NoError(t, err)

	file := writeTestFile(t, "data.bin", patternBytes(2500))
	_, err = NewUploader(env).Upload(context.Background(), UploadRequest{
		Bucket:  "bucket",
		Key:     "data.bin",
		File:    file,
		KeyName: "alice",
	})
	require.NoError(t, err)

	require.Len(t, lengths, 3)
	assert.Equal(t, chunk.CipherLen(1024), lengths[1])
	assert.Equal(t, chunk.CipherLen(1024), lengths[2])
	assert.Equal(t, chunk.CipherLen(452), lengths[3])
}

func TestUploader_Upload_MissingPublicKey(t *testing.T) {
	store := testutil.NewFakeStore()
	env, _ := newTestEnv(t, store.Client(), 1024)

	file := writeTestFile(t, "data.bin", patternBytes(100))
	_, err := NewUploader(env).Upload(context.Background(), UploadRequest{
		Bucket:  "bucket",
		Key:     "data.bin",
		File:    file,
		KeyName: "ghost",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, s3toolerrors.ErrMissingKey)
}

func TestUploader_Upload_UserMetadataPreserved(t *testing.T) {
	store := testutil.NewFakeStore()
	env, _ := newTestEnv(t, store.Client(), 1024)

	file := writeTestFile(t, "data.bin", patternBytes(100))
	_, err := NewUploader(env).Upload(context.Background(), UploadRequest{
		Bucket:   "bucket",
		Key:      "data.bin",
		File:     file,
		Metadata: map[string]string{"team": "storage"},
	})
	require.NoError(t, err)

	obj := store.Object("bucket", "data.bin")
	require.NotNil(t, obj)
	assert.Equal(t, "storage", obj.Metadata["team"])
	assert.Equal(t, metadata.Version, obj.Metadata["s3tool-version"])
}
