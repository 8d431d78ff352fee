package transfer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s3tool/s3tool/internal/keystore"
	"github.com/s3tool/s3tool/internal/testutil"
)

func TestCopier_Copy_ToolObject(t *testing.T) {
	store := testutil.NewFakeStore()
	content := patternBytes(3000)
	seedToolObject(store, "src-bucket", "src.bin", content, 1024)

	env, _ := newTestEnv(t, store.Client(), 512)

	result, err := NewCopier(env).Copy(context.Background(), CopyRequest{
		SrcBucket: "src-bucket",
		SrcKey:    "src.bin",
		DstBucket: "dst-bucket",
		DstKey:    "dst.bin",
	})
	require.NoError(t, err)
	assert.Equal(t, "dst-bucket", result.Bucket)
	assert.Equal(t, "dst.bin", result.Key)

	dst := store.Object("dst-bucket", "dst.bin")
	require.NotNil(t, dst)
	assert.Equal(t, content, dst.Data)

	// chunk geometry travels with the object, not the client default
	assert.Equal(t, "1024", dst.Metadata["s3tool-chunk-size"])
	assert.Equal(t, "3000", dst.Metadata["s3tool-file-length"])
}

func TestCopier_Copy_EncryptedWithoutKeys(t *testing.T) {
	store := testutil.NewFakeStore()
	env, keyDir := newTestEnv(t, store.Client(), 1024)
	_, err := keystore.GenerateKeyPair(keyDir, "alice", 2048)
	require.NoError(t, err)

	content := patternBytes(5000)
	file := writeTestFile(t, "data.bin", content)
	_, err = NewUploader(env).Upload(context.Background(), UploadRequest{
		Bucket:  "bucket",
		Key:     "enc.bin",
		File:    file,
		KeyName: "alice",
	})
	require.NoError(t, err)
	srcData := store.Object("bucket", "enc.bin").Data

	// the copier holds no keys at all; ciphertext moves verbatim
	keyless, _ := newTestEnv(t, store.Client(), 1024)
	_, err = NewCopier(keyless).Copy(context.Background(), CopyRequest{
		SrcBucket: "bucket",
		SrcKey:    "enc.bin",
		DstBucket: "bucket",
		DstKey:    "enc-copy.bin",
	})
	require.NoError(t, err)

	dst := store.Object("bucket", "enc-copy.bin")
	require.NotNil(t, dst)
	assert.Equal(t, srcData, dst.Data)
	assert.Equal(t, "alice", dst.Metadata["s3tool-key-name"])

	// the original key holder can still read the copy
	dest := filepath.Join(t.TempDir(), "out.bin")
	_, err = NewDownloader(env).Download(context.Background(), DownloadRequest{
		Bucket: "bucket",
		Key:    "enc-copy.bin",
		File:   dest,
	})
	require.NoError(t, err)
	assertFileContent(t, dest, content)
}

func TestCopier_Copy_ForeignSourceGetsMetadata(t *testing.T) {
	store := testutil.NewFakeStore()
	content := patternBytes(2000)
	store.Put("bucket", "foreign.bin", testutil.FakeObject{
		Data:     content,
		Metadata: map[string]string{"origin": "elsewhere"},
	})

	env, _ := newTestEnv(t, store.Client(), 1024)
	_, err := NewCopier(env).Copy(context.Background(), CopyRequest{
		SrcBucket: "bucket",
		SrcKey:    "foreign.bin",
		DstBucket: "bucket",
		DstKey:    "adopted.bin",
	})
	require.NoError(t, err)

	dst := store.Object("bucket", "adopted.bin")
	require.NotNil(t, dst)
	assert.Equal(t, content, dst.Data)

	// tool metadata is synthesized so the destination conforms
	assert.Equal(t, "0.0", dst.Metadata["s3tool-version"])
	assert.Equal(t, "1024", dst.Metadata["s3tool-chunk-size"])
	assert.Equal(t, "2000", dst.Metadata["s3tool-file-length"])

	// foreign metadata passes through
	assert.Equal(t, "elsewhere", dst.Metadata["origin"])
}

func TestCopier_Copy_ZeroLength(t *testing.T) {
	store := testutil.NewFakeStore()
	store.Put("bucket", "empty.bin", testutil.FakeObject{})

	var sawRange bool
	client := store.Client()
	inner := client.UploadPartCopyFunc
	client.UploadPartCopyFunc = func(ctx context.Context, in *s3.UploadPartCopyInput, opts ...func(*s3.Options)) (*s3.UploadPartCopyOutput, error) {
		if in.CopySourceRange != nil {
			sawRange = true
		}
		return inner(ctx, in, opts...)
	}

	env, _ := newTestEnv(t, client, 1024)
	_, err := NewCopier(env).Copy(context.Background(), CopyRequest{
		SrcBucket: "bucket",
		SrcKey:    "empty.bin",
		DstBucket: "bucket",
		DstKey:    "empty-copy.bin",
	})
	require.NoError(t, err)

	// a zero-length source copies as one part with no range header
	assert.False(t, sawRange)
	dst := store.Object("bucket", "empty-copy.bin")
	require.NotNil(t, dst)
	assert.Empty(t, dst.Data)
	assert.Equal(t, "0", dst.Metadata["s3tool-file-length"])
}

func TestCopier_Copy_AbortsOnPartFailure(t *testing.T) {
	store := testutil.NewFakeStore()
	seedToolObject(store, "bucket", "src.bin", patternBytes(3000), 1024)

	client := store.Client()
	inner := client.UploadPartCopyFunc
	client.UploadPartCopyFunc = func(ctx context.Context, in *s3.UploadPartCopyInput, opts ...func(*s3.Options)) (*s3.UploadPartCopyOutput, error) {
		if aws.ToInt32(in.PartNumber) == 3 {
			return nil, errors.New("persistent failure")
		}
		return inner(ctx, in, opts...)
	}

	env, _ := newTestEnv(t, client, 1024)
	_, err := NewCopier(env).Copy(context.Background(), CopyRequest{
		SrcBucket: "bucket",
		SrcKey:    "src.bin",
		DstBucket: "bucket",
		DstKey:    "dst.bin",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copying part 3")
	assert.Nil(t, store.Object("bucket", "dst.bin"))
	assert.Equal(t, 0, store.PendingUploadCount())
}

func TestCopier_Copy_UserMetadataMerged(t *testing.T) {
	store := testutil.NewFakeStore()
	seedToolObject(store, "bucket", "src.bin", patternBytes(100), 1024)

	env, _ := newTestEnv(t, store.Client(), 1024)
	_, err := NewCopier(env).Copy(context.Background(), CopyRequest{
		SrcBucket: "bucket",
		SrcKey:    "src.bin",
		DstBucket: "bucket",
		DstKey:    "dst.bin",
		Metadata:  map[string]string{"team": "storage"},
	})
	require.NoError(t, err)

	dst := store.Object("bucket", "dst.bin")
	require.NotNil(t, dst)
	assert.Equal(t, "storage", dst.Metadata["team"])
	assert.Equal(t, "0.0", dst.Metadata["s3tool-version"])
}
