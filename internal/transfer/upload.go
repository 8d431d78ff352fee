package transfer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"

	"github.com/s3tool/s3tool/errors"
	"github.com/s3tool/s3tool/internal/chunk"
	"github.com/s3tool/s3tool/internal/crypto"
	"github.com/s3tool/s3tool/internal/metadata"
	"github.com/s3tool/s3tool/s3types"
)

// copyBufferSize is the buffer used when streaming file data.
const copyBufferSize = 8192

// UploadRequest describes one file-to-object transfer.
type UploadRequest struct {
	Bucket       string
	Key          string
	File         string
	ChunkSize    int64
	KeyName      string
	ACL          s3types.ObjectACL
	StorageClass s3types.StorageClass
	ContentType  string
	Metadata     map[string]string
	Progress     s3types.ProgressTracker
}

// Uploader performs chunked multipart uploads, optionally encrypting each
// part as it streams out.
type Uploader struct {
	env *Env
}

// NewUploader returns an Uploader backed by env.
func NewUploader(env *Env) *Uploader {
	return &Uploader{env: env}
}

// Upload transfers the local file to the target object. The file length is
// read once up front and frozen: the object's metadata and part plan describe
// the file as it was at that moment.
func (u *Uploader) Upload(ctx context.Context, req UploadRequest) (*s3types.S3File, error) {
	chunkSize := req.ChunkSize
	if chunkSize <= 0 {
		chunkSize = u.env.ChunkSize
	}

	fi, err := os.Stat(req.File)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", req.File, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", errors.ErrInvalidInput, req.File)
	}
	length := fi.Size()

	encrypted := req.KeyName != ""
	var symKey []byte
	info := &metadata.ObjectInfo{
		Version:    metadata.Version,
		ChunkSize:  chunkSize,
		FileLength: length,
	}
	if encrypted {
		pub, err := u.env.Keys.PublicKey(req.KeyName)
		if err != nil {
			return nil, err
		}
		symKey, err = crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		wrapped, err := crypto.WrapKey(pub, symKey)
		if err != nil {
			return nil, err
		}
		info.KeyNames = []string{req.KeyName}
		info.WrappedKeys = []string{wrapped}
	}

	plan, err := chunk.Plan(length, chunkSize, encrypted)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidInput, err)
	}

	meta := make(map[string]string, len(req.Metadata)+5)
	for k, v := range req.Metadata {
		meta[k] = v
	}
	info.Apply(meta)

	counter := newProgressCounter(req.Progress, length)

	uploadID, err := u.initiate(ctx, req, meta)
	if err != nil {
		counter.fail(err)
		return nil, err
	}

	u.env.Log.WithFields(logrus.Fields{
		"uri":       uri(req.Bucket, req.Key),
		"length":    length,
		"parts":     len(plan),
		"encrypted": encrypted,
	}).Debug("upload started")

	etags, err := u.uploadParts(ctx, req, uploadID, plan, symKey, counter)
	if err != nil {
		u.abort(req.Bucket, req.Key, uploadID)
		counter.fail(err)
		return nil, err
	}

	etag, err := u.complete(ctx, req, uploadID, etags)
	if err != nil {
		u.abort(req.Bucket, req.Key, uploadID)
		counter.fail(err)
		return nil, err
	}

	counter.complete()
	return &s3types.S3File{
		Bucket:    req.Bucket,
		Key:       req.Key,
		ETag:      etag,
		LocalFile: req.File,
		Size:      aws.Int64(length),
	}, nil
}

func (u *Uploader) initiate(ctx context.Context, req UploadRequest, meta map[string]string) (string, error) {
	acl := req.ACL
	if acl == "" {
		acl = u.env.DefaultACL
	}

	input := &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(req.Bucket),
		Key:         aws.String(req.Key),
		ACL:         types.ObjectCannedACL(acl),
		Metadata:    meta,
		ContentType: aws.String(detectContentType(req.File, req.ContentType)),
	}
	if req.StorageClass != "" {
		input.StorageClass = types.StorageClass(req.StorageClass)
	}

	var uploadID string
	desc := "initiating upload of " + uri(req.Bucket, req.Key)
	err := u.env.Retry.Do(ctx, desc, func(ctx context.Context) error {
		return u.env.Call(ctx, func() error {
			out, err := u.env.API.CreateMultipartUpload(ctx, input)
			if err != nil {
				return err
			}
			uploadID = aws.ToString(out.UploadId)
			return nil
		})
	})
	return uploadID, err
}

func (u *Uploader) uploadParts(
	ctx context.Context,
	req UploadRequest,
	uploadID string,
	plan []chunk.Part,
	symKey []byte,
	counter *progressCounter,
) (map[int32]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan partResult, len(plan))
	var wg sync.WaitGroup

	var launchErr error
	for _, p := range plan {
		if err := u.env.acquireTask(ctx); err != nil {
			launchErr = err
			break
		}
		wg.Add(1)
		go func(p chunk.Part) {
			defer wg.Done()
			defer u.env.releaseTask()

			etag, err := u.uploadPart(ctx, req, uploadID, p, symKey)
			if err == nil {
				counter.add(p.PlainLen)
			}
			results <- partResult{n: p.N, etag: etag, err: err}
		}(p)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	etags := make(map[int32]string, len(plan))
	firstErr := launchErr
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
				cancel()
			}
			continue
		}
		etags[res.n] = res.etag
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return etags, nil
}

// uploadPart runs one part through the retry executor. Every attempt reopens
// the file and re-derives the part's bytes, so a retried encrypted part gets
// a fresh IV and fresh ciphertext.
func (u *Uploader) uploadPart(
	ctx context.Context,
	req UploadRequest,
	uploadID string,
	p chunk.Part,
	symKey []byte,
) (string, error) {
	var etag string
	desc := fmt.Sprintf("uploading part %d of %s", p.N+1, uri(req.Bucket, req.Key))
	err := u.env.Retry.Do(ctx, desc, func(ctx context.Context) error {
		f, err := os.Open(req.File)
		if err != nil {
			return err
		}
		defer f.Close()

		var body io.Reader = bufio.NewReaderSize(
			io.NewSectionReader(f, p.PlainStart, p.PlainLen), copyBufferSize)
		contentLen := p.PlainLen
		if symKey != nil {
			body, err = crypto.NewEncryptReader(body, symKey)
			if err != nil {
				return err
			}
			contentLen = p.CipherLen
		}

		return u.env.Call(ctx, func() error {
			out, err := u.env.API.UploadPart(ctx, &s3.UploadPartInput{
				Bucket:        aws.String(req.Bucket),
				Key:           aws.String(req.Key),
				UploadId:      aws.String(uploadID),
				PartNumber:    aws.Int32(p.N + 1),
				Body:          body,
				ContentLength: aws.Int64(contentLen),
			})
			if err != nil {
				return err
			}
			etag = aws.ToString(out.ETag)
			return nil
		})
	})
	return etag, err
}

func (u *Uploader) complete(
	ctx context.Context,
	req UploadRequest,
	uploadID string,
	etags map[int32]string,
) (string, error) {
	parts := make([]types.CompletedPart, 0, len(etags))
	for n, etag := range etags {
		parts = append(parts, types.CompletedPart{
			PartNumber: aws.Int32(n + 1),
			ETag:       aws.String(etag),
		})
	}
	sort.Slice(parts, func(i, j int) bool {
		return aws.ToInt32(parts[i].PartNumber) < aws.ToInt32(parts[j].PartNumber)
	})

	var etag string
	desc := "completing upload of " + uri(req.Bucket, req.Key)
	err := u.env.Retry.Do(ctx, desc, func(ctx context.Context) error {
		return u.env.Call(ctx, func() error {
			out, err := u.env.API.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
				Bucket:          aws.String(req.Bucket),
				Key:             aws.String(req.Key),
				UploadId:        aws.String(uploadID),
				MultipartUpload: &types.CompletedMultipartUpload{Parts: parts},
			})
			if err != nil {
				return err
			}
			etag = aws.ToString(out.ETag)
			return nil
		})
	})
	return etag, err
}

// abort tears down a failed multipart upload. Runs detached from the
// caller's context so a cancelled transfer still cleans up; its own failure
// is only logged, since the original error is what the caller needs.
func (u *Uploader) abort(bucket, key, uploadID string) {
	_, err := u.env.API.AbortMultipartUpload(context.Background(), &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		u.env.Log.WithError(err).WithField("uri", uri(bucket, key)).
			Warn("failed to abort multipart upload")
	}
}

// detectContentType sniffs the file's MIME type when the caller did not
// provide one.
func detectContentType(path, explicit string) string {
	if explicit != "" {
		return explicit
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	return mt.String()
}
