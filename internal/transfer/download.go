package transfer

import (
	"context"
	"crypto/rsa"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/s3tool/s3tool/errors"
	"github.com/s3tool/s3tool/internal/chunk"
	"github.com/s3tool/s3tool/internal/crypto"
	"github.com/s3tool/s3tool/internal/metadata"
	"github.com/s3tool/s3tool/s3types"
)

// DownloadRequest describes one object-to-file transfer.
type DownloadRequest struct {
	Bucket    string
	Key       string
	VersionID string
	File      string
	Overwrite bool
	Progress  s3types.ProgressTracker
}

// Downloader performs chunked multipart downloads, decrypting parts written
// by the matching upload path.
type Downloader struct {
	env *Env
}

// NewDownloader returns a Downloader backed by env.
func NewDownloader(env *Env) *Downloader {
	return &Downloader{env: env}
}

// Download transfers the object to the local file. Objects written by this
// tool are reassembled from their recorded chunk geometry and decrypted when
// a matching private key is held locally; foreign objects are fetched with
// the default chunk size and no decryption.
func (d *Downloader) Download(ctx context.Context, req DownloadRequest) (*s3types.S3File, error) {
	head, err := d.head(ctx, req)
	if err != nil {
		return nil, err
	}

	info, present, err := metadata.Parse(head.Metadata)
	if err != nil {
		return nil, err
	}

	var symKey []byte
	chunkSize := d.env.ChunkSize
	length := aws.ToInt64(head.ContentLength)
	if present {
		chunkSize = info.ChunkSize
		length = info.FileLength
		if info.Encrypted() {
			symKey, err = d.unwrapKey(info)
			if err != nil {
				return nil, err
			}
		}
	}

	plan, err := chunk.Plan(length, chunkSize, symKey != nil)
	if err != nil {
		return nil, fmt.Errorf("planning download of %s: %w", uri(req.Bucket, req.Key), err)
	}

	f, err := d.createFile(req)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d.env.Log.WithFields(logrus.Fields{
		"uri":       uri(req.Bucket, req.Key),
		"length":    length,
		"parts":     len(plan),
		"encrypted": symKey != nil,
	}).Debug("download started")

	counter := newProgressCounter(req.Progress, length)

	if err := d.downloadParts(ctx, req, f, plan, symKey, counter); err != nil {
		counter.fail(err)
		return nil, err
	}
	if err := f.Sync(); err != nil {
		counter.fail(err)
		return nil, fmt.Errorf("syncing %s: %w", req.File, err)
	}

	counter.complete()
	return &s3types.S3File{
		Bucket:    req.Bucket,
		Key:       req.Key,
		ETag:      strings.Trim(aws.ToString(head.ETag), `"`),
		VersionID: aws.ToString(head.VersionId),
		LocalFile: req.File,
		Size:      aws.Int64(length),
		Timestamp: head.LastModified,
	}, nil
}

// Size returns the object's logical size: the recorded plaintext length for
// objects this tool wrote, the stored content length otherwise.
func (d *Downloader) Size(ctx context.Context, bucket, key string) (int64, error) {
	head, err := d.head(ctx, DownloadRequest{Bucket: bucket, Key: key})
	if err != nil {
		return 0, err
	}
	info, present, err := metadata.Parse(head.Metadata)
	if err != nil {
		return 0, err
	}
	if present {
		return info.FileLength, nil
	}
	return aws.ToInt64(head.ContentLength), nil
}

func (d *Downloader) head(ctx context.Context, req DownloadRequest) (*s3.HeadObjectOutput, error) {
	input := &s3.HeadObjectInput{
		Bucket: aws.String(req.Bucket),
		Key:    aws.String(req.Key),
	}
	if req.VersionID != "" {
		input.VersionId = aws.String(req.VersionID)
	}

	var out *s3.HeadObjectOutput
	desc := "fetching metadata of " + uri(req.Bucket, req.Key)
	err := d.env.Retry.Do(ctx, desc, func(ctx context.Context) error {
		return d.env.Call(ctx, func() error {
			var apiErr error
			out, apiErr = d.env.API.HeadObject(ctx, input)
			return apiErr
		})
	})
	return out, err
}

// unwrapKey finds the first wrapping whose private key is held locally and
// unwraps the symmetric key with it.
func (d *Downloader) unwrapKey(info *metadata.ObjectInfo) ([]byte, error) {
	var priv *rsa.PrivateKey
	idx := -1
	for i, name := range info.KeyNames {
		k, err := d.env.Keys.PrivateKey(name)
		if err == nil {
			priv, idx = k, i
			break
		}
		if !errors.IsMissingKey(err) {
			return nil, err
		}
	}
	if priv == nil {
		return nil, fmt.Errorf("%w: none of %s available locally",
			errors.ErrMissingKey, strings.Join(info.KeyNames, ", "))
	}
	return crypto.UnwrapKey(priv, info.WrappedKeys[idx])
}

// createFile opens the destination for writing, creating parent directories
// as needed. An existing file is replaced only when Overwrite is set.
func (d *Downloader) createFile(req DownloadRequest) (*os.File, error) {
	if dir := filepath.Dir(req.File); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !req.Overwrite {
		flags = os.O_CREATE | os.O_WRONLY | os.O_EXCL
	}
	f, err := os.OpenFile(req.File, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s already exists", errors.ErrInvalidInput, req.File)
		}
		return nil, fmt.Errorf("creating %s: %w", req.File, err)
	}
	return f, nil
}

func (d *Downloader) downloadParts(
	ctx context.Context,
	req DownloadRequest,
	f *os.File,
	plan []chunk.Part,
	symKey []byte,
	counter *progressCounter,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan partResult, len(plan))
	var wg sync.WaitGroup

	var launchErr error
	for _, p := range plan {
		if err := d.env.acquireTask(ctx); err != nil {
			launchErr = err
			break
		}
		wg.Add(1)
		go func(p chunk.Part) {
			defer wg.Done()
			defer d.env.releaseTask()

			err := d.downloadPart(ctx, req, f, p, symKey)
			if err == nil {
				counter.add(p.PlainLen)
			}
			results <- partResult{n: p.N, err: err}
		}(p)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	firstErr := launchErr
	for res := range results {
		if res.err != nil && firstErr == nil {
			firstErr = res.err
			cancel()
		}
	}
	return firstErr
}

// downloadPart runs one ranged GET through the retry executor and writes the
// part's plaintext at its position in the file. WriteAt positioning keeps the
// workers independent of each other.
func (d *Downloader) downloadPart(
	ctx context.Context,
	req DownloadRequest,
	f *os.File,
	p chunk.Part,
	symKey []byte,
) error {
	desc := fmt.Sprintf("downloading part %d of %s", p.N+1, uri(req.Bucket, req.Key))
	return d.env.Retry.Do(ctx, desc, func(ctx context.Context) error {
		input := &s3.GetObjectInput{
			Bucket: aws.String(req.Bucket),
			Key:    aws.String(req.Key),
		}
		if req.VersionID != "" {
			input.VersionId = aws.String(req.VersionID)
		}
		if p.CipherLen > 0 {
			input.Range = aws.String(fmt.Sprintf("bytes=%d-%d",
				p.CipherStart, p.CipherStart+p.CipherLen-1))
		}

		var out *s3.GetObjectOutput
		err := d.env.Call(ctx, func() error {
			var apiErr error
			out, apiErr = d.env.API.GetObject(ctx, input)
			return apiErr
		})
		if err != nil {
			return err
		}
		defer out.Body.Close()

		var body io.Reader = out.Body
		if symKey != nil {
			body, err = crypto.NewDecryptReader(body, symKey)
			if err != nil {
				return err
			}
		}

		buf := make([]byte, copyBufferSize)
		n, err := io.CopyBuffer(
			io.NewOffsetWriter(f, p.PlainStart),
			io.LimitReader(body, p.PlainLen),
			buf,
		)
		if err != nil {
			return err
		}
		if n != p.PlainLen {
			return fmt.Errorf("%w: part %d got %d of %d bytes",
				errors.ErrUnexpectedEOF, p.N+1, n, p.PlainLen)
		}
		return nil
	})
}
