package transfer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"

	"github.com/s3tool/s3tool/internal/chunk"
	"github.com/s3tool/s3tool/internal/metadata"
	"github.com/s3tool/s3tool/s3types"
)

// CopyRequest describes one server-side object copy.
type CopyRequest struct {
	SrcBucket    string
	SrcKey       string
	DstBucket    string
	DstKey       string
	ACL          s3types.ObjectACL
	StorageClass s3types.StorageClass
	Metadata     map[string]string
	Progress     s3types.ProgressTracker
}

// Copier performs server-side multipart copies. Data never moves through the
// client: each part is an UploadPartCopy over the stored byte range, so
// encrypted objects copy without being decrypted.
type Copier struct {
	env *Env
}

// NewCopier returns a Copier backed by env.
func NewCopier(env *Env) *Copier {
	return &Copier{env: env}
}

// Copy copies the source object to the destination. Objects this tool wrote
// are split along their recorded chunk geometry; foreign objects get tool
// metadata synthesized from their stored length so the destination conforms
// to the contract.
func (c *Copier) Copy(ctx context.Context, req CopyRequest) (*s3types.S3File, error) {
	head, err := c.head(ctx, req)
	if err != nil {
		return nil, err
	}

	info, present, err := metadata.Parse(head.Metadata)
	if err != nil {
		return nil, err
	}
	storedLen := aws.ToInt64(head.ContentLength)
	if !present {
		info = &metadata.ObjectInfo{
			Version:    metadata.Version,
			ChunkSize:  c.env.ChunkSize,
			FileLength: storedLen,
		}
	}

	plan, err := chunk.Plan(info.FileLength, info.ChunkSize, info.Encrypted())
	if err != nil {
		return nil, fmt.Errorf("planning copy of %s: %w", uri(req.SrcBucket, req.SrcKey), err)
	}

	meta := make(map[string]string, len(head.Metadata)+len(req.Metadata))
	for k, v := range head.Metadata {
		meta[k] = v
	}
	for k, v := range req.Metadata {
		meta[k] = v
	}
	info.Apply(meta)

	counter := newProgressCounter(req.Progress, storedLen)

	uploadID, err := c.initiate(ctx, req, head, meta)
	if err != nil {
		counter.fail(err)
		return nil, err
	}

	c.env.Log.WithFields(logrus.Fields{
		"src":   uri(req.SrcBucket, req.SrcKey),
		"dst":   uri(req.DstBucket, req.DstKey),
		"parts": len(plan),
	}).Debug("copy started")

	etags, err := c.copyParts(ctx, req, uploadID, plan, counter)
	if err != nil {
		c.abort(req.DstBucket, req.DstKey, uploadID)
		counter.fail(err)
		return nil, err
	}

	etag, err := c.complete(ctx, req, uploadID, etags)
	if err != nil {
		c.abort(req.DstBucket, req.DstKey, uploadID)
		counter.fail(err)
		return nil, err
	}

	counter.complete()
	return &s3types.S3File{
		Bucket: req.DstBucket,
		Key:    req.DstKey,
		ETag:   etag,
		Size:   aws.Int64(info.FileLength),
	}, nil
}

func (c *Copier) head(ctx context.Context, req CopyRequest) (*s3.HeadObjectOutput, error) {
	var out *s3.HeadObjectOutput
	desc := "fetching metadata of " + uri(req.SrcBucket, req.SrcKey)
	err := c.env.Retry.Do(ctx, desc, func(ctx context.Context) error {
		return c.env.Call(ctx, func() error {
			var apiErr error
			out, apiErr = c.env.API.HeadObject(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(req.SrcBucket),
				Key:    aws.String(req.SrcKey),
			})
			return apiErr
		})
	})
	return out, err
}

func (c *Copier) initiate(
	ctx context.Context,
	req CopyRequest,
	head *s3.HeadObjectOutput,
	meta map[string]string,
) (string, error) {
	acl := req.ACL
	if acl == "" {
		acl = c.env.DefaultACL
	}

	input := &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(req.DstBucket),
		Key:         aws.String(req.DstKey),
		ACL:         types.ObjectCannedACL(acl),
		Metadata:    meta,
		ContentType: head.ContentType,
	}
	if req.StorageClass != "" {
		input.StorageClass = types.StorageClass(req.StorageClass)
	}

	var uploadID string
	desc := fmt.Sprintf("starting copy of %s to %s",
		uri(req.SrcBucket, req.SrcKey), uri(req.DstBucket, req.DstKey))
	err := c.env.Retry.Do(ctx, desc, func(ctx context.Context) error {
		return c.env.Call(ctx, func() error {
			out, err := c.env.API.CreateMultipartUpload(ctx, input)
			if err != nil {
				return err
			}
			uploadID = aws.ToString(out.UploadId)
			return nil
		})
	})
	return uploadID, err
}

func (c *Copier) copyParts(
	ctx context.Context,
	req CopyRequest,
	uploadID string,
	plan []chunk.Part,
	counter *progressCounter,
) (map[int32]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan partResult, len(plan))
	var wg sync.WaitGroup

	var launchErr error
	for _, p := range plan {
		if err := c.env.acquireTask(ctx); err != nil {
			launchErr = err
			break
		}
		wg.Add(1)
		go func(p chunk.Part) {
			defer wg.Done()
			defer c.env.releaseTask()

			etag, err := c.copyPart(ctx, req, uploadID, p)
			if err == nil {
				counter.add(p.CipherLen)
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

// copyPart copies one stored byte range. A zero-length source is copied as a
// single part with no range header, since an empty range cannot be expressed.
func (c *Copier) copyPart(
	ctx context.Context,
	req CopyRequest,
	uploadID string,
	p chunk.Part,
) (string, error) {
	input := &s3.UploadPartCopyInput{
		Bucket:     aws.String(req.DstBucket),
		Key:        aws.String(req.DstKey),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(p.N + 1),
		CopySource: aws.String(req.SrcBucket + "/" + req.SrcKey),
	}
	if p.CipherLen > 0 {
		input.CopySourceRange = aws.String(fmt.Sprintf("bytes=%d-%d",
			p.CipherStart, p.CipherStart+p.CipherLen-1))
	}

	var etag string
	desc := fmt.Sprintf("copying part %d of %s", p.N+1, uri(req.SrcBucket, req.SrcKey))
	err := c.env.Retry.Do(ctx, desc, func(ctx context.Context) error {
		return c.env.Call(ctx, func() error {
			out, err := c.env.API.UploadPartCopy(ctx, input)
			if err != nil {
				return err
			}
			if out.CopyPartResult != nil {
				etag = aws.ToString(out.CopyPartResult.ETag)
			}
			return nil
		})
	})
	return etag, err
}

func (c *Copier) complete(
	ctx context.Context,
	req CopyRequest,
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
	desc := "completing copy to " + uri(req.DstBucket, req.DstKey)
	err := c.env.Retry.Do(ctx, desc, func(ctx context.Context) error {
		return c.env.Call(ctx, func() error {
			out, err := c.env.API.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
				Bucket:          aws.String(req.DstBucket),
				Key:             aws.String(req.DstKey),
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

func (c *Copier) abort(bucket, key, uploadID string) {
	_, err := c.env.API.AbortMultipartUpload(context.Background(), &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		c.env.Log.WithError(err).WithField("uri", uri(bucket, key)).
			Warn("failed to abort multipart copy")
	}
}
