package transfer

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/s3tool/s3tool/s3types"
)

// Pending manages multipart uploads left behind by interrupted transfers.
type Pending struct {
	env *Env
}

// NewPending returns a Pending backed by env.
func NewPending(env *Env) *Pending {
	return &Pending{env: env}
}

// List returns the in-progress multipart uploads under the given key prefix,
// following pagination to the end.
func (p *Pending) List(ctx context.Context, bucket, prefix string) ([]s3types.PendingUpload, error) {
	var uploads []s3types.PendingUpload

	input := &s3.ListMultipartUploadsInput{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	for {
		var out *s3.ListMultipartUploadsOutput
		err := p.env.Retry.Do(ctx, "listing pending uploads of "+bucket, func(ctx context.Context) error {
			return p.env.Call(ctx, func() error {
				var apiErr error
				out, apiErr = p.env.API.ListMultipartUploads(ctx, input)
				return apiErr
			})
		})
		if err != nil {
			return nil, err
		}

		for _, u := range out.Uploads {
			pu := s3types.PendingUpload{
				Bucket:       bucket,
				Key:          aws.ToString(u.Key),
				UploadID:     aws.ToString(u.UploadId),
				StorageClass: string(u.StorageClass),
			}
			if u.Initiated != nil {
				pu.Initiated = *u.Initiated
			}
			uploads = append(uploads, pu)
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		input.KeyMarker = out.NextKeyMarker
		input.UploadIdMarker = out.NextUploadIdMarker
	}

	return uploads, nil
}

// Abort discards a pending multipart upload and any parts it accumulated.
func (p *Pending) Abort(ctx context.Context, bucket, key, uploadID string) error {
	return p.env.Retry.Do(ctx, "aborting pending upload of "+uri(bucket, key), func(ctx context.Context) error {
		return p.env.Call(ctx, func() error {
			_, err := p.env.API.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
				Bucket:   aws.String(bucket),
				Key:      aws.String(key),
				UploadId: aws.String(uploadID),
			})
			return err
		})
	})
}
