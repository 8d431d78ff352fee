// High-level S3 operations: uploads, downloads, copies, listings, and
// management of encrypted objects and pending multipart uploads.
package s3tool

import (
	"context"
	stderrors "errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	s3errors "github.com/s3tool/s3tool/errors"
	"github.com/s3tool/s3tool/internal/chunk"
	"github.com/s3tool/s3tool/internal/transfer"
	"github.com/s3tool/s3tool/internal/validation"
	"github.com/s3tool/s3tool/internal/walker"
	"github.com/s3tool/s3tool/s3types"
)

// DefaultChunkSize is the plaintext chunk size used when neither the client
// configuration nor a per-transfer option chooses one.
const DefaultChunkSize = chunk.DefaultChunkSize

// Upload transfers a local file to an object as a chunked multipart upload.
// Parts are uploaded concurrently under the client's pools, and each part is
// retried independently on transient failures.
//
// With WithEncryption, each part is encrypted client-side with a fresh
// AES-256 key before it leaves the machine; the key is wrapped to the named
// RSA key pair and stored in the object's metadata.
//
// Returns:
//   - *s3types.S3File describing the stored object
//   - error if validation fails or the transfer cannot complete
//
// Example:
//
//	result, err := client.Upload(ctx, "backups", "db/2026-08-24.dump", "/tmp/db.dump",
//	    s3tool.WithEncryption("backup-key"),
//	    s3tool.WithStorageClass(s3types.StorageClassStandardIA),
//	)
func (c *Client) Upload(
	ctx context.Context, bucket, key, file string, opts ...s3types.UploadOption,
) (*s3types.S3File, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}

	cfg := &s3types.UploadOptionConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := c.validateUploadConfig(cfg); err != nil {
		return nil, err
	}

	result, err := transfer.NewUploader(c.env).Upload(ctx, transfer.UploadRequest{
		Bucket:       bucket,
		Key:          key,
		File:         file,
		ChunkSize:    cfg.ChunkSize,
		KeyName:      cfg.KeyName,
		ACL:          cfg.ACL,
		StorageClass: cfg.StorageClass,
		ContentType:  cfg.ContentType,
		Metadata:     cfg.Metadata,
		Progress:     cfg.ProgressTracker,
	})
	if err != nil {
		return nil, s3errors.NewObjectError("upload", bucket, key, err)
	}
	return result, nil
}

func (c *Client) validateUploadConfig(cfg *s3types.UploadOptionConfig) error {
	if cfg.KeyName != "" {
		if err := validation.ValidateKeyName(cfg.KeyName); err != nil {
			return err
		}
	}
	chunkSize := cfg.ChunkSize
	if chunkSize == 0 {
		chunkSize = c.env.ChunkSize
	}
	if err := validation.ValidateChunkSize(chunkSize, cfg.KeyName != ""); err != nil {
		return err
	}
	if cfg.ACL != "" {
		if err := validation.ValidateACL(cfg.ACL); err != nil {
			return err
		}
	}
	return validation.ValidateMetadata(cfg.Metadata)
}

// UploadDirectory walks dir and uploads every regular file under it, mapping
// relative paths to keys under prefix. Files upload concurrently; the first
// failure cancels the remaining work.
//
// Returns the uploaded objects sorted by key.
func (c *Client) UploadDirectory(
	ctx context.Context, dir, bucket, prefix string, opts ...s3types.UploadOption,
) ([]s3types.S3File, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}

	files, err := walker.Files(dir)
	if err != nil {
		return nil, s3errors.NewError("upload directory", err).WithBucket(bucket)
	}

	var mu sync.Mutex
	var results []s3types.S3File
	err = walker.Each(ctx, cap(c.env.TaskSem), files, func(ctx context.Context, rel string) error {
		key := walker.KeyFor(prefix, rel)
		result, err := c.Upload(ctx, bucket, key, filepath.Join(dir, filepath.FromSlash(rel)), opts...)
		if err != nil {
			return err
		}
		mu.Lock()
		results = append(results, *result)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	return results, nil
}

// Download transfers an object to a local file as concurrent ranged reads
// along the object's recorded chunk geometry. Objects uploaded with
// encryption are decrypted transparently when a matching private key is
// present in the key directory.
//
// The destination must not already exist unless WithOverwrite is given.
//
// Returns:
//   - *s3types.S3File describing the downloaded object
//   - error if validation fails, no usable key is held for an encrypted
//     object, or the transfer cannot complete
//
// Example:
//
//	result, err := client.Download(ctx, "backups", "db/2026-08-24.dump", "/tmp/restore.dump",
//	    s3tool.WithOverwrite(true),
//	)
func (c *Client) Download(
	ctx context.Context, bucket, key, file string, opts ...s3types.DownloadOption,
) (*s3types.S3File, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}

	cfg := &s3types.DownloadOptionConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	result, err := transfer.NewDownloader(c.env).Download(ctx, transfer.DownloadRequest{
		Bucket:    bucket,
		Key:       key,
		VersionID: cfg.VersionID,
		File:      file,
		Overwrite: cfg.Overwrite,
		Progress:  cfg.ProgressTracker,
	})
	if err != nil {
		return nil, s3errors.NewObjectError("download", bucket, key, err)
	}
	return result, nil
}

// DownloadDirectory downloads every object under prefix into destDir,
// recreating the key hierarchy as directories. Objects download concurrently;
// the first failure cancels the remaining work.
//
// Returns the downloaded objects sorted by key.
func (c *Client) DownloadDirectory(
	ctx context.Context, bucket, prefix, destDir string, opts ...s3types.DownloadOption,
) ([]s3types.S3File, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}

	var keys []string
	token := ""
	for {
		listOpts := []s3types.ListOption{WithRecursive(true)}
		if token != "" {
			listOpts = append(listOpts, WithContinuationToken(token))
		}
		page, err := c.List(ctx, bucket, prefix, listOpts...)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Objects {
			if strings.HasSuffix(obj.Key, "/") {
				continue
			}
			keys = append(keys, obj.Key)
		}
		if !page.IsTruncated {
			break
		}
		token = page.NextContinuationToken
	}

	var mu sync.Mutex
	var results []s3types.S3File
	err := walker.Each(ctx, cap(c.env.TaskSem), keys, func(ctx context.Context, key string) error {
		local, err := walker.LocalPathFor(destDir, prefix, key)
		if err != nil {
			return s3errors.NewObjectError("download directory", bucket, key, err)
		}
		result, err := c.Download(ctx, bucket, key, local, opts...)
		if err != nil {
			return err
		}
		mu.Lock()
		results = append(results, *result)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	return results, nil
}

// Copy copies an object server-side as a chunked multipart copy. Data never
// moves through the client, so encrypted objects copy without being
// decrypted and without any key being present locally.
//
// Objects that carry transfer metadata keep their chunk geometry and key
// wrappings; objects written by other tools get conforming metadata
// synthesized from their stored length.
//
// Returns:
//   - *s3types.S3File describing the destination object
//   - error if validation fails or the copy cannot complete
func (c *Client) Copy(
	ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string, opts ...s3types.CopyOption,
) (*s3types.S3File, error) {
	for _, bucket := range []string{srcBucket, dstBucket} {
		if err := validation.ValidateBucketName(bucket); err != nil {
			return nil, err
		}
	}
	for _, key := range []string{srcKey, dstKey} {
		if err := validation.ValidateObjectKey(key); err != nil {
			return nil, err
		}
	}

	cfg := &s3types.CopyOptionConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.ACL != "" {
		if err := validation.ValidateACL(cfg.ACL); err != nil {
			return nil, err
		}
	}
	if err := validation.ValidateMetadata(cfg.Metadata); err != nil {
		return nil, err
	}

	result, err := transfer.NewCopier(c.env).Copy(ctx, transfer.CopyRequest{
		SrcBucket:    srcBucket,
		SrcKey:       srcKey,
		DstBucket:    dstBucket,
		DstKey:       dstKey,
		ACL:          cfg.ACL,
		StorageClass: cfg.StorageClass,
		Metadata:     cfg.Metadata,
		Progress:     cfg.ProgressTracker,
	})
	if err != nil {
		return nil, s3errors.NewObjectError("copy", dstBucket, dstKey, err).
			WithMessage("copying from " + FormatURI(srcBucket, srcKey))
	}
	return result, nil
}

// CopyDirectory copies every object under srcPrefix onto dstPrefix, one
// server-side copy per object. Copies run concurrently; the first failure
// cancels the remaining work.
//
// Returns the destination objects sorted by key.
func (c *Client) CopyDirectory(
	ctx context.Context, srcBucket, srcPrefix, dstBucket, dstPrefix string, opts ...s3types.CopyOption,
) ([]s3types.S3File, error) {
	for _, bucket := range []string{srcBucket, dstBucket} {
		if err := validation.ValidateBucketName(bucket); err != nil {
			return nil, err
		}
	}

	var keys []string
	token := ""
	for {
		listOpts := []s3types.ListOption{WithRecursive(true)}
		if token != "" {
			listOpts = append(listOpts, WithContinuationToken(token))
		}
		page, err := c.List(ctx, srcBucket, srcPrefix, listOpts...)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Objects {
			if strings.HasSuffix(obj.Key, "/") {
				continue
			}
			keys = append(keys, obj.Key)
		}
		if !page.IsTruncated {
			break
		}
		token = page.NextContinuationToken
	}

	var mu sync.Mutex
	var results []s3types.S3File
	err := walker.Each(ctx, cap(c.env.TaskSem), keys, func(ctx context.Context, key string) error {
		rel := strings.TrimPrefix(strings.TrimPrefix(key, srcPrefix), "/")
		if rel == "" {
			rel = path.Base(key)
		}
		result, err := c.Copy(ctx, srcBucket, key, dstBucket, walker.KeyFor(dstPrefix, rel), opts...)
		if err != nil {
			return err
		}
		mu.Lock()
		results = append(results, *result)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	return results, nil
}

// List returns one page of objects under prefix. Without WithRecursive the
// listing stops at the next "/" and reports deeper levels as prefix entries.
// Pass the returned continuation token back via WithContinuationToken to
// fetch the next page.
func (c *Client) List(
	ctx context.Context, bucket, prefix string, opts ...s3types.ListOption,
) (*s3types.ListResult, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}

	cfg := &s3types.ListOptionConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if !cfg.Recursive {
		input.Delimiter = aws.String("/")
	}
	if cfg.MaxKeys > 0 {
		input.MaxKeys = aws.Int32(cfg.MaxKeys)
	}
	if cfg.ContinuationToken != "" {
		input.ContinuationToken = aws.String(cfg.ContinuationToken)
	}

	var out *s3.ListObjectsV2Output
	err := c.call(ctx, "listing "+FormatURI(bucket, prefix), func(ctx context.Context) error {
		var apiErr error
		out, apiErr = c.env.API.ListObjectsV2(ctx, input)
		return apiErr
	})
	if err != nil {
		return nil, s3errors.NewError("list", err).WithBucket(bucket)
	}

	result := &s3types.ListResult{
		IsTruncated:           aws.ToBool(out.IsTruncated),
		NextContinuationToken: aws.ToString(out.NextContinuationToken),
	}
	for _, p := range out.CommonPrefixes {
		result.Objects = append(result.Objects, s3types.Object{
			Key:      aws.ToString(p.Prefix),
			IsPrefix: true,
		})
	}
	for _, obj := range out.Contents {
		o := s3types.Object{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
			StorageClass: string(obj.StorageClass),
		}
		if obj.LastModified != nil {
			o.LastModified = *obj.LastModified
		}
		result.Objects = append(result.Objects, o)
	}
	return result, nil
}

// ListBuckets returns the buckets owned by the authenticated account.
func (c *Client) ListBuckets(ctx context.Context) ([]s3types.Bucket, error) {
	var out *s3.ListBucketsOutput
	err := c.call(ctx, "listing buckets", func(ctx context.Context) error {
		var apiErr error
		out, apiErr = c.env.API.ListBuckets(ctx, &s3.ListBucketsInput{})
		return apiErr
	})
	if err != nil {
		return nil, s3errors.NewError("list buckets", err)
	}

	buckets := make([]s3types.Bucket, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		bucket := s3types.Bucket{Name: aws.ToString(b.Name)}
		if b.CreationDate != nil {
			bucket.CreationDate = *b.CreationDate
		}
		buckets = append(buckets, bucket)
	}
	return buckets, nil
}

// Delete removes an object. Deleting a key that does not exist is not an
// error; the operation is idempotent.
func (c *Client) Delete(ctx context.Context, bucket, key string) error {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return err
	}

	err := c.call(ctx, "deleting "+FormatURI(bucket, key), func(ctx context.Context) error {
		_, apiErr := c.env.API.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		return apiErr
	})
	if err != nil {
		return s3errors.NewObjectError("delete", bucket, key, err)
	}
	return nil
}

// maxBatchDelete is the service limit on keys per DeleteObjects request.
const maxBatchDelete = 1000

// DeleteBatch removes many objects in DeleteObjects requests of at most a
// thousand keys each. The first key the service refuses to delete fails the
// whole call; keys deleted by earlier requests stay deleted.
func (c *Client) DeleteBatch(ctx context.Context, bucket string, keys []string) error {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return err
	}
	for _, key := range keys {
		if err := validation.ValidateObjectKey(key); err != nil {
			return err
		}
	}

	for start := 0; start < len(keys); start += maxBatchDelete {
		end := start + maxBatchDelete
		if end > len(keys) {
			end = len(keys)
		}
		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}

		var out *s3.DeleteObjectsOutput
		err := c.call(ctx, fmt.Sprintf("deleting %d objects from %s", len(objects), bucket),
			func(ctx context.Context) error {
				var apiErr error
				out, apiErr = c.env.API.DeleteObjects(ctx, &s3.DeleteObjectsInput{
					Bucket: aws.String(bucket),
					Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
				})
				return apiErr
			})
		if err != nil {
			return s3errors.NewError("delete batch", err).WithBucket(bucket)
		}
		for _, e := range out.Errors {
			return s3errors.NewObjectError("delete batch", bucket, aws.ToString(e.Key),
				fmt.Errorf("%s: %s", aws.ToString(e.Code), aws.ToString(e.Message)))
		}
	}
	return nil
}

// Exists reports whether an object exists. A missing object is not an error.
func (c *Client) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return false, err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return false, err
	}

	err := c.call(ctx, "checking "+FormatURI(bucket, key), func(ctx context.Context) error {
		_, apiErr := c.env.API.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if isNotFound(apiErr) {
			return s3errors.ErrObjectNotFound
		}
		return apiErr
	})
	if err != nil {
		if stderrors.Is(err, s3errors.ErrObjectNotFound) {
			return false, nil
		}
		return false, s3errors.NewObjectError("exists", bucket, key, err)
	}
	return true, nil
}

// Size returns the stored size of an object in bytes. For encrypted objects
// this is the plaintext length recorded at upload time, not the ciphertext
// length on the wire.
func (c *Client) Size(ctx context.Context, bucket, key string) (int64, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return 0, err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return 0, err
	}

	size, err := transfer.NewDownloader(c.env).Size(ctx, bucket, key)
	if err != nil {
		return 0, s3errors.NewObjectError("size", bucket, key, err)
	}
	return size, nil
}

// ListPendingUploads returns multipart uploads that were started but never
// completed or aborted, typically left behind by interrupted transfers. Each
// still accumulates storage charges until aborted.
func (c *Client) ListPendingUploads(
	ctx context.Context, bucket, prefix string,
) ([]s3types.PendingUpload, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}

	uploads, err := transfer.NewPending(c.env).List(ctx, bucket, prefix)
	if err != nil {
		return nil, s3errors.NewError("list pending uploads", err).WithBucket(bucket)
	}
	return uploads, nil
}

// AbortPendingUpload discards a pending multipart upload and any parts it
// accumulated.
func (c *Client) AbortPendingUpload(ctx context.Context, bucket, key, uploadID string) error {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return err
	}
	if uploadID == "" {
		return s3errors.NewError("abort pending upload", s3errors.ErrInvalidInput).
			WithMessage("upload ID cannot be empty")
	}

	if err := transfer.NewPending(c.env).Abort(ctx, bucket, key, uploadID); err != nil {
		return s3errors.NewObjectError("abort pending upload", bucket, key, err)
	}
	return nil
}

// AddEncryptedKey grants the named key pair access to an encrypted object by
// unwrapping its symmetric key with a locally held key and re-wrapping it to
// the new key's public half. The object data is not rewritten.
//
// Errors:
//   - ErrNotEncrypted if the object carries no encryption metadata
//   - ErrKeyExists if the key already holds a wrapping
//   - ErrMissingKey if no locally held key can unwrap the object
func (c *Client) AddEncryptedKey(
	ctx context.Context, bucket, key, keyName string,
) (*s3types.S3File, error) {
	if err := c.validateKeyTarget(bucket, key, keyName); err != nil {
		return nil, err
	}

	result, err := transfer.NewKeyManager(c.env).Add(ctx, bucket, key, keyName)
	if err != nil {
		return nil, s3errors.NewObjectError("add encrypted key", bucket, key, err)
	}
	return result, nil
}

// RemoveEncryptedKey revokes the named key pair's access to an encrypted
// object by dropping its wrapping from the metadata. The last wrapping cannot
// be removed; that would strand the object.
//
// Errors:
//   - ErrNotEncrypted if the object carries no encryption metadata
//   - ErrMissingKey if the key holds no wrapping on the object
//   - ErrLastKeyRemoval if the key holds the only wrapping
func (c *Client) RemoveEncryptedKey(
	ctx context.Context, bucket, key, keyName string,
) (*s3types.S3File, error) {
	if err := c.validateKeyTarget(bucket, key, keyName); err != nil {
		return nil, err
	}

	result, err := transfer.NewKeyManager(c.env).Remove(ctx, bucket, key, keyName)
	if err != nil {
		return nil, s3errors.NewObjectError("remove encrypted key", bucket, key, err)
	}
	return result, nil
}

func (c *Client) validateKeyTarget(bucket, key, keyName string) error {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return err
	}
	return validation.ValidateKeyName(keyName)
}

// GetACL returns the owner and grants on an object.
func (c *Client) GetACL(ctx context.Context, bucket, key string) (*s3types.ObjectACLInfo, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}

	var out *s3.GetObjectAclOutput
	err := c.call(ctx, "reading ACL of "+FormatURI(bucket, key), func(ctx context.Context) error {
		var apiErr error
		out, apiErr = c.env.API.GetObjectAcl(ctx, &s3.GetObjectAclInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		return apiErr
	})
	if err != nil {
		return nil, s3errors.NewObjectError("get ACL", bucket, key, err)
	}

	info := &s3types.ObjectACLInfo{}
	if out.Owner != nil {
		info.OwnerID = aws.ToString(out.Owner.ID)
		info.OwnerDisplayName = aws.ToString(out.Owner.DisplayName)
	}
	for _, g := range out.Grants {
		grant := s3types.ACLGrant{Permission: string(g.Permission)}
		if g.Grantee != nil {
			grant.GranteeType = string(g.Grantee.Type)
			switch {
			case g.Grantee.ID != nil:
				grant.Grantee = aws.ToString(g.Grantee.ID)
			case g.Grantee.URI != nil:
				grant.Grantee = aws.ToString(g.Grantee.URI)
			default:
				grant.Grantee = aws.ToString(g.Grantee.EmailAddress)
			}
		}
		info.Grants = append(info.Grants, grant)
	}
	return info, nil
}

// SetACL replaces the grants on an object with a canned ACL.
func (c *Client) SetACL(ctx context.Context, bucket, key string, acl s3types.ObjectACL) error {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return err
	}
	if err := validation.ValidateACL(acl); err != nil {
		return err
	}

	err := c.call(ctx, "setting ACL of "+FormatURI(bucket, key), func(ctx context.Context) error {
		_, apiErr := c.env.API.PutObjectAcl(ctx, &s3.PutObjectAclInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			ACL:    types.ObjectCannedACL(acl),
		})
		return apiErr
	})
	if err != nil {
		return s3errors.NewObjectError("set ACL", bucket, key, err)
	}
	return nil
}

// call runs one retried SDK call under the client's HTTP pool.
func (c *Client) call(ctx context.Context, desc string, fn func(context.Context) error) error {
	return c.env.Retry.Do(ctx, desc, func(ctx context.Context) error {
		return c.env.Call(ctx, func() error {
			return fn(ctx)
		})
	})
}

// isNotFound recognizes the service's missing-object responses.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var notFound *types.NotFound
	if stderrors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if stderrors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}
