// Package s3api defines the interface over the AWS SDK client used by this
// module. Everything above it talks to this interface, which keeps the
// transfer logic testable against hand-written mocks.
package s3api

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API defines the S3 operations used by this module.
type S3API interface {
	// PutObject uploads an object in a single request
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)

	// GetObject retrieves an object or a byte range of one
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)

	// HeadObject retrieves object metadata without the body
	HeadObject(
		ctx context.Context,
		params *s3.HeadObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.HeadObjectOutput, error)

	// DeleteObject deletes an object
	DeleteObject(
		ctx context.Context,
		params *s3.DeleteObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.DeleteObjectOutput, error)

	// DeleteObjects deletes up to a thousand objects in one request
	DeleteObjects(
		ctx context.Context,
		params *s3.DeleteObjectsInput,
		optFns ...func(*s3.Options),
	) (*s3.DeleteObjectsOutput, error)

	// ListObjectsV2 lists objects in a bucket
	ListObjectsV2(
		ctx context.Context,
		params *s3.ListObjectsV2Input,
		optFns ...func(*s3.Options),
	) (*s3.ListObjectsV2Output, error)

	// ListBuckets lists the buckets owned by the caller
	ListBuckets(
		ctx context.Context,
		params *s3.ListBucketsInput,
		optFns ...func(*s3.Options),
	) (*s3.ListBucketsOutput, error)

	// CopyObject copies an object server-side in a single request
	CopyObject(
		ctx context.Context,
		params *s3.CopyObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.CopyObjectOutput, error)

	// CreateMultipartUpload initiates a multipart upload
	CreateMultipartUpload(
		ctx context.Context,
		params *s3.CreateMultipartUploadInput,
		optFns ...func(*s3.Options),
	) (*s3.CreateMultipartUploadOutput, error)

	// UploadPart uploads a part in a multipart upload
	UploadPart(
		ctx context.Context,
		params *s3.UploadPartInput,
		optFns ...func(*s3.Options),
	) (*s3.UploadPartOutput, error)

	// UploadPartCopy copies a byte range of an existing object as a part of
	// a multipart upload
	UploadPartCopy(
		ctx context.Context,
		params *s3.UploadPartCopyInput,
		optFns ...func(*s3.Options),
	) (*s3.UploadPartCopyOutput, error)

	// CompleteMultipartUpload completes a multipart upload
	CompleteMultipartUpload(
		ctx context.Context,
		params *s3.CompleteMultipartUploadInput,
		optFns ...func(*s3.Options),
	) (*s3.CompleteMultipartUploadOutput, error)

	// AbortMultipartUpload aborts a multipart upload
	AbortMultipartUpload(
		ctx context.Context,
		params *s3.AbortMultipartUploadInput,
		optFns ...func(*s3.Options),
	) (*s3.AbortMultipartUploadOutput, error)

	// ListMultipartUploads lists in-progress multipart uploads in a bucket
	ListMultipartUploads(
		ctx context.Context,
		params *s3.ListMultipartUploadsInput,
		optFns ...func(*s3.Options),
	) (*s3.ListMultipartUploadsOutput, error)

	// GetObjectAcl retrieves the access control list of an object
	GetObjectAcl(
		ctx context.Context,
		params *s3.GetObjectAclInput,
		optFns ...func(*s3.Options),
	) (*s3.GetObjectAclOutput, error)

	// PutObjectAcl replaces the access control list of an object
	PutObjectAcl(
		ctx context.Context,
		params *s3.PutObjectAclInput,
		optFns ...func(*s3.Options),
	) (*s3.PutObjectAclOutput, error)
}

// Verify that the AWS S3 client implements our interface
var _ S3API = (*s3.Client)(nil)
