// Package s3types provides shared type definitions for the s3tool module.
package s3types

import (
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/sirupsen/logrus"
)

// StorageClass represents the S3 storage class for objects.
type StorageClass string

// Predefined S3 storage classes
const (
	// StorageClassStandard is the default S3 storage class
	StorageClassStandard StorageClass = "STANDARD"

	// StorageClassReducedRedundancy provides reduced redundancy storage
	StorageClassReducedRedundancy StorageClass = "REDUCED_REDUNDANCY"

	// StorageClassStandardIA provides infrequent access storage
	StorageClassStandardIA StorageClass = "STANDARD_IA"

	// StorageClassOneZoneIA provides one zone infrequent access storage
	StorageClassOneZoneIA StorageClass = "ONEZONE_IA"

	// StorageClassIntelligentTiering provides intelligent tiering storage
	StorageClassIntelligentTiering StorageClass = "INTELLIGENT_TIERING"

	// StorageClassGlacier provides Glacier archival storage
	StorageClassGlacier StorageClass = "GLACIER"
)

// ObjectACL represents a canned access control list applied to uploaded or
// copied objects.
type ObjectACL string

// Predefined canned ACLs
const (
	// ACLPrivate grants private access
	ACLPrivate ObjectACL = "private"

	// ACLPublicRead grants public read access
	ACLPublicRead ObjectACL = "public-read"

	// ACLPublicReadWrite grants public read and write access
	ACLPublicReadWrite ObjectACL = "public-read-write"

	// ACLAuthenticatedRead grants authenticated users read access
	ACLAuthenticatedRead ObjectACL = "authenticated-read"

	// ACLAwsExecRead grants EC2 read access for AMI bundles
	ACLAwsExecRead ObjectACL = "aws-exec-read"

	// ACLOwnerRead grants the bucket owner read access
	ACLOwnerRead ObjectACL = "bucket-owner-read"

	// ACLOwnerFullControl grants the bucket owner full control.
	// This is the default for new uploads so that cross-account writes stay
	// manageable by the bucket owner.
	ACLOwnerFullControl ObjectACL = "bucket-owner-full-control"

	// ACLLogDeliveryWrite grants the log delivery group write access
	ACLLogDeliveryWrite ObjectACL = "log-delivery-write"
)

// AllACLs lists every canned ACL the tool accepts.
func AllACLs() []ObjectACL {
	return []ObjectACL{
		ACLPrivate,
		ACLPublicRead,
		ACLPublicReadWrite,
		ACLAuthenticatedRead,
		ACLAwsExecRead,
		ACLOwnerRead,
		ACLOwnerFullControl,
		ACLLogDeliveryWrite,
	}
}

// S3File describes the outcome of a single transfer: the object touched and,
// for local transfers, the file it was read from or written to.
type S3File struct {
	// Bucket is the S3 bucket the object lives in
	Bucket string

	// Key is the S3 object key
	Key string

	// ETag is the entity tag returned by the service, when available
	ETag string

	// VersionID is the object version, when versioning is enabled
	VersionID string

	// LocalFile is the local path involved in the transfer (empty for copies)
	LocalFile string

	// Size is the object size in bytes, when known
	Size *int64

	// Timestamp is the object's last-modified time, when known
	Timestamp *time.Time
}

// Object represents a stored object returned by listing operations.
type Object struct {
	// Key is the S3 object key (path)
	Key string

	// Size is the object size in bytes
	Size int64

	// LastModified is when the object was last modified
	LastModified time.Time

	// ETag is the S3 entity tag for the object
	ETag string

	// StorageClass is the S3 storage class
	StorageClass string

	// IsPrefix marks a common-prefix ("directory") entry from a delimited
	// listing rather than a concrete object
	IsPrefix bool
}

// ListResult contains one page of a list operation.
type ListResult struct {
	// Objects contains the listed objects and common prefixes
	Objects []Object

	// IsTruncated indicates if the results were truncated
	IsTruncated bool

	// NextContinuationToken is the token for the next page of results
	NextContinuationToken string
}

// Bucket represents an S3 bucket returned by ListBuckets.
type Bucket struct {
	// Name is the bucket name
	Name string

	// CreationDate is when the bucket was created
	CreationDate time.Time
}

// PendingUpload describes an in-progress multipart upload that was never
// completed or aborted, typically left behind by an interrupted transfer.
type PendingUpload struct {
	// Bucket is the bucket the upload targets
	Bucket string

	// Key is the object key the upload targets
	Key string

	// UploadID identifies the multipart upload
	UploadID string

	// Initiated is when the upload was started
	Initiated time.Time

	// StorageClass is the storage class the upload was started with
	StorageClass string
}

// ObjectACLInfo describes the grants on an object as returned by GetACL.
type ObjectACLInfo struct {
	// OwnerID is the canonical user ID of the object owner
	OwnerID string

	// OwnerDisplayName is the display name of the object owner, if the
	// region still returns one
	OwnerDisplayName string

	// Grants are the individual grants on the object
	Grants []ACLGrant
}

// ACLGrant is a single grantee/permission pair from an object ACL.
type ACLGrant struct {
	// Grantee identifies who holds the grant (canonical ID, group URI, or
	// email address, whichever the grant carries)
	Grantee string

	// GranteeType is the kind of grantee (CanonicalUser, Group, ...)
	GranteeType string

	// Permission is the permission granted (FULL_CONTROL, READ, ...)
	Permission string
}

// ProgressTracker receives transfer progress updates. Implementations must be
// safe for concurrent use; part workers report from multiple goroutines.
type ProgressTracker interface {
	// Update is called as bytes move, with the running total
	Update(bytesTransferred, totalBytes int64)

	// Complete is called when the transfer completes successfully
	Complete()

	// Error is called when the transfer fails
	Error(err error)
}

// ClientConfig holds configuration for the client.
type ClientConfig struct {
	Region            string
	Endpoint          string
	ForcePathStyle    bool
	CustomAWSConfig   *aws.Config
	CustomHTTPClient  *http.Client
	MaxRetries        int
	RetryClientErrors bool
	ChunkSize         int64
	KeyDir            string
	HTTPConcurrency   int
	TaskConcurrency   int
	DefaultACL        ObjectACL
	Logger            *logrus.Logger
}

// UploadOptionConfig holds configuration for upload operations via functional options.
type UploadOptionConfig struct {
	KeyName         string
	ChunkSize       int64
	ACL             ObjectACL
	StorageClass    StorageClass
	ContentType     string
	Metadata        map[string]string
	ProgressTracker ProgressTracker
}

// DownloadOptionConfig holds configuration for download operations via functional options.
type DownloadOptionConfig struct {
	VersionID       string
	Overwrite       bool
	ProgressTracker ProgressTracker
}

// CopyOptionConfig holds configuration for copy operations via functional options.
type CopyOptionConfig struct {
	ACL             ObjectACL
	StorageClass    StorageClass
	Metadata        map[string]string
	ProgressTracker ProgressTracker
}

// ListOptionConfig holds configuration for list operations via functional options.
type ListOptionConfig struct {
	Recursive         bool
	MaxKeys           int32
	ContinuationToken string
}

// Option is a functional option for configuring the client.
type (
	Option func(*ClientConfig)
	// UploadOption is a functional option for configuring upload operations.
	UploadOption func(*UploadOptionConfig)
	// DownloadOption is a functional option for configuring download operations.
	DownloadOption func(*DownloadOptionConfig)
	// CopyOption is a functional option for configuring copy operations.
	CopyOption func(*CopyOptionConfig)
	// ListOption is a functional option for configuring list operations.
	ListOption func(*ListOptionConfig)
)
