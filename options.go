// Functional options for configuring the client and individual operations.
package s3tool

import (
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/sirupsen/logrus"

	"github.com/s3tool/s3tool/s3types"
)

// WithRegion sets the AWS region for S3 operations.
// If not specified, uses the default AWS region from the credential chain.
func WithRegion(region string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Region = region
	}
}

// WithEndpoint sets a custom S3 endpoint URL.
// This is useful for S3-compatible services or local testing.
func WithEndpoint(endpoint string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithForcePathStyle forces path-style URLs instead of virtual-hosted style.
// Required for S3-compatible services that don't support virtual hosting.
func WithForcePathStyle(forcePathStyle bool) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithAWSConfig allows providing a custom AWS configuration.
// This overrides the default configuration loading behavior.
func WithAWSConfig(config *aws.Config) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomAWSConfig = config
	}
}

// WithCustomHTTPClient allows providing a custom HTTP client.
// This gives full control over HTTP behavior including timeouts and proxies.
func WithCustomHTTPClient(client *http.Client) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomHTTPClient = client
	}
}

// WithMaxRetries sets the total attempt budget per operation, first attempt
// included. Default is 10; the upper bound is 50.
func WithMaxRetries(maxRetries int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.MaxRetries = maxRetries
	}
}

// WithRetryClientErrors enables retrying of 4xx service errors. By default
// only server-side and network failures are retried.
func WithRetryClientErrors(retryClientErrors bool) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.RetryClientErrors = retryClientErrors
	}
}

// WithChunkSize sets the default plaintext chunk size for transfers.
// Default is 5MB. Encrypted transfers require a multiple of 16.
func WithChunkSize(chunkSize int64) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if chunkSize > 0 {
			c.ChunkSize = chunkSize
		}
	}
}

// WithKeyDir sets the directory encryption key pairs are read from.
// Default is ~/.s3lib-keys.
func WithKeyDir(dir string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.KeyDir = dir
	}
}

// WithHTTPConcurrency bounds the number of concurrent requests to the
// service. Default is 10.
func WithHTTPConcurrency(n int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if n > 0 {
			c.HTTPConcurrency = n
		}
	}
}

// WithTaskConcurrency bounds the number of concurrent part workers across
// all transfers. Default is 50.
func WithTaskConcurrency(n int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if n > 0 {
			c.TaskConcurrency = n
		}
	}
}

// WithDefaultACL sets the canned ACL applied to uploads and copies that
// don't choose one. Default is bucket-owner-full-control.
func WithDefaultACL(acl s3types.ObjectACL) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.DefaultACL = acl
	}
}

// WithLogger sets the logger used by the client and its transfers.
func WithLogger(log *logrus.Logger) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Logger = log
	}
}

// WithEncryption encrypts the upload client-side, wrapping the symmetric key
// to the named key pair from the key directory.
func WithEncryption(keyName string) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.KeyName = keyName
	}
}

// WithUploadChunkSize overrides the client's chunk size for this upload.
func WithUploadChunkSize(chunkSize int64) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		if chunkSize > 0 {
			c.ChunkSize = chunkSize
		}
	}
}

// WithACL sets the canned ACL for this upload.
func WithACL(acl s3types.ObjectACL) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.ACL = acl
	}
}

// WithStorageClass sets the storage class for this upload.
func WithStorageClass(storageClass s3types.StorageClass) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.StorageClass = storageClass
	}
}

// WithContentType sets the content type for this upload. If not set, the
// type is sniffed from the file content.
func WithContentType(contentType string) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.ContentType = contentType
	}
}

// WithMetadata attaches user metadata to this upload.
func WithMetadata(metadata map[string]string) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		if c.Metadata == nil {
			c.Metadata = make(map[string]string)
		}
		for k, v := range metadata {
			c.Metadata[k] = v
		}
	}
}

// WithProgress sets a progress tracker for this upload.
func WithProgress(tracker s3types.ProgressTracker) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.ProgressTracker = tracker
	}
}

// WithVersion downloads a specific object version.
func WithVersion(versionID string) s3types.DownloadOption {
	return func(c *s3types.DownloadOptionConfig) {
		c.VersionID = versionID
	}
}

// WithOverwrite allows the download to replace an existing local file.
func WithOverwrite(overwrite bool) s3types.DownloadOption {
	return func(c *s3types.DownloadOptionConfig) {
		c.Overwrite = overwrite
	}
}

// WithDownloadProgress sets a progress tracker for this download.
func WithDownloadProgress(tracker s3types.ProgressTracker) s3types.DownloadOption {
	return func(c *s3types.DownloadOptionConfig) {
		c.ProgressTracker = tracker
	}
}

// WithCopyACL sets the canned ACL for the copy destination.
func WithCopyACL(acl s3types.ObjectACL) s3types.CopyOption {
	return func(c *s3types.CopyOptionConfig) {
		c.ACL = acl
	}
}

// WithCopyStorageClass sets the storage class for the copy destination.
func WithCopyStorageClass(storageClass s3types.StorageClass) s3types.CopyOption {
	return func(c *s3types.CopyOptionConfig) {
		c.StorageClass = storageClass
	}
}

// WithCopyMetadata merges user metadata onto the copy destination.
func WithCopyMetadata(metadata map[string]string) s3types.CopyOption {
	return func(c *s3types.CopyOptionConfig) {
		if c.Metadata == nil {
			c.Metadata = make(map[string]string)
		}
		for k, v := range metadata {
			c.Metadata[k] = v
		}
	}
}

// WithCopyProgress sets a progress tracker for this copy.
func WithCopyProgress(tracker s3types.ProgressTracker) s3types.CopyOption {
	return func(c *s3types.CopyOptionConfig) {
		c.ProgressTracker = tracker
	}
}

// WithRecursive lists all keys under the prefix instead of stopping at the
// next path delimiter.
func WithRecursive(recursive bool) s3types.ListOption {
	return func(c *s3types.ListOptionConfig) {
		c.Recursive = recursive
	}
}

// WithMaxKeys caps the number of entries returned per page.
func WithMaxKeys(maxKeys int32) s3types.ListOption {
	return func(c *s3types.ListOptionConfig) {
		if maxKeys > 0 {
			c.MaxKeys = maxKeys
		}
	}
}

// WithContinuationToken resumes listing from a previous page.
func WithContinuationToken(token string) s3types.ListOption {
	return func(c *s3types.ListOptionConfig) {
		c.ContinuationToken = token
	}
}
