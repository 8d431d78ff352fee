// File transfer commands: upload, download, copy.
package cli

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/s3tool/s3tool"
	"github.com/s3tool/s3tool/s3types"
)

// progressPrinter reports transfer progress to stderr in 10% steps. Updates
// arrive from multiple part workers, so the step tracking is atomic.
type progressPrinter struct {
	label string
	last  atomic.Int64
}

func (p *progressPrinter) Update(transferred, total int64) {
	if total <= 0 {
		return
	}
	pct := transferred * 100 / total
	step := pct / 10 * 10
	if step > p.last.Load() {
		p.last.Store(step)
		fmt.Fprintf(os.Stderr, "%s: %d%%\n", p.label, step)
	}
}

func (p *progressPrinter) Complete() {
	fmt.Fprintf(os.Stderr, "%s: done\n", p.label)
}

func (p *progressPrinter) Error(err error) {
	fmt.Fprintf(os.Stderr, "%s: failed: %v\n", p.label, err)
}

// parseMetadata turns repeated key=value flags into a metadata map.
func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	metadata := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("metadata must be key=value, got %q", pair)
		}
		metadata[key] = value
	}
	return metadata, nil
}

// newUploadCmd creates the 'upload' command.
func newUploadCmd() *cobra.Command {
	var (
		encryptKey   string
		acl          string
		storageClass string
		contentType  string
		metadata     []string
		recursive    bool
		progress     bool
	)

	cmd := &cobra.Command{
		Use:   "upload <file> <s3-uri>",
		Short: "Upload a file or directory",
		Long: `Upload a local file to an object as a chunked multipart transfer.

With --recursive the source is a directory and every regular file under it
is uploaded, mapping relative paths to keys under the URI's key prefix.

With --key each chunk is encrypted client-side before it leaves the
machine; the data key is wrapped to the named RSA key pair from the key
directory.

Examples:
  # Upload a single file
  s3tool upload backup.tar.gz s3://backups/2026/backup.tar.gz

  # Upload encrypted
  s3tool upload secrets.db s3://backups/secrets.db --key backup-key

  # Upload a directory tree
  s3tool upload ./site s3://www-bucket/site --recursive`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, key, err := s3tool.ParseURI(args[1])
			if err != nil {
				return err
			}

			userMetadata, err := parseMetadata(metadata)
			if err != nil {
				return err
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close(cmd.Context())

			var opts []s3types.UploadOption
			if encryptKey != "" {
				opts = append(opts, s3tool.WithEncryption(encryptKey))
			}
			if acl != "" {
				opts = append(opts, s3tool.WithACL(s3types.ObjectACL(acl)))
			}
			if storageClass != "" {
				opts = append(opts, s3tool.WithStorageClass(s3types.StorageClass(storageClass)))
			}
			if contentType != "" {
				opts = append(opts, s3tool.WithContentType(contentType))
			}
			if userMetadata != nil {
				opts = append(opts, s3tool.WithMetadata(userMetadata))
			}

			if recursive {
				results, err := client.UploadDirectory(cmd.Context(), args[0], bucket, key, opts...)
				if err != nil {
					return err
				}
				for _, r := range results {
					fmt.Printf("uploaded %s\n", s3tool.FormatURI(r.Bucket, r.Key))
				}
				return nil
			}

			if progress {
				opts = append(opts, s3tool.WithProgress(&progressPrinter{label: args[1]}))
			}
			result, err := client.Upload(cmd.Context(), bucket, key, args[0], opts...)
			if err != nil {
				return err
			}
			fmt.Printf("uploaded %s\n", s3tool.FormatURI(result.Bucket, result.Key))
			return nil
		},
	}

	cmd.Flags().StringVar(&encryptKey, "key", "", "encrypt with the named key pair from the key directory")
	cmd.Flags().StringVar(&acl, "acl", "", "canned ACL for the object")
	cmd.Flags().StringVar(&storageClass, "storage-class", "", "storage class for the object")
	cmd.Flags().StringVar(&contentType, "content-type", "", "content type (default: sniffed from the file)")
	cmd.Flags().StringArrayVar(&metadata, "metadata", nil, "user metadata as key=value (repeatable)")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "upload a directory tree")
	cmd.Flags().BoolVar(&progress, "progress", false, "print transfer progress")

	return cmd
}

// newDownloadCmd creates the 'download' command.
func newDownloadCmd() *cobra.Command {
	var (
		overwrite  bool
		objVersion string
		recursive  bool
		progress   bool
	)

	cmd := &cobra.Command{
		Use:   "download <s3-uri> <file>",
		Short: "Download an object or key prefix",
		Long: `Download an object to a local file as concurrent ranged reads.

Objects uploaded with encryption are decrypted transparently when a matching
private key is present in the key directory. The destination must not exist
unless --overwrite is given.

With --recursive every object under the URI's key prefix is downloaded into
the destination directory, recreating the key hierarchy.

Examples:
  # Download a single object
  s3tool download s3://backups/2026/backup.tar.gz ./backup.tar.gz

  # Download a specific version
  s3tool download "s3://backups/db.dump?versionId=abc123" ./db.dump

  # Download a whole prefix
  s3tool download s3://www-bucket/site ./site --recursive`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, key, uriVersion, err := s3tool.ParseVersionedURI(args[0])
			if err != nil {
				return err
			}
			if objVersion == "" {
				objVersion = uriVersion
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close(cmd.Context())

			var opts []s3types.DownloadOption
			if overwrite {
				opts = append(opts, s3tool.WithOverwrite(true))
			}

			if recursive {
				results, err := client.DownloadDirectory(cmd.Context(), bucket, key, args[1], opts...)
				if err != nil {
					return err
				}
				for _, r := range results {
					fmt.Printf("downloaded %s -> %s\n", s3tool.FormatURI(r.Bucket, r.Key), r.LocalFile)
				}
				return nil
			}

			if objVersion != "" {
				opts = append(opts, s3tool.WithVersion(objVersion))
			}
			if progress {
				opts = append(opts, s3tool.WithDownloadProgress(&progressPrinter{label: args[0]}))
			}
			result, err := client.Download(cmd.Context(), bucket, key, args[1], opts...)
			if err != nil {
				return err
			}
			fmt.Printf("downloaded %s -> %s\n", s3tool.FormatURI(result.Bucket, result.Key), result.LocalFile)
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing local file")
	cmd.Flags().StringVar(&objVersion, "object-version", "", "download a specific object version")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "download everything under the key prefix")
	cmd.Flags().BoolVar(&progress, "progress", false, "print transfer progress")

	return cmd
}

// newCopyCmd creates the 'copy' command.
func newCopyCmd() *cobra.Command {
	var (
		acl          string
		storageClass string
		metadata     []string
		recursive    bool
	)

	cmd := &cobra.Command{
		Use:   "copy <src-s3-uri> <dst-s3-uri>",
		Short: "Copy an object server-side",
		Long: `Copy an object to another key or bucket without moving the data through
this machine. Encrypted objects copy without being decrypted and without any
key being present locally.

With --recursive every object under the source URI's key prefix is copied
onto the destination URI's key prefix.

Examples:
  # Copy within a bucket
  s3tool copy s3://backups/a.bin s3://backups/b.bin

  # Copy across buckets with a new storage class
  s3tool copy s3://hot/data.bin s3://archive/data.bin --storage-class GLACIER

  # Copy a whole prefix
  s3tool copy s3://hot/logs/ s3://archive/logs/ --recursive`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			srcBucket, srcKey, err := s3tool.ParseURI(args[0])
			if err != nil {
				return err
			}
			dstBucket, dstKey, err := s3tool.ParseURI(args[1])
			if err != nil {
				return err
			}

			userMetadata, err := parseMetadata(metadata)
			if err != nil {
				return err
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close(cmd.Context())

			var opts []s3types.CopyOption
			if acl != "" {
				opts = append(opts, s3tool.WithCopyACL(s3types.ObjectACL(acl)))
			}
			if storageClass != "" {
				opts = append(opts, s3tool.WithCopyStorageClass(s3types.StorageClass(storageClass)))
			}
			if userMetadata != nil {
				opts = append(opts, s3tool.WithCopyMetadata(userMetadata))
			}

			if recursive {
				results, err := client.CopyDirectory(cmd.Context(), srcBucket, srcKey, dstBucket, dstKey, opts...)
				if err != nil {
					return err
				}
				for _, r := range results {
					fmt.Printf("copied %s\n", s3tool.FormatURI(r.Bucket, r.Key))
				}
				return nil
			}

			result, err := client.Copy(cmd.Context(), srcBucket, srcKey, dstBucket, dstKey, opts...)
			if err != nil {
				return err
			}
			fmt.Printf("copied %s -> %s\n", args[0], s3tool.FormatURI(result.Bucket, result.Key))
			return nil
		},
	}

	cmd.Flags().StringVar(&acl, "acl", "", "canned ACL for the destination")
	cmd.Flags().StringVar(&storageClass, "storage-class", "", "storage class for the destination")
	cmd.Flags().StringArrayVar(&metadata, "metadata", nil, "user metadata for the destination as key=value (repeatable)")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "copy everything under the source key prefix")

	return cmd
}
