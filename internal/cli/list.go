// Bucket and object inspection commands: ls, ls-buckets, rm, exists, du.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s3tool/s3tool"
	"github.com/s3tool/s3tool/s3types"
)

// newLsCmd creates the 'ls' command.
func newLsCmd() *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "ls <s3-uri>",
		Short: "List objects under a key prefix",
		Long: `List the objects under a key prefix. Without --recursive the listing
stops at the next "/" and shows deeper levels as prefix entries, like a
directory listing.

Examples:
  # List the top level of a bucket
  s3tool ls s3://my-bucket

  # List everything under a prefix
  s3tool ls s3://my-bucket/photos/ --recursive`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, prefix, err := s3tool.ParseURI(args[0])
			if err != nil {
				return err
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close(cmd.Context())

			opts := []s3types.ListOption{s3tool.WithRecursive(recursive)}
			token := ""
			for {
				pageOpts := opts
				if token != "" {
					pageOpts = append(pageOpts, s3tool.WithContinuationToken(token))
				}
				page, err := client.List(cmd.Context(), bucket, prefix, pageOpts...)
				if err != nil {
					return err
				}
				for _, obj := range page.Objects {
					if obj.IsPrefix {
						fmt.Printf("%26s  %s\n", "PRE", obj.Key)
						continue
					}
					fmt.Printf("%s  %10d  %s\n",
						obj.LastModified.Format("2006-01-02 15:04:05"), obj.Size, obj.Key)
				}
				if !page.IsTruncated {
					return nil
				}
				token = page.NextContinuationToken
			}
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "list all keys under the prefix")

	return cmd
}

// newLsBucketsCmd creates the 'ls-buckets' command.
func newLsBucketsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls-buckets",
		Short: "List the buckets owned by the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close(cmd.Context())

			buckets, err := client.ListBuckets(cmd.Context())
			if err != nil {
				return err
			}
			for _, b := range buckets {
				fmt.Printf("%s  %s\n", b.CreationDate.Format("2006-01-02 15:04:05"), b.Name)
			}
			return nil
		},
	}
}

// newRmCmd creates the 'rm' command.
func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <s3-uri>...",
		Short: "Delete one or more objects",
		Long: `Delete objects. Multiple URIs in the same bucket are deleted with batch
requests instead of one request per object.

Examples:
  s3tool rm s3://my-bucket/old.log
  s3tool rm s3://my-bucket/a.log s3://my-bucket/b.log s3://other/c.log`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Group keys per bucket, keeping bucket order stable.
			var buckets []string
			keysByBucket := make(map[string][]string)
			for _, uri := range args {
				bucket, key, err := s3tool.ParseURI(uri)
				if err != nil {
					return err
				}
				if _, seen := keysByBucket[bucket]; !seen {
					buckets = append(buckets, bucket)
				}
				keysByBucket[bucket] = append(keysByBucket[bucket], key)
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close(cmd.Context())

			for _, bucket := range buckets {
				keys := keysByBucket[bucket]
				if len(keys) == 1 {
					if err := client.Delete(cmd.Context(), bucket, keys[0]); err != nil {
						return err
					}
				} else if err := client.DeleteBatch(cmd.Context(), bucket, keys); err != nil {
					return err
				}
				for _, key := range keys {
					fmt.Printf("deleted %s\n", s3tool.FormatURI(bucket, key))
				}
			}
			return nil
		},
	}
}

// newExistsCmd creates the 'exists' command.
func newExistsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exists <s3-uri>",
		Short: "Check whether an object exists",
		Long: `Check whether an object exists. Prints the answer and exits 0 when the
object exists, 1 when it does not.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, key, err := s3tool.ParseURI(args[0])
			if err != nil {
				return err
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close(cmd.Context())

			exists, err := client.Exists(cmd.Context(), bucket, key)
			if err != nil {
				return err
			}
			if !exists {
				fmt.Println("not found")
				return fmt.Errorf("%s does not exist", args[0])
			}
			fmt.Println("exists")
			return nil
		},
	}
}

// newDuCmd creates the 'du' command.
func newDuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "du <s3-uri>",
		Short: "Summarize storage used under a key prefix",
		Long: `Walk every object under the key prefix and report the total size and
object count. Sizes are the stored sizes, so for encrypted objects this is
the ciphertext length billed by the store.

Examples:
  s3tool du s3://my-bucket/backups/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, prefix, err := s3tool.ParseURI(args[0])
			if err != nil {
				return err
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close(cmd.Context())

			var (
				total int64
				count int64
				token string
			)
			for {
				opts := []s3types.ListOption{s3tool.WithRecursive(true)}
				if token != "" {
					opts = append(opts, s3tool.WithContinuationToken(token))
				}
				page, err := client.List(cmd.Context(), bucket, prefix, opts...)
				if err != nil {
					return err
				}
				for _, obj := range page.Objects {
					total += obj.Size
					count++
				}
				if !page.IsTruncated {
					break
				}
				token = page.NextContinuationToken
			}
			fmt.Printf("%d bytes in %d objects under %s\n", total, count, args[0])
			return nil
		},
	}
}
