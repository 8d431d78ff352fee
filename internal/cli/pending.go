// Pending multipart upload maintenance commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s3tool/s3tool"
)

// newListPendingUploadsCmd creates the 'list-pending-uploads' command.
func newListPendingUploadsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-pending-uploads <s3-uri>",
		Short: "List pending multipart uploads under a key prefix",
		Long: `List multipart uploads that were started but never completed or aborted,
typically left behind by interrupted transfers. Each pending upload keeps
accumulating storage charges until it is aborted.

Examples:
  # All pending uploads in a bucket
  s3tool list-pending-uploads s3://my-bucket

  # Pending uploads under a prefix
  s3tool list-pending-uploads s3://my-bucket/backups/`,
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

			uploads, err := client.ListPendingUploads(cmd.Context(), bucket, prefix)
			if err != nil {
				return err
			}
			for _, u := range uploads {
				fmt.Printf("%s  %s  %s\n",
					u.Initiated.Format("2006-01-02 15:04:05"), u.UploadID, u.Key)
			}
			return nil
		},
	}
}

// newAbortPendingUploadCmd creates the 'abort-pending-upload' command.
func newAbortPendingUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "abort-pending-upload <s3-uri> <upload-id>",
		Short: "Abort a pending multipart upload",
		Long: `Abort a pending multipart upload and discard any parts it accumulated.
Upload IDs come from list-pending-uploads.`,
		Args: cobra.ExactArgs(2),
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

			if err := client.AbortPendingUpload(cmd.Context(), bucket, key, args[1]); err != nil {
				return err
			}
			fmt.Printf("aborted %s (%s)\n", args[0], args[1])
			return nil
		},
	}
}
