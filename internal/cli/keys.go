// Encryption key commands: generating key pairs and managing access to
// encrypted objects.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/s3tool/s3tool"
	"github.com/s3tool/s3tool/internal/keystore"
)

// defaultKeyBits is the RSA modulus size for generated key pairs.
const defaultKeyBits = 2048

// newKeygenCmd creates the 'keygen' command.
func newKeygenCmd() *cobra.Command {
	var bits int

	cmd := &cobra.Command{
		Use:   "keygen <name>",
		Short: "Generate an RSA key pair in the key directory",
		Long: `Generate an RSA key pair and store it as <name>.pem in the key directory.
Generation refuses to overwrite an existing key.

Examples:
  s3tool keygen backup-key
  s3tool keygen archive-key --bits 4096`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := viper.GetString("key-dir")
			if dir == "" {
				d, err := keystore.DefaultDir()
				if err != nil {
					return err
				}
				dir = d
			}

			path, err := keystore.GenerateKeyPair(dir, args[0], bits)
			if err != nil {
				return err
			}
			fmt.Printf("generated %s\n", path)
			return nil
		},
	}

	cmd.Flags().IntVar(&bits, "bits", defaultKeyBits, "RSA modulus size in bits")

	return cmd
}

// newAddEncryptedKeyCmd creates the 'add-encrypted-key' command.
func newAddEncryptedKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-encrypted-key <s3-uri> <key-name>",
		Short: "Grant a key pair access to an encrypted object",
		Long: `Grant the named key pair access to an encrypted object by re-wrapping the
object's data key. Requires a locally held key that can already decrypt the
object, and the new key's public half in the key directory. The object data
is not rewritten.

Examples:
  s3tool add-encrypted-key s3://backups/secrets.db teammate-key`,
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

			if _, err := client.AddEncryptedKey(cmd.Context(), bucket, key, args[1]); err != nil {
				return err
			}
			fmt.Printf("added key %s to %s\n", args[1], args[0])
			return nil
		},
	}
}

// newRemoveEncryptedKeyCmd creates the 'remove-encrypted-key' command.
func newRemoveEncryptedKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-encrypted-key <s3-uri> <key-name>",
		Short: "Revoke a key pair's access to an encrypted object",
		Long: `Revoke the named key pair's access to an encrypted object. The last
wrapping cannot be removed; that would leave the object undecryptable.

Examples:
  s3tool remove-encrypted-key s3://backups/secrets.db departed-key`,
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

			if _, err := client.RemoveEncryptedKey(cmd.Context(), bucket, key, args[1]); err != nil {
				return err
			}
			fmt.Printf("removed key %s from %s\n", args[1], args[0])
			return nil
		},
	}
}
