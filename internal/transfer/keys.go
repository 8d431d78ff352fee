package transfer

import (
	"context"
	"crypto/rsa"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/s3tool/s3tool/errors"
	"github.com/s3tool/s3tool/internal/crypto"
	"github.com/s3tool/s3tool/internal/metadata"
	"github.com/s3tool/s3tool/s3types"
)

// KeyManager grants and revokes access to encrypted objects by rewriting the
// wrapped-key list in their metadata. The object data is never touched: only
// the metadata changes, through an in-place server-side copy.
type KeyManager struct {
	env *Env
}

// NewKeyManager returns a KeyManager backed by env.
func NewKeyManager(env *Env) *KeyManager {
	return &KeyManager{env: env}
}

// Add wraps the object's symmetric key to one more key pair. The caller must
// hold the private half of one of the existing wrappings to recover the
// symmetric key, and the public half of the key being added.
func (m *KeyManager) Add(ctx context.Context, bucket, key, keyName string) (*s3types.S3File, error) {
	head, info, err := m.headEncrypted(ctx, bucket, key)
	if err != nil {
		return nil, err
	}

	if info.HasKey(keyName) {
		return nil, fmt.Errorf("%w: %q on %s", errors.ErrKeyExists, keyName, uri(bucket, key))
	}

	pub, err := m.env.Keys.PublicKey(keyName)
	if err != nil {
		return nil, err
	}

	symKey, err := m.unwrapAny(info)
	if err != nil {
		return nil, err
	}
	wrapped, err := crypto.WrapKey(pub, symKey)
	if err != nil {
		return nil, err
	}

	info.KeyNames = append(info.KeyNames, keyName)
	info.WrappedKeys = append(info.WrappedKeys, wrapped)

	return m.rewrite(ctx, bucket, key, head, info)
}

// Remove drops one wrapping from the object. Removing the only wrapping is
// refused, since that would leave the object permanently unreadable.
func (m *KeyManager) Remove(ctx context.Context, bucket, key, keyName string) (*s3types.S3File, error) {
	head, info, err := m.headEncrypted(ctx, bucket, key)
	if err != nil {
		return nil, err
	}

	if !info.HasKey(keyName) {
		return nil, fmt.Errorf("%w: %q not attached to %s", errors.ErrMissingKey, keyName, uri(bucket, key))
	}
	if len(info.KeyNames) == 1 {
		return nil, fmt.Errorf("%w: %q is the only key on %s", errors.ErrLastKeyRemoval, keyName, uri(bucket, key))
	}

	names := make([]string, 0, len(info.KeyNames)-1)
	wrapped := make([]string, 0, len(info.WrappedKeys)-1)
	for i, n := range info.KeyNames {
		if n == keyName {
			continue
		}
		names = append(names, n)
		wrapped = append(wrapped, info.WrappedKeys[i])
	}
	info.KeyNames = names
	info.WrappedKeys = wrapped

	return m.rewrite(ctx, bucket, key, head, info)
}

func (m *KeyManager) headEncrypted(
	ctx context.Context,
	bucket, key string,
) (*s3.HeadObjectOutput, *metadata.ObjectInfo, error) {
	var head *s3.HeadObjectOutput
	desc := "fetching metadata of " + uri(bucket, key)
	err := m.env.Retry.Do(ctx, desc, func(ctx context.Context) error {
		return m.env.Call(ctx, func() error {
			var apiErr error
			head, apiErr = m.env.API.HeadObject(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(bucket),
				Key:    aws.String(key),
			})
			return apiErr
		})
	})
	if err != nil {
		return nil, nil, err
	}

	info, present, err := metadata.Parse(head.Metadata)
	if err != nil {
		return nil, nil, err
	}
	if !present || !info.Encrypted() {
		return nil, nil, fmt.Errorf("%w: %s", errors.ErrNotEncrypted, uri(bucket, key))
	}
	return head, info, nil
}

// unwrapAny recovers the symmetric key through whichever wrapping has a
// locally held private key.
func (m *KeyManager) unwrapAny(info *metadata.ObjectInfo) ([]byte, error) {
	var priv *rsa.PrivateKey
	idx := -1
	for i, name := range info.KeyNames {
		k, err := m.env.Keys.PrivateKey(name)
		if err == nil {
			priv, idx = k, i
			break
		}
		if !errors.IsMissingKey(err) {
			return nil, err
		}
	}
	if priv == nil {
		return nil, fmt.Errorf("%w: none of %s available locally",
			errors.ErrMissingKey, strings.Join(info.KeyNames, ", "))
	}
	return crypto.UnwrapKey(priv, info.WrappedKeys[idx])
}

// rewrite replaces the object's metadata via an in-place copy. The object
// body and content type are preserved; only the metadata directive differs
// from a plain copy.
func (m *KeyManager) rewrite(
	ctx context.Context,
	bucket, key string,
	head *s3.HeadObjectOutput,
	info *metadata.ObjectInfo,
) (*s3types.S3File, error) {
	meta := make(map[string]string, len(head.Metadata))
	for k, v := range head.Metadata {
		meta[k] = v
	}
	info.Apply(meta)

	var etag string
	desc := "updating key metadata of " + uri(bucket, key)
	err := m.env.Retry.Do(ctx, desc, func(ctx context.Context) error {
		return m.env.Call(ctx, func() error {
			out, err := m.env.API.CopyObject(ctx, &s3.CopyObjectInput{
				Bucket:            aws.String(bucket),
				Key:               aws.String(key),
				CopySource:        aws.String(bucket + "/" + key),
				Metadata:          meta,
				MetadataDirective: types.MetadataDirectiveReplace,
				ContentType:       head.ContentType,
			})
			if err != nil {
				return err
			}
			if out.CopyObjectResult != nil {
				etag = strings.Trim(aws.ToString(out.CopyObjectResult.ETag), `"`)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return &s3types.S3File{
		Bucket: bucket,
		Key:    key,
		ETag:   etag,
		Size:   head.ContentLength,
	}, nil
}
