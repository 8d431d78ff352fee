package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"

	"github.com/s3tool/s3tool/errors"
)

// WrapKey encrypts the symmetric key to the given RSA public key and returns
// it base64-encoded, the form stored in object metadata. RSA PKCS#1 v1.5 is
// used for compatibility with objects written by earlier tooling.
func WrapKey(pub *rsa.PublicKey, key []byte) (string, error) {
	wrapped, err := rsa.EncryptPKCS1v15(rand.Reader, pub, key)
	if err != nil {
		return "", fmt.Errorf("%w: wrapping symmetric key: %w", errors.ErrCrypto, err)
	}
	return base64.StdEncoding.EncodeToString(wrapped), nil
}

// UnwrapKey decodes and decrypts a wrapped symmetric key from object
// metadata. The unwrapped key must be exactly KeySize bytes; anything else
// means the wrong private key was used or the metadata is corrupt.
func UnwrapKey(priv *rsa.PrivateKey, wrapped string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding wrapped key: %w", errors.ErrCrypto, err)
	}

	key, err := rsa.DecryptPKCS1v15(nil, priv, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: unwrapping symmetric key: %w", errors.ErrCrypto, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", errors.ErrWrongKeyLength, len(key), KeySize)
	}
	return key, nil
}
