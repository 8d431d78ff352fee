package crypto

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s3tool/s3tool/errors"
	"github.com/s3tool/s3tool/internal/chunk"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	require.Len(t, key, KeySize)
	return key
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := testKey(t)

	sizes := []int{0, 1, 15, 16, 17, 31, 32, 1000, 8192, 8192 + 5, 100000}
	for _, size := range sizes {
		plain := make([]byte, size)
		_, err := rand.Read(plain)
		require.NoError(t, err)

		enc, err := NewEncryptReader(bytes.NewReader(plain), key)
		require.NoError(t, err)

		ciphertext, err := io.ReadAll(enc)
		require.NoError(t, err)
		assert.Equal(t, chunk.CipherLen(int64(size)), int64(len(ciphertext)), "size=%d", size)

		dec, err := NewDecryptReader(bytes.NewReader(ciphertext), key)
		require.NoError(t, err)

		got, err := io.ReadAll(dec)
		require.NoError(t, err)
		assert.Equal(t, plain, got, "size=%d", size)
	}
}

func TestEncryptReader_FreshIVPerStream(t *testing.T) {
	key := testKey(t)
	plain := []byte("same plaintext twice")

	read := func() []byte {
		enc, err := NewEncryptReader(bytes.NewReader(plain), key)
		require.NoError(t, err)
		ct, err := io.ReadAll(enc)
		require.NoError(t, err)
		return ct
	}

	first := read()
	second := read()
	assert.NotEqual(t, first[:16], second[:16])
	assert.NotEqual(t, first, second)
}

func TestEncryptReader_SmallReads(t *testing.T) {
	key := testKey(t)
	plain := bytes.Repeat([]byte("abc"), 1000)

	enc, err := NewEncryptReader(bytes.NewReader(plain), key)
	require.NoError(t, err)

	// drain one byte at a time
	var ciphertext []byte
	buf := make([]byte, 1)
	for {
		n, err := enc.Read(buf)
		ciphertext = append(ciphertext, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	dec, err := NewDecryptReader(bytes.NewReader(ciphertext), key)
	require.NoError(t, err)
	got, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestDecryptReader_WrongKey(t *testing.T) {
	plain := []byte("some data worth hiding")

	enc, err := NewEncryptReader(bytes.NewReader(plain), testKey(t))
	require.NoError(t, err)
	ciphertext, err := io.ReadAll(enc)
	require.NoError(t, err)

	dec, err := NewDecryptReader(bytes.NewReader(ciphertext), testKey(t))
	require.NoError(t, err)

	got, err := io.ReadAll(dec)
	if err == nil {
		// wrong key usually breaks the padding; if padding happens to
		// parse, the plaintext still cannot match
		assert.NotEqual(t, plain, got)
	} else {
		assert.ErrorIs(t, err, errors.ErrCrypto)
	}
}

func TestDecryptReader_Truncated(t *testing.T) {
	key := testKey(t)

	enc, err := NewEncryptReader(bytes.NewReader([]byte("0123456789abcdef0123")), key)
	require.NoError(t, err)
	ciphertext, err := io.ReadAll(enc)
	require.NoError(t, err)

	t.Run("mid-block", func(t *testing.T) {
		dec, err := NewDecryptReader(bytes.NewReader(ciphertext[:len(ciphertext)-5]), key)
		require.NoError(t, err)
		_, err = io.ReadAll(dec)
		assert.ErrorIs(t, err, errors.ErrCrypto)
	})

	t.Run("iv only", func(t *testing.T) {
		dec, err := NewDecryptReader(bytes.NewReader(ciphertext[:16]), key)
		require.NoError(t, err)
		_, err = io.ReadAll(dec)
		assert.ErrorIs(t, err, errors.ErrCrypto)
	})

	t.Run("empty", func(t *testing.T) {
		dec, err := NewDecryptReader(bytes.NewReader(nil), key)
		require.NoError(t, err)
		_, err = io.ReadAll(dec)
		assert.ErrorIs(t, err, errors.ErrCrypto)
	})
}

func TestWrapUnwrapKey(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	key := testKey(t)

	wrapped, err := WrapKey(&priv.PublicKey, key)
	require.NoError(t, err)
	assert.NotEmpty(t, wrapped)

	got, err := UnwrapKey(priv, wrapped)
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestUnwrapKey_WrongPrivateKey(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	wrapped, err := WrapKey(&priv.PublicKey, testKey(t))
	require.NoError(t, err)

	_, err = UnwrapKey(other, wrapped)
	require.Error(t, err)
}

func TestUnwrapKey_WrongLength(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	// wrap something that is not a 32-byte key
	wrapped, err := WrapKey(&priv.PublicKey, []byte("short"))
	require.NoError(t, err)

	_, err = UnwrapKey(priv, wrapped)
	assert.ErrorIs(t, err, errors.ErrWrongKeyLength)
}

func TestUnwrapKey_BadBase64(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	_, err = UnwrapKey(priv, "not base64 !!!")
	assert.ErrorIs(t, err, errors.ErrCrypto)
}
