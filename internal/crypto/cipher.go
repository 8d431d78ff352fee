// Package crypto implements the client-side encryption used for stored
// objects: AES-256-CBC with PKCS#7 padding for data, with the symmetric key
// wrapped to RSA key pairs held in a local key directory.
//
// Every part of a multipart object is an independent CBC stream with its own
// random IV written as the first ciphertext block. Parts can therefore be
// encrypted and decrypted in any order and in parallel.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/s3tool/s3tool/errors"
)

// KeySize is the symmetric key size in bytes (AES-256).
const KeySize = 32

// GenerateKey returns a fresh random symmetric key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating symmetric key: %w", err)
	}
	return key, nil
}

// NewEncryptReader wraps src in a reader producing its CBC ciphertext.
// The first block read out is a fresh random IV; the stream ends with PKCS#7
// padding, so the ciphertext of n plaintext bytes is 16*(n/16 + 2) bytes.
// Encryption happens lazily as the reader is consumed.
func NewEncryptReader(src io.Reader, key []byte) (io.Reader, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrCrypto, err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("%w: generating IV: %w", errors.ErrCrypto, err)
	}

	e := &encryptReader{
		src:  src,
		mode: cipher.NewCBCEncrypter(block, iv),
	}
	e.out.Write(iv)
	return e, nil
}

type encryptReader struct {
	src   io.Reader
	mode  cipher.BlockMode
	out   bytes.Buffer // ciphertext ready to hand out
	carry []byte       // plaintext tail shorter than a block
	done  bool
}

func (e *encryptReader) Read(p []byte) (int, error) {
	for e.out.Len() == 0 {
		if e.done {
			return 0, io.EOF
		}
		if err := e.fill(); err != nil {
			return 0, err
		}
	}
	return e.out.Read(p)
}

func (e *encryptReader) fill() error {
	buf := make([]byte, 8192)
	n, err := e.src.Read(buf)
	if n > 0 {
		e.carry = append(e.carry, buf[:n]...)
		if full := len(e.carry) / aes.BlockSize * aes.BlockSize; full > 0 {
			ct := make([]byte, full)
			e.mode.CryptBlocks(ct, e.carry[:full])
			e.out.Write(ct)
			e.carry = append(e.carry[:0], e.carry[full:]...)
		}
	}
	if err == io.EOF {
		final := pkcs7Pad(e.carry)
		ct := make([]byte, len(final))
		e.mode.CryptBlocks(ct, final)
		e.out.Write(ct)
		e.done = true
		return nil
	}
	return err
}

// NewDecryptReader wraps src, a CBC ciphertext stream as produced by
// NewEncryptReader, in a reader yielding the plaintext. The IV is consumed
// from the front of src on the first Read; padding is stripped at the end.
func NewDecryptReader(src io.Reader, key []byte) (io.Reader, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrCrypto, err)
	}
	return &decryptReader{src: src, block: block}, nil
}

type decryptReader struct {
	src     io.Reader
	block   cipher.Block
	mode    cipher.BlockMode // nil until the IV has been read
	out     bytes.Buffer     // plaintext ready to hand out
	carry   []byte           // ciphertext not yet block-aligned
	held    []byte           // last decrypted block, held back for padding
	done    bool
}

func (d *decryptReader) Read(p []byte) (int, error) {
	for d.out.Len() == 0 {
		if d.done {
			return 0, io.EOF
		}
		if err := d.fill(); err != nil {
			return 0, err
		}
	}
	return d.out.Read(p)
}

func (d *decryptReader) fill() error {
	if d.mode == nil {
		iv := make([]byte, aes.BlockSize)
		if _, err := io.ReadFull(d.src, iv); err != nil {
			return fmt.Errorf("%w: reading IV: %w", errors.ErrCrypto, err)
		}
		d.mode = cipher.NewCBCDecrypter(d.block, iv)
	}

	buf := make([]byte, 8192)
	n, err := d.src.Read(buf)
	if n > 0 {
		d.carry = append(d.carry, buf[:n]...)
		if full := len(d.carry) / aes.BlockSize * aes.BlockSize; full > 0 {
			pt := make([]byte, full)
			d.mode.CryptBlocks(pt, d.carry[:full])
			d.carry = append(d.carry[:0], d.carry[full:]...)

			// the final block of the stream carries padding, so one
			// decrypted block always stays held back until EOF
			d.held = append(d.held, pt...)
			if release := len(d.held) - aes.BlockSize; release > 0 {
				d.out.Write(d.held[:release])
				d.held = append(d.held[:0], d.held[release:]...)
			}
		}
	}
	if err == io.EOF {
		if len(d.carry) != 0 {
			return fmt.Errorf("%w: ciphertext is not block-aligned", errors.ErrCrypto)
		}
		if len(d.held) != aes.BlockSize {
			return fmt.Errorf("%w: ciphertext too short", errors.ErrCrypto)
		}
		final, perr := pkcs7Strip(d.held)
		if perr != nil {
			return perr
		}
		d.out.Write(final)
		d.done = true
		return nil
	}
	return err
}

func pkcs7Pad(data []byte) []byte {
	pad := aes.BlockSize - len(data)%aes.BlockSize
	out := make([]byte, len(data)+pad)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(pad)
	}
	return out
}

func pkcs7Strip(block []byte) ([]byte, error) {
	pad := int(block[len(block)-1])
	if pad == 0 || pad > aes.BlockSize {
		return nil, fmt.Errorf("%w: invalid padding", errors.ErrCrypto)
	}
	for _, b := range block[len(block)-pad:] {
		if int(b) != pad {
			return nil, fmt.Errorf("%w: invalid padding", errors.ErrCrypto)
		}
	}
	return block[:len(block)-pad], nil
}
