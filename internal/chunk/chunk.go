// Package chunk plans how a file of known length splits into transfer parts,
// including the ciphertext geometry of encrypted objects.
//
// Encrypted parts are independent CBC streams: each part carries a 16-byte IV
// block up front and PKCS#7 padding at the end, so a part holding p plaintext
// bytes occupies 16*(p/16 + 2) ciphertext bytes. Plaintext chunk sizes must be
// multiples of the block size so that every part except the last is exactly
// one stride long.
package chunk

import "fmt"

const (
	// BlockSize is the AES block size in bytes.
	BlockSize = 16

	// DefaultChunkSize is the plaintext chunk size used when the caller does
	// not choose one.
	DefaultChunkSize = 5 * 1024 * 1024

	// MinChunkSize guards against chunk sizes below the S3 multipart part
	// minimum, which the service rejects for all but the last part.
	MinChunkSize = 5 * 1024 * 1024
)

// Part describes one transfer part: its position in the plaintext file and,
// for encrypted objects, its position in the stored ciphertext.
type Part struct {
	// N is the zero-based part index. The S3 part number is N+1.
	N int32

	// PlainStart is the part's byte offset in the plaintext file.
	PlainStart int64

	// PlainLen is the number of plaintext bytes the part holds.
	PlainLen int64

	// CipherStart is the part's byte offset in the stored object.
	// Equal to PlainStart when the object is not encrypted.
	CipherStart int64

	// CipherLen is the number of stored bytes the part occupies.
	// Equal to PlainLen when the object is not encrypted.
	CipherLen int64
}

// CipherStride returns the stored size of a full encrypted chunk: the
// distance between consecutive encrypted parts in the object.
func CipherStride(chunkSize int64) int64 {
	return BlockSize * (chunkSize/BlockSize + 2)
}

// CipherLen returns the stored size of an encrypted part holding plainLen
// plaintext bytes: IV block, ciphertext, and padding. Padding always adds a
// block when plainLen is block-aligned, so the result is 16*(plainLen/16 + 2).
func CipherLen(plainLen int64) int64 {
	return BlockSize * (plainLen/BlockSize + 2)
}

// Count returns the number of parts a file of the given length splits into.
// A zero-length file still produces one (empty) part.
func Count(length, chunkSize int64) int64 {
	if length == 0 {
		return 1
	}
	return (length + chunkSize - 1) / chunkSize
}

// Plan splits a file of the given length into parts. chunkSize must be
// positive and, when encrypted, a multiple of BlockSize.
func Plan(length, chunkSize int64, encrypted bool) ([]Part, error) {
	if length < 0 {
		return nil, fmt.Errorf("negative length %d", length)
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if encrypted && chunkSize%BlockSize != 0 {
		return nil, fmt.Errorf("chunk size %d is not a multiple of the cipher block size %d", chunkSize, BlockSize)
	}

	n := Count(length, chunkSize)
	parts := make([]Part, 0, n)
	stride := chunkSize
	if encrypted {
		stride = CipherStride(chunkSize)
	}

	for i := int64(0); i < n; i++ {
		plainStart := i * chunkSize
		plainLen := min(length-plainStart, chunkSize)

		p := Part{
			N:           int32(i),
			PlainStart:  plainStart,
			PlainLen:    plainLen,
			CipherStart: plainStart,
			CipherLen:   plainLen,
		}
		if encrypted {
			p.CipherStart = i * stride
			p.CipherLen = CipherLen(plainLen)
		}
		parts = append(parts, p)
	}

	return parts, nil
}

// TotalCipherLen returns the stored size of the whole object.
func TotalCipherLen(length, chunkSize int64, encrypted bool) int64 {
	if !encrypted {
		return length
	}
	n := Count(length, chunkSize)
	last := length - (n-1)*chunkSize
	return (n-1)*CipherStride(chunkSize) + CipherLen(last)
}
