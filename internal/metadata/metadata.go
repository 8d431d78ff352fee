// Package metadata encodes and decodes the object metadata contract that
// records how an object was written: tool version, plaintext length, chunk
// size, and for encrypted objects the wrapped symmetric key material.
//
// An object may be wrapped to several key pairs at once. The key-name and
// wrapped-key fields then hold comma-separated lists of equal length, entry i
// of one corresponding to entry i of the other.
package metadata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/s3tool/s3tool/errors"
)

// Version is the contract version stamped on every object this tool writes.
const Version = "0.0"

// Metadata keys. These names are part of the stored-object contract and must
// never change: objects written years ago are read back through them.
const (
	VersionKey      = "s3tool-version"
	KeyNameKey      = "s3tool-key-name"
	SymmetricKeyKey = "s3tool-symmetric-key"
	ChunkSizeKey    = "s3tool-chunk-size"
	FileLengthKey   = "s3tool-file-length"
)

// ObjectInfo is the decoded form of the tool's object metadata.
type ObjectInfo struct {
	// Version is the contract version the object was written with.
	Version string

	// KeyNames lists the names of the key pairs the symmetric key is
	// wrapped to. Empty for unencrypted objects.
	KeyNames []string

	// WrappedKeys holds the base64 wrapped symmetric key per entry of
	// KeyNames, in the same order.
	WrappedKeys []string

	// ChunkSize is the plaintext chunk size the object was split with.
	ChunkSize int64

	// FileLength is the plaintext length of the object.
	FileLength int64
}

// Encrypted reports whether the object carries wrapped key material.
func (i *ObjectInfo) Encrypted() bool {
	return len(i.KeyNames) > 0
}

// HasKey reports whether the symmetric key is wrapped to the named key pair.
func (i *ObjectInfo) HasKey(name string) bool {
	for _, n := range i.KeyNames {
		if n == name {
			return true
		}
	}
	return false
}

// Parse decodes tool metadata from an object's user metadata map. The second
// return value reports whether the object carries tool metadata at all;
// foreign objects (no version key) return (nil, false, nil).
func Parse(meta map[string]string) (*ObjectInfo, bool, error) {
	version, ok := meta[VersionKey]
	if !ok {
		return nil, false, nil
	}
	if version != Version {
		return nil, true, fmt.Errorf("%w: object version %q, tool version %q",
			errors.ErrUnsupportedVersion, version, Version)
	}

	info := &ObjectInfo{Version: version}

	var err error
	if info.ChunkSize, err = parseInt(meta, ChunkSizeKey); err != nil {
		return nil, true, err
	}
	if info.FileLength, err = parseInt(meta, FileLengthKey); err != nil {
		return nil, true, err
	}

	if names, ok := meta[KeyNameKey]; ok {
		info.KeyNames = strings.Split(names, ",")
		wrapped, ok := meta[SymmetricKeyKey]
		if !ok {
			return nil, true, fmt.Errorf("object has %s but no %s", KeyNameKey, SymmetricKeyKey)
		}
		info.WrappedKeys = strings.Split(wrapped, ",")
		if len(info.KeyNames) != len(info.WrappedKeys) {
			return nil, true, fmt.Errorf("mismatched key lists: %d names, %d wrapped keys",
				len(info.KeyNames), len(info.WrappedKeys))
		}
	}

	return info, true, nil
}

// Apply stamps the tool metadata onto a user metadata map, leaving foreign
// entries untouched.
func (i *ObjectInfo) Apply(meta map[string]string) {
	meta[VersionKey] = Version
	meta[ChunkSizeKey] = strconv.FormatInt(i.ChunkSize, 10)
	meta[FileLengthKey] = strconv.FormatInt(i.FileLength, 10)
	if i.Encrypted() {
		meta[KeyNameKey] = strings.Join(i.KeyNames, ",")
		meta[SymmetricKeyKey] = strings.Join(i.WrappedKeys, ",")
	} else {
		delete(meta, KeyNameKey)
		delete(meta, SymmetricKeyKey)
	}
}

// Map returns a fresh metadata map holding only the tool's entries.
func (i *ObjectInfo) Map() map[string]string {
	meta := make(map[string]string, 5)
	i.Apply(meta)
	return meta
}

func parseInt(meta map[string]string, key string) (int64, error) {
	raw, ok := meta[key]
	if !ok {
		return 0, fmt.Errorf("missing metadata entry %s", key)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed metadata entry %s=%q: %w", key, raw, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative metadata entry %s=%q", key, raw)
	}
	return v, nil
}
