// Package keystore loads RSA key pairs from a local key directory.
//
// Keys are PEM files named <keyname>.pem. A file may hold a private key, a
// public key, or both; public keys are derived from private ones when only
// the private key is present. The default directory is ~/.s3lib-keys.
package keystore

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/s3tool/s3tool/errors"
)

// DefaultDirName is the key directory under the user's home directory.
const DefaultDirName = ".s3lib-keys"

// DefaultKeyBits is the RSA modulus size used by GenerateKeyPair.
const DefaultKeyBits = 2048

// Provider resolves named encryption keys.
type Provider interface {
	// PublicKey returns the public half of the named key pair.
	PublicKey(name string) (*rsa.PublicKey, error)

	// PrivateKey returns the private half of the named key pair.
	PrivateKey(name string) (*rsa.PrivateKey, error)
}

// DefaultDir returns the default key directory path.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, DefaultDirName), nil
}

// DirProvider is a Provider backed by a directory of PEM files.
type DirProvider struct {
	dir string
}

// NewDirProvider returns a provider reading keys from dir. A leading "~/" is
// expanded to the user's home directory.
func NewDirProvider(dir string) (*DirProvider, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	return &DirProvider{dir: dir}, nil
}

// Dir returns the directory the provider reads from.
func (p *DirProvider) Dir() string {
	return p.dir
}

// PublicKey implements Provider.
func (p *DirProvider) PublicKey(name string) (*rsa.PublicKey, error) {
	pub, priv, err := p.load(name)
	if err != nil {
		return nil, err
	}
	if pub != nil {
		return pub, nil
	}
	if priv != nil {
		return &priv.PublicKey, nil
	}
	return nil, fmt.Errorf("%w: no public key material in %q", errors.ErrMissingKey, p.keyPath(name))
}

// PrivateKey implements Provider.
func (p *DirProvider) PrivateKey(name string) (*rsa.PrivateKey, error) {
	_, priv, err := p.load(name)
	if err != nil {
		return nil, err
	}
	if priv == nil {
		return nil, fmt.Errorf("%w: no private key material in %q", errors.ErrMissingKey, p.keyPath(name))
	}
	return priv, nil
}

func (p *DirProvider) keyPath(name string) string {
	return filepath.Join(p.dir, name+".pem")
}

func (p *DirProvider) load(name string) (*rsa.PublicKey, *rsa.PrivateKey, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, nil, fmt.Errorf("%w: invalid key name %q", errors.ErrMissingKey, name)
	}

	data, err := os.ReadFile(p.keyPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %q in %s", errors.ErrMissingKey, name, p.dir)
		}
		return nil, nil, fmt.Errorf("reading key %q: %w", name, err)
	}

	var pub *rsa.PublicKey
	var priv *rsa.PrivateKey

	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		switch block.Type {
		case "RSA PRIVATE KEY":
			k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, nil, fmt.Errorf("parsing private key %q: %w", name, err)
			}
			priv = k
		case "PRIVATE KEY":
			k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, nil, fmt.Errorf("parsing private key %q: %w", name, err)
			}
			rsaKey, ok := k.(*rsa.PrivateKey)
			if !ok {
				return nil, nil, fmt.Errorf("key %q is not an RSA key", name)
			}
			priv = rsaKey
		case "RSA PUBLIC KEY":
			k, err := x509.ParsePKCS1PublicKey(block.Bytes)
			if err != nil {
				return nil, nil, fmt.Errorf("parsing public key %q: %w", name, err)
			}
			pub = k
		case "PUBLIC KEY":
			k, err := x509.ParsePKIXPublicKey(block.Bytes)
			if err != nil {
				return nil, nil, fmt.Errorf("parsing public key %q: %w", name, err)
			}
			rsaKey, ok := k.(*rsa.PublicKey)
			if !ok {
				return nil, nil, fmt.Errorf("key %q is not an RSA key", name)
			}
			pub = rsaKey
		}
	}

	if pub == nil && priv == nil {
		return nil, nil, fmt.Errorf("%w: no PEM key blocks in %q", errors.ErrMissingKey, p.keyPath(name))
	}
	return pub, priv, nil
}

// GenerateKeyPair creates a new RSA key pair and writes it to
// <dir>/<name>.pem with the private and public halves as separate PEM
// blocks. It refuses to overwrite an existing key file.
func GenerateKeyPair(dir, name string, bits int) (string, error) {
	if bits <= 0 {
		bits = DefaultKeyBits
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating key directory: %w", err)
	}

	path := filepath.Join(dir, name+".pem")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("key file %q already exists", path)
	}

	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return "", fmt.Errorf("generating RSA key: %w", err)
	}

	var buf strings.Builder
	if err := pem.Encode(&buf, &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	}); err != nil {
		return "", fmt.Errorf("encoding private key: %w", err)
	}
	pubBytes, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return "", fmt.Errorf("encoding public key: %w", err)
	}
	if err := pem.Encode(&buf, &pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes}); err != nil {
		return "", fmt.Errorf("encoding public key: %w", err)
	}

	if err := os.WriteFile(path, []byte(buf.String()), 0o600); err != nil {
		return "", fmt.Errorf("writing key file: %w", err)
	}
	return path, nil
}
