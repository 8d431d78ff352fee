package s3tool

import (
	"net/url"
	"strings"

	"github.com/s3tool/s3tool/errors"
)

// URIScheme is the scheme accepted by ParseURI.
const URIScheme = "s3://"

// ParseURI splits an s3://bucket/key URI into bucket and key. The key may be
// empty, addressing the bucket itself.
func ParseURI(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(uri, URIScheme) {
		return "", "", errors.NewError("parseURI", errors.ErrInvalidInput).
			WithMessage("URI must start with " + URIScheme)
	}

	rest := strings.TrimPrefix(uri, URIScheme)
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", errors.NewError("parseURI", errors.ErrInvalidInput).
			WithMessage("URI has no bucket name")
	}
	return bucket, key, nil
}

// ParseVersionedURI splits an s3://bucket/key?versionId=... URI. The version
// qualifier is optional; without one the returned version is empty.
func ParseVersionedURI(uri string) (bucket, key, versionID string, err error) {
	base, query, _ := strings.Cut(uri, "?")
	bucket, key, err = ParseURI(base)
	if err != nil {
		return "", "", "", err
	}
	if query != "" {
		values, parseErr := url.ParseQuery(query)
		if parseErr != nil {
			return "", "", "", errors.NewError("parseURI", errors.ErrInvalidInput).
				WithMessage("malformed URI query: " + parseErr.Error())
		}
		versionID = values.Get("versionId")
	}
	return bucket, key, versionID, nil
}

// FormatURI renders the canonical URI for an object.
func FormatURI(bucket, key string) string {
	if key == "" {
		return URIScheme + bucket
	}
	return URIScheme + bucket + "/" + key
}
