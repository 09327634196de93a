package snowsync

import (
	"strings"

	"github.com/NYPL/snowsync/errors"
	"github.com/NYPL/snowsync/internal/validate"
)

const s3Scheme = "s3://"

// Location identifies a transfer endpoint: an S3 bucket with an optional
// key prefix, or a local directory.
type Location struct {
	// Bucket is the S3 bucket name; empty for local locations
	Bucket string

	// Prefix is the key prefix within the bucket. Prefixes are literal:
	// no slash is added or removed, so "drive7/" and "drive7" select
	// different key sets.
	Prefix string

	// Path is the local directory; empty for S3 locations
	Path string
}

// IsS3 reports whether the location names an S3 bucket.
func (l Location) IsS3() bool {
	return l.Bucket != ""
}

// String renders the location the way it was written.
func (l Location) String() string {
	if l.IsS3() {
		if l.Prefix == "" {
			return s3Scheme + l.Bucket
		}
		return s3Scheme + l.Bucket + "/" + l.Prefix
	}
	return l.Path
}

// ParseLocation parses an endpoint spec: "s3://bucket", "s3://bucket/prefix",
// or a local directory path.
func ParseLocation(raw string) (Location, error) {
	if raw == "" {
		return Location{}, errors.NewError("parseLocation", errors.ErrInvalidInput).
			WithMessage("location cannot be empty")
	}

	if !strings.HasPrefix(raw, s3Scheme) {
		return Location{Path: raw}, nil
	}

	bucket, prefix, _ := strings.Cut(strings.TrimPrefix(raw, s3Scheme), "/")
	if err := validate.BucketName(bucket); err != nil {
		return Location{}, err
	}
	return Location{Bucket: bucket, Prefix: prefix}, nil
}
