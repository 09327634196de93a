// Package testutil provides shared fixtures for snowsync tests: SDK
// pointer shorthands, canned S3 responses, and deterministic listing
// entries.
package testutil

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/NYPL/snowsync/types"
)

// StringPtr is shorthand for aws.String in hand-built SDK values.
func StringPtr(s string) *string { return aws.String(s) }

// Int32Ptr is shorthand for aws.Int32 in hand-built SDK values.
func Int32Ptr(i int32) *int32 { return aws.Int32(i) }

// Entry builds a listing entry with a fixed timestamp so planner tests
// stay deterministic. An empty etag models stores that report none.
func Entry(key string, size int64, etag string) types.ObjectEntry {
	return types.ObjectEntry{
		Key:          key,
		Size:         size,
		LastModified: time.Unix(1700000000, 0).UTC(),
		StorageClass: string(types.StorageClassStandard),
		ETag:         etag,
	}
}

// GenerateTestBucketName derives a bucket name that is safe to create
// against a live endpoint: lowercased, dash-separated, unique per run,
// and clipped to the 63 character DNS limit.
func GenerateTestBucketName(prefix string) string {
	name := fmt.Sprintf("%s-%d-%d", prefix, time.Now().Unix(), rand.Int31n(10000))
	name = strings.ReplaceAll(strings.ToLower(name), "_", "-")
	if len(name) > 63 {
		return name[:63]
	}
	return name
}

// CalculateETag returns the quoted ETag S3 reports for a simple upload.
func CalculateETag(data []byte) string {
	return `"` + RawETag(data) + `"`
}

// CreateTestObject fabricates one object record for a mocked list page.
// The etag is derived from the key so repeated calls agree.
func CreateTestObject(key string, size int64, lastModified time.Time) s3types.Object {
	return s3types.Object{
		Key:          aws.String(key),
		Size:         aws.Int64(size),
		LastModified: aws.Time(lastModified),
		ETag:         aws.String(CalculateETag([]byte(key))),
		StorageClass: s3types.ObjectStorageClassStandard,
	}
}

// CreateListObjectsV2Output fabricates one page of list results. When
// truncated is set and the page is non-empty, a continuation token is
// attached so pagination loops take another lap.
func CreateListObjectsV2Output(objects []s3types.Object, prefix string, truncated bool) *s3.ListObjectsV2Output {
	out := &s3.ListObjectsV2Output{
		Contents:    objects,
		KeyCount:    aws.Int32(int32(len(objects))),
		Prefix:      aws.String(prefix),
		IsTruncated: aws.Bool(truncated),
	}
	if truncated && len(objects) > 0 {
		out.NextContinuationToken = aws.String("next-token")
	}
	return out
}

// CreateGetObjectOutput fabricates a download response whose etag and
// length agree with the supplied body.
func CreateGetObjectOutput(data []byte, contentType string) *s3.GetObjectOutput {
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		ETag:          aws.String(CalculateETag(data)),
		LastModified:  aws.Time(time.Now()),
	}
}
