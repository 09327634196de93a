package testutil

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// MockBuilder assembles a MockS3Client from canned behaviors. Presets
// chain, and tests override single Func fields afterwards to inject
// failures at one step of a flow.
type MockBuilder struct {
	mock *MockS3Client
}

// NewMockBuilder starts an empty builder.
func NewMockBuilder() *MockBuilder {
	return &MockBuilder{mock: &MockS3Client{}}
}

// Build returns the assembled mock.
func (b *MockBuilder) Build() *MockS3Client {
	return b.mock
}

// WithSuccessfulUpload makes PutObject drain its body and report a
// fixed ETag.
func (b *MockBuilder) WithSuccessfulUpload() *MockBuilder {
	b.mock.PutObjectFunc = func(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		drainBody(params.Body)
		return &s3.PutObjectOutput{ETag: aws.String(`"test-etag"`)}, nil
	}
	return b
}

// WithEmptyBucket makes listings come back empty and final.
func (b *MockBuilder) WithEmptyBucket() *MockBuilder {
	b.mock.ListObjectsV2Func = func(_ context.Context, _ *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
		return &s3.ListObjectsV2Output{
			IsTruncated: aws.Bool(false),
			KeyCount:    aws.Int32(0),
		}, nil
	}
	return b
}

// WithMultipartUpload wires the whole create/upload/complete/abort cycle
// under the upload id "test-upload-id".
func (b *MockBuilder) WithMultipartUpload() *MockBuilder {
	b.mock.CreateMultipartUploadFunc = func(_ context.Context, params *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
		return &s3.CreateMultipartUploadOutput{
			UploadId: aws.String("test-upload-id"),
			Bucket:   params.Bucket,
			Key:      params.Key,
		}, nil
	}
	b.mock.UploadPartFunc = func(_ context.Context, params *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
		drainBody(params.Body)
		return &s3.UploadPartOutput{ETag: aws.String(`"part-etag"`)}, nil
	}
	b.mock.CompleteMultipartUploadFunc = func(_ context.Context, params *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
		return &s3.CompleteMultipartUploadOutput{
			ETag:   aws.String(`"multipart-etag"`),
			Bucket: params.Bucket,
			Key:    params.Key,
		}, nil
	}
	b.mock.AbortMultipartUploadFunc = func(_ context.Context, _ *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
		return &s3.AbortMultipartUploadOutput{}, nil
	}
	return b
}

// WithObjectNotFound makes GetObject report a missing key.
func (b *MockBuilder) WithObjectNotFound() *MockBuilder {
	b.mock.GetObjectFunc = func(_ context.Context, _ *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
		return nil, &s3types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return b
}

// WithAccessDenied makes list, get, put and delete all fail with the S3
// AccessDenied API error.
func (b *MockBuilder) WithAccessDenied() *MockBuilder {
	denied := &smithy.GenericAPIError{Code: "AccessDenied", Message: "Access Denied"}

	b.mock.ListObjectsV2Func = func(_ context.Context, _ *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
		return nil, denied
	}
	b.mock.GetObjectFunc = func(_ context.Context, _ *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
		return nil, denied
	}
	b.mock.PutObjectFunc = func(_ context.Context, _ *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, denied
	}
	b.mock.DeleteObjectsFunc = func(_ context.Context, _ *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
		return nil, denied
	}
	return b
}

// drainBody consumes a request body the way the real transport would.
func drainBody(body io.Reader) {
	if body != nil {
		_, _ = io.Copy(io.Discard, body)
	}
}
