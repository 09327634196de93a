// Package testutil provides mocks, in-memory stores, and fixture helpers
// shared by the snowsync test suites.
package testutil

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/NYPL/snowsync/internal/storeapi"
)

// MockS3Client implements storeapi.S3API through per-operation function
// fields. An unset field answers with an empty output, so tests only wire
// the calls they assert on.
type MockS3Client struct {
	ListObjectsV2Func           func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObjectFunc               func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObjectFunc               func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjectsFunc           func(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	CopyObjectFunc              func(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	CreateMultipartUploadFunc   func(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPartFunc              func(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUploadFunc func(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUploadFunc    func(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

var _ storeapi.S3API = (*MockS3Client)(nil)

// ListObjectsV2 dispatches to ListObjectsV2Func when set.
func (m *MockS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if m.ListObjectsV2Func == nil {
		return &s3.ListObjectsV2Output{}, nil
	}
	return m.ListObjectsV2Func(ctx, params, optFns...)
}

// GetObject dispatches to GetObjectFunc when set.
func (m *MockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.GetObjectFunc == nil {
		return &s3.GetObjectOutput{}, nil
	}
	return m.GetObjectFunc(ctx, params, optFns...)
}

// PutObject dispatches to PutObjectFunc when set.
func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.PutObjectFunc == nil {
		return &s3.PutObjectOutput{}, nil
	}
	return m.PutObjectFunc(ctx, params, optFns...)
}

// DeleteObjects dispatches to DeleteObjectsFunc when set.
func (m *MockS3Client) DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	if m.DeleteObjectsFunc == nil {
		return &s3.DeleteObjectsOutput{}, nil
	}
	return m.DeleteObjectsFunc(ctx, params, optFns...)
}

// CopyObject dispatches to CopyObjectFunc when set.
func (m *MockS3Client) CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	if m.CopyObjectFunc == nil {
		return &s3.CopyObjectOutput{}, nil
	}
	return m.CopyObjectFunc(ctx, params, optFns...)
}

// CreateMultipartUpload dispatches to CreateMultipartUploadFunc when set.
func (m *MockS3Client) CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	if m.CreateMultipartUploadFunc == nil {
		return &s3.CreateMultipartUploadOutput{}, nil
	}
	return m.CreateMultipartUploadFunc(ctx, params, optFns...)
}

// UploadPart dispatches to UploadPartFunc when set.
func (m *MockS3Client) UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	if m.UploadPartFunc == nil {
		return &s3.UploadPartOutput{}, nil
	}
	return m.UploadPartFunc(ctx, params, optFns...)
}

// CompleteMultipartUpload dispatches to CompleteMultipartUploadFunc when set.
func (m *MockS3Client) CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	if m.CompleteMultipartUploadFunc == nil {
		return &s3.CompleteMultipartUploadOutput{}, nil
	}
	return m.CompleteMultipartUploadFunc(ctx, params, optFns...)
}

// AbortMultipartUpload dispatches to AbortMultipartUploadFunc when set.
func (m *MockS3Client) AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	if m.AbortMultipartUploadFunc == nil {
		return &s3.AbortMultipartUploadOutput{}, nil
	}
	return m.AbortMultipartUploadFunc(ctx, params, optFns...)
}
