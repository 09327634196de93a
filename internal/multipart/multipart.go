// Package multipart uploads large or unknown-size streams to S3 in parts.
//
// Parts stream sequentially through one reusable buffer, so memory use
// stays at one part regardless of object size. A failed upload aborts
// the multipart session rather than leaving orphaned parts behind.
package multipart

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/NYPL/snowsync/errors"
	"github.com/NYPL/snowsync/internal/pool"
	"github.com/NYPL/snowsync/internal/storeapi"
	"github.com/NYPL/snowsync/types"
)

const (
	// MinPartSize is the S3 floor for every part but the last.
	MinPartSize = 5 * 1024 * 1024

	// DefaultPartSize balances request count against buffer memory.
	DefaultPartSize = 8 * 1024 * 1024

	// maxParts is the S3 ceiling on parts per upload.
	maxParts = 10000
)

// Pacer gates outbound SDK calls. *rate.Limiter satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Uploader streams readers into S3 multipart uploads.
type Uploader struct {
	client   storeapi.S3API
	pacer    Pacer
	partSize int64
	buffers  *pool.SizedPool
}

// NewUploader creates an uploader cutting parts of partSize bytes. Sizes
// below MinPartSize are raised to it; zero means DefaultPartSize. A nil
// pacer disables call pacing.
func NewUploader(client storeapi.S3API, pacer Pacer, partSize int64) *Uploader {
	if partSize <= 0 {
		partSize = DefaultPartSize
	}
	if partSize < MinPartSize {
		partSize = MinPartSize
	}
	return &Uploader{
		client:   client,
		pacer:    pacer,
		partSize: partSize,
		buffers:  pool.NewSizedPool(int(partSize)),
	}
}

// Upload streams body into bucket/key and returns the bytes written. The
// body length need not be known up front; parts are cut as the stream is
// read.
func (u *Uploader) Upload(ctx context.Context, bucket, key string, body io.Reader, cfg types.PutConfig) (int64, error) {
	store := "s3://" + bucket

	uploadID, err := u.create(ctx, bucket, key, cfg)
	if err != nil {
		return 0, errors.NewObjectError("createMultipartUpload", store, key, errors.Classify(err))
	}

	parts, written, err := u.uploadParts(ctx, bucket, key, uploadID, body)
	if err != nil {
		u.abort(ctx, bucket, key, uploadID)
		return written, errors.NewObjectError("uploadPart", store, key, errors.Classify(err))
	}

	if err := u.complete(ctx, bucket, key, uploadID, parts); err != nil {
		u.abort(ctx, bucket, key, uploadID)
		return written, errors.NewObjectError("completeMultipartUpload", store, key, errors.Classify(err))
	}

	return written, nil
}

func (u *Uploader) wait(ctx context.Context) error {
	if u.pacer == nil {
		return nil
	}
	return u.pacer.Wait(ctx)
}

func (u *Uploader) create(ctx context.Context, bucket, key string, cfg types.PutConfig) (string, error) {
	if err := u.wait(ctx); err != nil {
		return "", err
	}

	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if cfg.ContentType != "" {
		input.ContentType = aws.String(cfg.ContentType)
	}
	if cfg.StorageClass != "" {
		input.StorageClass = s3types.StorageClass(cfg.StorageClass)
	}
	if len(cfg.Metadata) > 0 {
		input.Metadata = cfg.Metadata
	}

	output, err := u.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", err
	}
	return aws.ToString(output.UploadId), nil
}

// uploadParts cuts body into sequential parts through one pooled buffer.
func (u *Uploader) uploadParts(
	ctx context.Context,
	bucket, key, uploadID string,
	body io.Reader,
) ([]s3types.CompletedPart, int64, error) {
	buf := u.buffers.Get()
	defer u.buffers.Put(buf)

	var parts []s3types.CompletedPart
	var written int64

	for partNumber := int32(1); ; partNumber++ {
		if int(partNumber) > maxParts {
			return nil, written, fmt.Errorf("%w: stream exceeds %d parts of %d bytes",
				errors.ErrInvalidInput, maxParts, u.partSize)
		}

		n, readErr := io.ReadFull(body, buf)
		if readErr == io.EOF {
			// Stream ended exactly on a part boundary.
			break
		}
		if readErr != nil && readErr != io.ErrUnexpectedEOF {
			return nil, written, readErr
		}

		if err := u.wait(ctx); err != nil {
			return nil, written, err
		}

		output, err := u.client.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:     aws.String(bucket),
			Key:        aws.String(key),
			UploadId:   aws.String(uploadID),
			PartNumber: aws.Int32(partNumber),
			Body:       bytes.NewReader(buf[:n]),
		})
		if err != nil {
			return nil, written, err
		}

		parts = append(parts, s3types.CompletedPart{
			ETag:       output.ETag,
			PartNumber: aws.Int32(partNumber),
		})
		written += int64(n)

		if readErr == io.ErrUnexpectedEOF {
			// Short read means the stream is done.
			break
		}
	}

	if len(parts) == 0 {
		// Completing with zero parts is an API error, so an empty stream
		// still uploads one empty part.
		if err := u.wait(ctx); err != nil {
			return nil, 0, err
		}
		output, err := u.client.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:     aws.String(bucket),
			Key:        aws.String(key),
			UploadId:   aws.String(uploadID),
			PartNumber: aws.Int32(1),
			Body:       bytes.NewReader(nil),
		})
		if err != nil {
			return nil, 0, err
		}
		parts = append(parts, s3types.CompletedPart{
			ETag:       output.ETag,
			PartNumber: aws.Int32(1),
		})
	}

	return parts, written, nil
}

func (u *Uploader) complete(ctx context.Context, bucket, key, uploadID string, parts []s3types.CompletedPart) error {
	if err := u.wait(ctx); err != nil {
		return err
	}

	_, err := u.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &s3types.CompletedMultipartUpload{
			Parts: parts,
		},
	})
	return err
}

// abort cleans up a failed upload. Cleanup errors are ignored.
func (u *Uploader) abort(ctx context.Context, bucket, key, uploadID string) {
	_, _ = u.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
}
