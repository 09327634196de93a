package snowsync

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/time/rate"

	"github.com/NYPL/snowsync/errors"
	"github.com/NYPL/snowsync/internal/multipart"
	"github.com/NYPL/snowsync/internal/storeapi"
	"github.com/NYPL/snowsync/internal/validate"
	"github.com/NYPL/snowsync/types"
)

const (
	// maxListKeys is the page size requested from ListObjectsV2.
	maxListKeys = 1000

	// maxDeleteBatch is the S3 ceiling on keys per DeleteObjects call.
	maxDeleteBatch = 1000
)

// S3Store adapts one S3 bucket to the Store interface.
type S3Store struct {
	api      storeapi.S3API
	bucket   string
	partSize int64
	limiter  *rate.Limiter
	uploader *multipart.Uploader
}

var (
	_ types.Store        = (*S3Store)(nil)
	_ types.ServerCopier = (*S3Store)(nil)
)

// NewS3Store wraps api as a store over bucket. partSize controls when Put
// switches to multipart (zero means the default, values below the S3 floor
// are raised to it). A non-nil limiter paces every SDK call.
func NewS3Store(api storeapi.S3API, bucket string, partSize int64, limiter *rate.Limiter) (*S3Store, error) {
	if err := validate.BucketName(bucket); err != nil {
		return nil, err
	}
	if partSize <= 0 {
		partSize = multipart.DefaultPartSize
	}
	if partSize < multipart.MinPartSize {
		partSize = multipart.MinPartSize
	}

	var pacer multipart.Pacer
	if limiter != nil {
		pacer = limiter
	}

	return &S3Store{
		api:      api,
		bucket:   bucket,
		partSize: partSize,
		limiter:  limiter,
		uploader: multipart.NewUploader(api, pacer, partSize),
	}, nil
}

// Name identifies the store in errors and logs.
func (s *S3Store) Name() string {
	return "s3://" + s.bucket
}

// List returns one page of keys under prefix. token must be the NextToken
// of the previous page, or empty for the first page.
func (s *S3Store) List(ctx context.Context, prefix, token string) (*types.ListPage, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int32(maxListKeys),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if token != "" {
		input.ContinuationToken = aws.String(token)
	}

	output, err := s.api.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, errors.NewStoreError("list", s.Name(), errors.Classify(err))
	}

	entries := make([]types.ObjectEntry, 0, len(output.Contents))
	for _, object := range output.Contents {
		entries = append(entries, types.ObjectEntry{
			Key:          aws.ToString(object.Key),
			Size:         aws.ToInt64(object.Size),
			LastModified: aws.ToTime(object.LastModified),
			ETag:         strings.Trim(aws.ToString(object.ETag), `"`),
			StorageClass: string(object.StorageClass),
		})
	}

	page := &types.ListPage{Entries: entries, Truncated: aws.ToBool(output.IsTruncated)}
	if page.Truncated {
		page.NextToken = aws.ToString(output.NextContinuationToken)
	}
	return page, nil
}

// Open returns the object body. The caller must close it.
func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	output, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.NewObjectError("open", s.Name(), key, errors.Classify(err))
	}
	return output.Body, nil
}

// Put writes body under key. Bodies at least partSize long, or of unknown
// size (negative), stream through a multipart upload; everything else goes
// up in a single request.
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, cfg types.PutConfig) error {
	if err := validate.ObjectKey(key); err != nil {
		return err
	}
	if err := validate.Metadata(cfg.Metadata); err != nil {
		return err
	}
	if body == nil {
		return errors.NewObjectError("put", s.Name(), key, errors.ErrInvalidInput).
			WithMessage("body cannot be nil")
	}

	if size < 0 || size >= s.partSize {
		_, err := s.uploader.Upload(ctx, s.bucket, key, body, cfg)
		return err
	}

	if err := s.wait(ctx); err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
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

	if _, err := s.api.PutObject(ctx, input); err != nil {
		return errors.NewObjectError("put", s.Name(), key, errors.Classify(err))
	}
	return nil
}

// Delete removes up to maxDeleteBatch keys in one request. Keys the store
// rejects individually come back as failures without failing the batch;
// missing keys delete cleanly.
func (s *S3Store) Delete(ctx context.Context, keys []string) ([]types.DeleteFailure, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if len(keys) > maxDeleteBatch {
		return nil, errors.NewStoreError("delete", s.Name(),
			fmt.Errorf("%w: %d keys exceeds the %d key batch limit",
				errors.ErrInvalidInput, len(keys), maxDeleteBatch))
	}

	objects := make([]s3types.ObjectIdentifier, len(keys))
	for i, key := range keys {
		objects[i] = s3types.ObjectIdentifier{Key: aws.String(key)}
	}

	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	output, err := s.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &s3types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		return nil, errors.NewStoreError("delete", s.Name(), errors.Classify(err))
	}

	var failures []types.DeleteFailure
	for _, failed := range output.Errors {
		failures = append(failures, types.DeleteFailure{
			Key:     aws.ToString(failed.Key),
			Message: fmt.Sprintf("%s: %s", aws.ToString(failed.Code), aws.ToString(failed.Message)),
		})
	}
	return failures, nil
}

// CopyFrom copies srcKey from src into this bucket server-side. The fast
// path only exists between stores sharing one API client; everything else
// reports ErrUnsupported so the caller falls back to streaming.
func (s *S3Store) CopyFrom(ctx context.Context, src types.Store, srcKey, destKey string, cfg types.PutConfig) error {
	source, ok := src.(*S3Store)
	if !ok || source.api != s.api {
		return errors.NewObjectError("copy", s.Name(), destKey, errors.ErrUnsupported)
	}

	if err := s.wait(ctx); err != nil {
		return err
	}

	input := &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(destKey),
		CopySource: aws.String(source.bucket + "/" + srcKey),
	}
	if cfg.ContentType != "" {
		input.ContentType = aws.String(cfg.ContentType)
		input.MetadataDirective = s3types.MetadataDirectiveReplace
	}
	if cfg.StorageClass != "" {
		input.StorageClass = s3types.StorageClass(cfg.StorageClass)
	}
	if len(cfg.Metadata) > 0 {
		input.Metadata = cfg.Metadata
		input.MetadataDirective = s3types.MetadataDirectiveReplace
	}

	if _, err := s.api.CopyObject(ctx, input); err != nil {
		return errors.NewObjectError("copy", s.Name(), destKey, errors.Classify(err))
	}
	return nil
}

func (s *S3Store) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}
