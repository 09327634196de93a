package testutil

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NYPL/snowsync/errors"
	"github.com/NYPL/snowsync/types"
)

func TestMockS3Client(t *testing.T) {
	t.Run("PutObject with custom function", func(t *testing.T) {
		mock := &MockS3Client{
			PutObjectFunc: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
				assert.Equal(t, "test-bucket", *params.Bucket)
				assert.Equal(t, "test-key", *params.Key)
				return &s3.PutObjectOutput{
					ETag: StringPtr("test-etag"),
				}, nil
			},
		}

		output, err := mock.PutObject(context.Background(), &s3.PutObjectInput{
			Bucket: StringPtr("test-bucket"),
			Key:    StringPtr("test-key"),
		})

		require.NoError(t, err)
		assert.Equal(t, "test-etag", *output.ETag)
	})

	t.Run("returns default when no function set", func(t *testing.T) {
		mock := &MockS3Client{}
		output, err := mock.GetObject(context.Background(), &s3.GetObjectInput{
			Bucket: StringPtr("test-bucket"),
			Key:    StringPtr("test-key"),
		})

		require.NoError(t, err)
		assert.NotNil(t, output)
	})
}

func TestMemStore(t *testing.T) {
	ctx := context.Background()

	t.Run("put and open round-trip", func(t *testing.T) {
		store := NewMemStore("mem://dst")
		data := []byte("hello snowball")

		err := store.Put(ctx, "a/b.txt", bytes.NewReader(data), int64(len(data)), types.PutConfig{})
		require.NoError(t, err)

		rc, err := store.Open(ctx, "a/b.txt")
		require.NoError(t, err)
		defer rc.Close()

		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("lists pages in key order", func(t *testing.T) {
		store := NewMemStore("mem://src")
		gen := NewTestDataGenerator(1)
		seeded := gen.SeedStore(store, 5, "data/")
		store.PageSize = 2

		var keys []string
		token := ""
		pages := 0
		for {
			page, err := store.List(ctx, "data/", token)
			require.NoError(t, err)
			pages++
			for _, entry := range page.Entries {
				keys = append(keys, entry.Key)
			}
			if !page.Truncated {
				break
			}
			token = page.NextToken
		}

		assert.Equal(t, 3, pages)
		require.Len(t, keys, len(seeded))
		for i, entry := range seeded {
			assert.Equal(t, entry.Key, keys[i])
		}
	})

	t.Run("list matches prefix literally", func(t *testing.T) {
		store := NewMemStore("mem://src")
		store.Seed("a/x.txt", []byte("1"))
		store.Seed("ab.txt", []byte("2"))
		store.Seed("b/x.txt", []byte("3"))

		page, err := store.List(ctx, "a", "")
		require.NoError(t, err)

		var keys []string
		for _, entry := range page.Entries {
			keys = append(keys, entry.Key)
		}
		assert.Equal(t, []string{"a/x.txt", "ab.txt"}, keys)
	})

	t.Run("open missing key", func(t *testing.T) {
		store := NewMemStore("mem://src")
		_, err := store.Open(ctx, "nope")
		assert.ErrorIs(t, err, errors.ErrObjectNotFound)
	})

	t.Run("put rejects size mismatch", func(t *testing.T) {
		store := NewMemStore("mem://dst")
		err := store.Put(ctx, "k", strings.NewReader("abc"), 5, types.PutConfig{})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		store := NewMemStore("mem://dst")
		store.Seed("keep", []byte("1"))

		failures, err := store.Delete(ctx, []string{"keep", "missing"})
		require.NoError(t, err)
		assert.Empty(t, failures)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("delete reports injected failures", func(t *testing.T) {
		store := NewMemStore("mem://dst")
		store.Seed("stuck", []byte("1"))
		store.Seed("gone", []byte("2"))
		store.OnDelete = func(keys []string) ([]types.DeleteFailure, error) {
			return []types.DeleteFailure{{Key: "stuck", Message: "access denied"}}, nil
		}

		failures, err := store.Delete(ctx, []string{"stuck", "gone"})
		require.NoError(t, err)
		require.Len(t, failures, 1)
		assert.Equal(t, "stuck", failures[0].Key)
		assert.Equal(t, []string{"stuck"}, store.Keys())
	})

	t.Run("server copy store copies without streaming", func(t *testing.T) {
		src := NewMemStore("mem://src")
		src.Seed("a.txt", []byte("payload"))
		dst := NewServerCopyStore(NewMemStore("mem://dst"))

		err := dst.CopyFrom(ctx, src, "a.txt", "b.txt", types.PutConfig{})
		require.NoError(t, err)

		got, ok := dst.Bytes("b.txt")
		require.True(t, ok)
		assert.Equal(t, []byte("payload"), got)
		assert.Equal(t, int64(1), dst.CopyCalls())
	})
}

func TestMockBuilder(t *testing.T) {
	t.Run("builds mock with successful upload", func(t *testing.T) {
		mock := NewMockBuilder().WithSuccessfulUpload().Build()

		output, err := mock.PutObject(context.Background(), &s3.PutObjectInput{
			Bucket: StringPtr("test-bucket"),
			Key:    StringPtr("test-key"),
			Body:   bytes.NewReader([]byte("test data")),
		})

		require.NoError(t, err)
		assert.Equal(t, `"test-etag"`, *output.ETag)
	})

	t.Run("builds mock with object not found", func(t *testing.T) {
		mock := NewMockBuilder().WithObjectNotFound().Build()

		_, err := mock.GetObject(context.Background(), &s3.GetObjectInput{
			Bucket: StringPtr("test-bucket"),
			Key:    StringPtr("test-key"),
		})

		require.Error(t, err)
		assert.ErrorIs(t, errors.Classify(err), errors.ErrObjectNotFound)
	})

	t.Run("builds mock with empty bucket", func(t *testing.T) {
		mock := NewMockBuilder().WithEmptyBucket().Build()

		output, err := mock.ListObjectsV2(context.Background(), &s3.ListObjectsV2Input{
			Bucket: StringPtr("test-bucket"),
		})

		require.NoError(t, err)
		assert.Equal(t, int32(0), *output.KeyCount)
		assert.False(t, *output.IsTruncated)
	})

	t.Run("builds mock with multipart upload", func(t *testing.T) {
		mock := NewMockBuilder().WithMultipartUpload().Build()

		createOutput, err := mock.CreateMultipartUpload(context.Background(), &s3.CreateMultipartUploadInput{
			Bucket: StringPtr("test-bucket"),
			Key:    StringPtr("test-key"),
		})
		require.NoError(t, err)
		assert.NotEmpty(t, *createOutput.UploadId)

		partOutput, err := mock.UploadPart(context.Background(), &s3.UploadPartInput{
			Bucket:     StringPtr("test-bucket"),
			Key:        StringPtr("test-key"),
			UploadId:   createOutput.UploadId,
			PartNumber: Int32Ptr(1),
			Body:       bytes.NewReader([]byte("test data")),
		})
		require.NoError(t, err)
		assert.NotEmpty(t, *partOutput.ETag)
	})

	t.Run("builds mock with access denied", func(t *testing.T) {
		mock := NewMockBuilder().WithAccessDenied().Build()

		_, err := mock.ListObjectsV2(context.Background(), &s3.ListObjectsV2Input{
			Bucket: StringPtr("test-bucket"),
		})

		require.Error(t, err)
		assert.ErrorIs(t, errors.Classify(err), errors.ErrAccessDenied)
	})
}

func TestProgressRecorder(t *testing.T) {
	recorder := &ProgressRecorder{}

	recorder.Observe(types.PlannedOp{Action: types.ActionCopy, DestKey: "a.txt"}, nil)
	recorder.Observe(types.PlannedOp{Action: types.ActionCopy, DestKey: "b.txt"}, assert.AnError)

	events := recorder.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "a.txt", events[0].Key)
	assert.NoError(t, events[0].Err)
	assert.Equal(t, []string{"b.txt"}, recorder.Failed())

	recorder.Reset()
	assert.Empty(t, recorder.Events())
}

func TestHelpers(t *testing.T) {
	t.Run("calculates ETag", func(t *testing.T) {
		etag := CalculateETag([]byte("test data"))
		assert.True(t, strings.HasPrefix(etag, `"`))
		assert.True(t, strings.HasSuffix(etag, `"`))
		assert.Equal(t, etag, `"`+RawETag([]byte("test data"))+`"`)
	})

	t.Run("builds deterministic entries", func(t *testing.T) {
		a := Entry("k", 10, "etag")
		b := Entry("k", 10, "etag")
		assert.Equal(t, a, b)
	})

	t.Run("creates list objects output with truncation", func(t *testing.T) {
		output := CreateListObjectsV2Output(nil, "", false)
		assert.False(t, *output.IsTruncated)
		assert.Nil(t, output.NextContinuationToken)

		output = CreateListObjectsV2Output(
			[]s3types.Object{CreateTestObject("key1", 100, time.Now())}, "", true)
		assert.True(t, *output.IsTruncated)
		assert.NotNil(t, output.NextContinuationToken)
	})
}

func TestTestDataGenerator(t *testing.T) {
	t.Run("is deterministic per seed", func(t *testing.T) {
		a := NewTestDataGenerator(42).GenerateEntries(10, "p/")
		b := NewTestDataGenerator(42).GenerateEntries(10, "p/")
		assert.Equal(t, a, b)
	})

	t.Run("generates keys in listing order", func(t *testing.T) {
		keys := NewTestDataGenerator(1).GenerateKeys(3, "base/")
		assert.Equal(t, []string{
			"base/object-0000.txt",
			"base/object-0001.txt",
			"base/object-0002.txt",
		}, keys)
		assert.True(t, sort.StringsAreSorted(keys))
	})
}
