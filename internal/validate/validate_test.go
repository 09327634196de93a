package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NYPL/snowsync/errors"
)

func TestBucketName(t *testing.T) {
	valid := []string{
		"my-bucket",
		"pami-dance-storage",
		"bucket.with.dots",
		"abc",
		strings.Repeat("a", 63),
	}
	for _, bucket := range valid {
		t.Run("valid "+bucket, func(t *testing.T) {
			assert.NoError(t, BucketName(bucket))
		})
	}

	invalid := map[string]string{
		"empty":          "",
		"too short":      "ab",
		"too long":       strings.Repeat("a", 64),
		"uppercase":      "MyBucket",
		"underscore":     "my_bucket",
		"leading hyphen": "-bucket",
		"trailing dot":   "bucket.",
		"adjacent dots":  "bu..cket",
		"ip address":     "192.168.1.1",
		"space":          "my bucket",
	}
	for name, bucket := range invalid {
		t.Run("invalid "+name, func(t *testing.T) {
			err := BucketName(bucket)
			assert.ErrorIs(t, err, errors.ErrInvalidBucketName)
		})
	}
}

func TestObjectKey(t *testing.T) {
	t.Run("valid keys", func(t *testing.T) {
		assert.NoError(t, ObjectKey("a/b/c.txt"))
		assert.NoError(t, ObjectKey("MPS-snowball/drive1/Video/take 1.mkv"))
		assert.NoError(t, ObjectKey("a//b"), "doubled separators are literal key text")
		assert.NoError(t, ObjectKey("unicode-ключ.txt"))
	})

	t.Run("empty", func(t *testing.T) {
		assert.ErrorIs(t, ObjectKey(""), errors.ErrInvalidObjectKey)
	})

	t.Run("too long", func(t *testing.T) {
		assert.ErrorIs(t, ObjectKey(strings.Repeat("k", 1025)), errors.ErrInvalidObjectKey)
	})

	t.Run("path traversal", func(t *testing.T) {
		assert.ErrorIs(t, ObjectKey("../etc/passwd"), errors.ErrInvalidObjectKey)
		assert.ErrorIs(t, ObjectKey("a/../../b"), errors.ErrInvalidObjectKey)
		assert.ErrorIs(t, ObjectKey("/absolute"), errors.ErrInvalidObjectKey)
		assert.ErrorIs(t, ObjectKey(`C:\windows`), errors.ErrInvalidObjectKey)
	})

	t.Run("control characters", func(t *testing.T) {
		assert.ErrorIs(t, ObjectKey("a\x00b"), errors.ErrInvalidObjectKey)
		assert.ErrorIs(t, ObjectKey("a\nb"), errors.ErrInvalidObjectKey)
	})
}

func TestMetadata(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, Metadata(nil))
		assert.NoError(t, Metadata(map[string]string{"snowball-auto-extract": "true"}))
	})

	t.Run("reserved prefix", func(t *testing.T) {
		err := Metadata(map[string]string{"x-amz-meta-thing": "v"})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("empty key", func(t *testing.T) {
		err := Metadata(map[string]string{"": "v"})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("oversized value", func(t *testing.T) {
		err := Metadata(map[string]string{"k": strings.Repeat("v", 2049)})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("key with space", func(t *testing.T) {
		err := Metadata(map[string]string{"bad key": "v"})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})
}

func TestSanitizeMetadata(t *testing.T) {
	assert.Nil(t, SanitizeMetadata(nil))

	got := SanitizeMetadata(map[string]string{
		"key\x01": "value\x02with\ncontrol\tchars",
	})
	assert.Equal(t, map[string]string{"key": "valuewith\ncontrol\tchars"}, got)
}

func TestContentType(t *testing.T) {
	assert.NoError(t, ContentType(""))
	assert.NoError(t, ContentType("application/x-tar"))
	assert.NoError(t, ContentType("text/plain; charset=utf-8"))
	assert.NoError(t, ContentType("application/vnd.ms-excel"))

	assert.ErrorIs(t, ContentType("not a mime type"), errors.ErrInvalidInput)
	assert.ErrorIs(t, ContentType("/missing"), errors.ErrInvalidInput)
}
