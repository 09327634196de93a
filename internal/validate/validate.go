// Package validate provides centralized input validation logic.
// Bucket names, object keys, and metadata are checked before any request
// is sent to a store.
package validate

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode"

	"github.com/NYPL/snowsync/errors"
)

// BucketName validates that a bucket name is DNS-compliant according to
// AWS S3 rules. Returns ErrInvalidBucketName if the name is invalid.
func BucketName(bucket string) error {
	fail := func(message string) error {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithStore(bucket).
			WithMessage(message)
	}

	if bucket == "" {
		return fail("bucket name cannot be empty")
	}
	if len(bucket) < 3 || len(bucket) > 63 {
		return fail("bucket name must be between 3 and 63 characters long")
	}
	for _, char := range bucket {
		if !isBucketChar(char) {
			return fail("bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}
	if bucket[0] == '-' || bucket[0] == '.' || bucket[len(bucket)-1] == '-' || bucket[len(bucket)-1] == '.' {
		return fail("bucket name cannot start or end with a hyphen or dot")
	}
	if looksLikeIP(bucket) {
		return fail("bucket name cannot be formatted as an IP address")
	}
	if hasAdjacentSpecialChars(bucket) {
		return fail("bucket name cannot contain two adjacent periods or hyphens")
	}

	return nil
}

// ObjectKey validates that an object key is safe to write. This prevents
// path traversal (which would let a filesystem store escape its root) and
// enforces S3 key limits.
func ObjectKey(key string) error {
	fail := func(message string) error {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage(message)
	}

	if key == "" {
		return fail("object key cannot be empty")
	}
	if len(key) > 1024 {
		return fail("object key cannot exceed 1024 characters")
	}
	if hasPathTraversal(key) {
		return fail("object key cannot contain path traversal sequences")
	}
	for _, char := range key {
		if unicode.IsControl(char) {
			return fail("object key cannot contain control characters")
		}
	}

	return nil
}

// Metadata validates metadata keys and values according to S3 rules.
func Metadata(metadata map[string]string) error {
	for key, value := range metadata {
		if err := metadataKey(key); err != nil {
			return err
		}
		if err := metadataValue(value); err != nil {
			return err
		}
	}
	return nil
}

// SanitizeMetadata strips non-printable characters from metadata keys and
// control characters (other than newlines and tabs) from values.
func SanitizeMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}

	sanitized := make(map[string]string, len(metadata))
	for key, value := range metadata {
		cleanKey := strings.Map(func(r rune) rune {
			if unicode.IsPrint(r) {
				return r
			}
			return -1
		}, key)
		cleanValue := strings.Map(func(r rune) rune {
			if unicode.IsControl(r) && r != '\n' && r != '\t' {
				return -1
			}
			return r
		}, value)
		sanitized[cleanKey] = cleanValue
	}

	return sanitized
}

var mimePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-+.]*\/[a-zA-Z0-9][a-zA-Z0-9\-+.]*(\s*;.*)?$`)

// ContentType validates that a content type is a well-formed MIME type.
// An empty content type is allowed; stores fall back to sniffing.
func ContentType(contentType string) error {
	if contentType == "" {
		return nil
	}
	if !mimePattern.MatchString(contentType) {
		return errors.NewError("validateContentType", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("content type %q must be a valid MIME type", contentType))
	}
	return nil
}

func isBucketChar(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') || char == '.' || char == '-'
}

func hasAdjacentSpecialChars(bucket string) bool {
	for i := 0; i < len(bucket)-1; i++ {
		if (bucket[i] == '.' && bucket[i+1] == '.') || (bucket[i] == '-' && bucket[i+1] == '-') {
			return true
		}
	}
	return false
}

func looksLikeIP(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		if part == "" {
			return true
		}
		num := 0
		for _, char := range part {
			if char < '0' || char > '9' {
				return false
			}
			num = num*10 + int(char-'0')
		}
		if num > 255 {
			return false
		}
	}
	return true
}

// hasPathTraversal flags keys that could resolve outside a store root.
// Keys may contain doubled separators (they are legal, literal key text)
// but never dot-dot segments or absolute paths.
func hasPathTraversal(key string) bool {
	if strings.Contains(key, "..") {
		return true
	}
	cleaned := path.Clean(key)
	if strings.HasPrefix(cleaned, "..") || strings.HasPrefix(cleaned, "/") {
		return true
	}
	// Windows-style absolute paths
	if len(key) >= 3 && key[1] == ':' && (key[2] == '\\' || key[2] == '/') {
		return true
	}
	return false
}

func metadataKey(key string) error {
	if key == "" {
		return errors.NewError("validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata key cannot be empty")
	}
	if len(key) > 128 {
		return errors.NewError("validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata key cannot exceed 128 characters")
	}
	lower := strings.ToLower(key)
	for _, prefix := range []string{"aws:", "x-amz-", "x-amz:"} {
		if strings.HasPrefix(lower, prefix) {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage(fmt.Sprintf("metadata key cannot start with reserved prefix: %s", prefix))
		}
	}
	for _, char := range key {
		if char < 33 || char > 126 {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage("metadata key can only contain printable ASCII characters")
		}
	}
	return nil
}

func metadataValue(value string) error {
	if len(value) > 2048 {
		return errors.NewError("validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata value cannot exceed 2048 characters")
	}
	for _, char := range value {
		if !unicode.IsPrint(char) && char != '\n' && char != '\t' {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage("metadata value can only contain printable characters")
		}
	}
	return nil
}
