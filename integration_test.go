//go:build integration
// +build integration

package snowsync_test

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NYPL/snowsync"
	"github.com/NYPL/snowsync/internal/testutil"
)

// newIntegrationClient builds a snowsync client pointed at LocalStack.
func newIntegrationClient(t *testing.T, container *testutil.LocalStackContainer) *snowsync.Client {
	t.Helper()

	client, err := snowsync.New(
		snowsync.WithEndpoint(container.Endpoint()),
		snowsync.WithRegion(container.Region()),
		snowsync.WithStaticCredentials(testutil.LocalStackAccessKey, testutil.LocalStackSecretKey, ""),
	)
	require.NoError(t, err)
	return client
}

func writeLocalTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func listKeys(ctx context.Context, t *testing.T, client *s3.Client, bucket, prefix string) []string {
	t.Helper()

	out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	require.NoError(t, err)

	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		keys = append(keys, aws.ToString(obj.Key))
	}
	return keys
}

// TestIntegrationLocalToS3 drives the full drive-to-bucket flow against
// LocalStack: transfer, resume, verify, list, remove.
func TestIntegrationLocalToS3(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, s3Client, cleanup := testutil.SetupLocalStackTest(t)
	defer cleanup()

	bucket := testutil.GenerateTestBucketName("snowsync")
	require.NoError(t, testutil.CreateTestBucketInLocalStack(ctx, s3Client, bucket))
	defer testutil.CleanupTestBucketInLocalStack(ctx, s3Client, bucket)

	client := newIntegrationClient(t, container)
	defer client.Close()

	src := t.TempDir()
	writeLocalTree(t, src, map[string]string{
		"a.txt":        "hello",
		"photos/b.cr2": "raw photo bytes",
		".DS_Store":    "junk",
	})
	dest := "s3://" + bucket + "/drive7/"

	t.Run("transfer uploads the tree", func(t *testing.T) {
		result, err := client.Transfer(ctx, src, dest, snowsync.WithExcludeJunk())
		require.NoError(t, err)
		assert.Equal(t, 2, result.Copied)
		assert.Equal(t, 0, result.Failed)

		keys := listKeys(ctx, t, s3Client, bucket, "drive7/")
		assert.ElementsMatch(t, []string{"drive7/a.txt", "drive7/photos/b.cr2"}, keys)
	})

	t.Run("second transfer skips everything", func(t *testing.T) {
		result, err := client.Transfer(ctx, src, dest, snowsync.WithExcludeJunk())
		require.NoError(t, err)
		assert.Equal(t, 0, result.Copied)
		assert.Equal(t, 2, result.Skipped)
	})

	t.Run("verify reports in sync", func(t *testing.T) {
		diff, err := client.Verify(ctx, src, dest, snowsync.WithVerifyExcludeJunk())
		require.NoError(t, err)
		assert.True(t, diff.InSync)
		assert.Empty(t, diff.Missing)
		assert.Empty(t, diff.Extra)
	})

	t.Run("list sees the uploaded objects", func(t *testing.T) {
		entries, err := client.List(ctx, dest)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "drive7/a.txt", entries[0].Key)
		assert.Equal(t, int64(5), entries[0].Size)
	})

	t.Run("remove empties the prefix", func(t *testing.T) {
		result, err := client.Remove(ctx, dest)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Deleted)
		assert.Empty(t, listKeys(ctx, t, s3Client, bucket, "drive7/"))
	})
}

// TestIntegrationBucketToBucket copies between two buckets with mirror
// deletes, exercising the server-side copy path.
func TestIntegrationBucketToBucket(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, s3Client, cleanup := testutil.SetupLocalStackTest(t)
	defer cleanup()

	intake := testutil.GenerateTestBucketName("intake")
	vault := testutil.GenerateTestBucketName("vault")
	require.NoError(t, testutil.CreateTestBucketInLocalStack(ctx, s3Client, intake))
	require.NoError(t, testutil.CreateTestBucketInLocalStack(ctx, s3Client, vault))
	defer testutil.CleanupTestBucketInLocalStack(ctx, s3Client, intake)
	defer testutil.CleanupTestBucketInLocalStack(ctx, s3Client, vault)

	seed := map[string]string{
		"in/a.bin": "alpha",
		"in/b.bin": "beta bytes",
	}
	for key, content := range seed {
		_, err := s3Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(intake),
			Key:    aws.String(key),
			Body:   bytes.NewReader([]byte(content)),
		})
		require.NoError(t, err)
	}
	_, err := s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(vault),
		Key:    aws.String("out/stale.bin"),
		Body:   bytes.NewReader([]byte("stale")),
	})
	require.NoError(t, err)

	client := newIntegrationClient(t, container)
	defer client.Close()

	result, err := client.Transfer(ctx,
		"s3://"+intake+"/in/", "s3://"+vault+"/out/", snowsync.WithMirror())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Copied)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 0, result.Failed)

	keys := listKeys(ctx, t, s3Client, vault, "out/")
	assert.ElementsMatch(t, []string{"out/a.bin", "out/b.bin"}, keys)

	got, err := s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(vault),
		Key:    aws.String("out/a.bin"),
	})
	require.NoError(t, err)
	defer got.Body.Close()
	data, err := io.ReadAll(got.Body)
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))

	diff, err := client.Verify(ctx, "s3://"+intake+"/in/", "s3://"+vault+"/out/")
	require.NoError(t, err)
	assert.True(t, diff.InSync)
}

// TestIntegrationBundle packs small files into a tagged tar archive and
// checks what actually landed in the bucket.
func TestIntegrationBundle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, s3Client, cleanup := testutil.SetupLocalStackTest(t)
	defer cleanup()

	bucket := testutil.GenerateTestBucketName("bundle")
	require.NoError(t, testutil.CreateTestBucketInLocalStack(ctx, s3Client, bucket))
	defer testutil.CleanupTestBucketInLocalStack(ctx, s3Client, bucket)

	client := newIntegrationClient(t, container)
	defer client.Close()

	src := t.TempDir()
	writeLocalTree(t, src, map[string]string{
		"notes.txt":   "field notes",
		"index.json":  `{"drive": 7}`,
		"footage.mov": "a large media file",
	})

	result, err := client.Transfer(ctx, src, "s3://"+bucket+"/drive7/",
		snowsync.WithBundle("manifest-bundle.tar"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Copied)
	assert.Equal(t, 2, result.Bundled)

	keys := listKeys(ctx, t, s3Client, bucket, "drive7/")
	assert.ElementsMatch(t, []string{"drive7/footage.mov", "drive7/manifest-bundle.tar"}, keys)

	head, err := s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String("drive7/manifest-bundle.tar"),
	})
	require.NoError(t, err)
	assert.Equal(t, "application/x-tar", aws.ToString(head.ContentType))
	assert.Equal(t, "true", head.Metadata["snowball-auto-extract"])

	got, err := s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String("drive7/manifest-bundle.tar"),
	})
	require.NoError(t, err)
	defer got.Body.Close()

	members := map[string]string{}
	tr := tar.NewReader(got.Body)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		members[hdr.Name] = string(data)
	}
	assert.Equal(t, map[string]string{
		"drive7/notes.txt":  "field notes",
		"drive7/index.json": `{"drive": 7}`,
	}, members)
}
