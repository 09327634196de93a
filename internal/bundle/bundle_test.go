package bundle

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NYPL/snowsync/errors"
	"github.com/NYPL/snowsync/internal/testutil"
	"github.com/NYPL/snowsync/types"
)

func copyOp(entry types.ObjectEntry, destKey string) types.PlannedOp {
	return types.PlannedOp{
		Action:  types.ActionCopy,
		Source:  &entry,
		DestKey: destKey,
		Reason:  types.ReasonMissing,
	}
}

func TestPartition(t *testing.T) {
	t.Run("default patterns pick text artifacts", func(t *testing.T) {
		plan := &types.TransferPlan{Ops: []types.PlannedOp{
			copyOp(testutil.Entry("a/readme.txt", 100, "e1"), "a/readme.txt"),
			copyOp(testutil.Entry("a/data.json", 50, "e2"), "a/data.json"),
			copyOp(testutil.Entry("a/video.mkv", 10000, "e3"), "a/video.mkv"),
			{Action: types.ActionDelete, DestKey: "a/old.bin", Reason: types.ReasonNotOnSource},
		}}

		members, rest := Partition(plan, "", Config{ArchiveKey: "a/bundle.tar"})

		require.Len(t, members, 2)
		assert.Equal(t, "a/readme.txt", members[0].DestKey)
		assert.Equal(t, "a/data.json", members[1].DestKey)

		require.Len(t, rest.Ops, 2)
		assert.Equal(t, 1, rest.Copies)
		assert.Equal(t, int64(10000), rest.BytesToCopy)
		assert.Equal(t, 1, rest.Deletes)
		assert.Equal(t, 0, rest.Skips)
	})

	t.Run("limit excludes large members", func(t *testing.T) {
		plan := &types.TransferPlan{Ops: []types.PlannedOp{
			copyOp(testutil.Entry("big.txt", 100, "e1"), "big.txt"),
			copyOp(testutil.Entry("small.txt", 10, "e2"), "small.txt"),
		}}

		members, rest := Partition(plan, "", Config{ArchiveKey: "bundle.tar", Limit: 50})

		require.Len(t, members, 1)
		assert.Equal(t, "small.txt", members[0].DestKey)
		assert.Equal(t, 1, rest.Copies)
		assert.Equal(t, int64(100), rest.BytesToCopy)
	})

	t.Run("custom patterns match relative destination keys", func(t *testing.T) {
		plan := &types.TransferPlan{Ops: []types.PlannedOp{
			copyOp(testutil.Entry("logs/x.log", 10, "e1"), "drive7/logs/x.log"),
			copyOp(testutil.Entry("media/x.mkv", 10, "e2"), "drive7/media/x.mkv"),
		}}

		members, rest := Partition(plan, "drive7/", Config{
			ArchiveKey: "drive7/bundle.tar",
			Patterns:   []string{"logs/*"},
		})

		require.Len(t, members, 1)
		assert.Equal(t, "drive7/logs/x.log", members[0].DestKey)
		assert.Equal(t, 1, rest.Copies)
	})

	t.Run("skips stay planned", func(t *testing.T) {
		entry := testutil.Entry("same.txt", 10, "e")
		plan := &types.TransferPlan{Ops: []types.PlannedOp{{
			Action:  types.ActionSkip,
			Source:  &entry,
			DestKey: "same.txt",
			Reason:  types.ReasonUpToDate,
		}}}

		members, rest := Partition(plan, "", Config{ArchiveKey: "bundle.tar"})

		assert.Empty(t, members)
		assert.Equal(t, 1, rest.Skips)
	})
}

func TestUploadWritesArchive(t *testing.T) {
	ctx := context.Background()
	src := testutil.NewMemStore("mem://src")
	dst := testutil.NewMemStore("mem://dst")

	entryA := src.Seed("in/a.txt", []byte("alpha"))
	entryB := src.Seed("in/sub/b.json", []byte(`{"n":1}`))

	members := []types.PlannedOp{
		copyOp(entryA, "out/a.txt"),
		copyOp(entryB, "out/sub/b.json"),
	}

	written, err := Upload(ctx, src, dst, members, Config{ArchiveKey: "out/drive.tar"}, types.PutConfig{
		StorageClass: types.StorageClassDeepArchive,
		Metadata:     map[string]string{"origin": "drive-7"},
	})
	require.NoError(t, err)

	data, ok := dst.Bytes("out/drive.tar")
	require.True(t, ok)
	assert.Equal(t, int64(len(data)), written)

	cfg, ok := dst.Config("out/drive.tar")
	require.True(t, ok)
	assert.Equal(t, "true", cfg.Metadata[AutoExtractKey])
	assert.Equal(t, "drive-7", cfg.Metadata["origin"])
	assert.Equal(t, ArchiveContentType, cfg.ContentType)
	assert.Equal(t, types.StorageClassDeepArchive, cfg.StorageClass)

	entries := readArchive(t, data)
	require.Len(t, entries, 2)
	assert.Equal(t, []byte("alpha"), entries["out/a.txt"])
	assert.Equal(t, []byte(`{"n":1}`), entries["out/sub/b.json"])
}

func TestUploadDoesNotMutateCallerMetadata(t *testing.T) {
	src := testutil.NewMemStore("mem://src")
	dst := testutil.NewMemStore("mem://dst")
	entry := src.Seed("a.txt", []byte("x"))

	meta := map[string]string{"origin": "drive-7"}
	_, err := Upload(context.Background(), src, dst,
		[]types.PlannedOp{copyOp(entry, "a.txt")},
		Config{ArchiveKey: "bundle.tar"},
		types.PutConfig{Metadata: meta})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"origin": "drive-7"}, meta)
}

func TestUploadPropagatesMemberFailure(t *testing.T) {
	src := testutil.NewMemStore("mem://src")
	dst := testutil.NewMemStore("mem://dst")

	good := src.Seed("good.txt", []byte("ok"))
	bad := src.Seed("bad.txt", []byte("nope"))
	src.OnOpen = func(key string) error {
		if key == "bad.txt" {
			return errors.NewObjectError("open", "mem://src", key, errors.ErrAccessDenied)
		}
		return nil
	}

	_, err := Upload(context.Background(), src, dst,
		[]types.PlannedOp{copyOp(good, "good.txt"), copyOp(bad, "bad.txt")},
		Config{ArchiveKey: "bundle.tar"},
		types.PutConfig{})

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAccessDenied)
	assert.Equal(t, 0, dst.Len())
}

func TestUploadEmptyMembers(t *testing.T) {
	src := testutil.NewMemStore("mem://src")
	dst := testutil.NewMemStore("mem://dst")

	written, err := Upload(context.Background(), src, dst, nil,
		Config{ArchiveKey: "bundle.tar"}, types.PutConfig{})

	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Equal(t, 0, dst.Len())
}

func TestUploadRequiresArchiveKey(t *testing.T) {
	src := testutil.NewMemStore("mem://src")
	dst := testutil.NewMemStore("mem://dst")
	entry := src.Seed("a.txt", []byte("x"))

	_, err := Upload(context.Background(), src, dst,
		[]types.PlannedOp{copyOp(entry, "a.txt")}, Config{}, types.PutConfig{})

	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()

	entries := map[string][]byte{}
	tr := tar.NewReader(bytes.NewReader(data))
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries[header.Name] = body
	}
	return entries
}
