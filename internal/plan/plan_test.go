package plan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NYPL/snowsync/errors"
	"github.com/NYPL/snowsync/internal/testutil"
	"github.com/NYPL/snowsync/types"
)

func TestBuildReconciles(t *testing.T) {
	in := Input{
		Source: []types.ObjectEntry{
			testutil.Entry("a/1.txt", 100, "e1"),
			testutil.Entry("a/2.txt", 200, "e2"),
		},
		Destination: []types.ObjectEntry{
			testutil.Entry("a/1.txt", 100, "e1"),
			testutil.Entry("a/3.txt", 300, "e9"),
		},
		Filters: []types.FilterRule{
			types.Exclude("*"),
			types.Include("*.txt"),
		},
		Mirror: true,
	}

	got, err := Build(in)
	require.NoError(t, err)

	require.Len(t, got.Ops, 3)
	assert.Equal(t, types.ActionCopy, got.Ops[0].Action)
	assert.Equal(t, "a/2.txt", got.Ops[0].DestKey)
	assert.Equal(t, types.ReasonMissing, got.Ops[0].Reason)

	assert.Equal(t, types.ActionDelete, got.Ops[1].Action)
	assert.Equal(t, "a/3.txt", got.Ops[1].DestKey)
	assert.Equal(t, types.ReasonNotOnSource, got.Ops[1].Reason)
	assert.Nil(t, got.Ops[1].Source)

	assert.Equal(t, types.ActionSkip, got.Ops[2].Action)
	assert.Equal(t, "a/1.txt", got.Ops[2].DestKey)
	assert.Equal(t, types.ReasonUpToDate, got.Ops[2].Reason)

	assert.Equal(t, 1, got.Copies)
	assert.Equal(t, 1, got.Deletes)
	assert.Equal(t, 1, got.Skips)
	assert.Equal(t, int64(200), got.BytesToCopy)
}

func TestBuildCompareRules(t *testing.T) {
	tests := []struct {
		name       string
		source     types.ObjectEntry
		dest       *types.ObjectEntry
		wantAction types.Action
		wantReason string
	}{
		{
			name:       "destination missing",
			source:     testutil.Entry("k", 10, "e1"),
			dest:       nil,
			wantAction: types.ActionCopy,
			wantReason: types.ReasonMissing,
		},
		{
			name:       "size differs",
			source:     testutil.Entry("k", 10, "e1"),
			dest:       ptr(testutil.Entry("k", 11, "e1")),
			wantAction: types.ActionCopy,
			wantReason: types.ReasonSizeMismatch,
		},
		{
			name:       "etag differs",
			source:     testutil.Entry("k", 10, "e1"),
			dest:       ptr(testutil.Entry("k", 10, "e2")),
			wantAction: types.ActionCopy,
			wantReason: types.ReasonETagMismatch,
		},
		{
			name:       "same size and etag",
			source:     testutil.Entry("k", 10, "e1"),
			dest:       ptr(testutil.Entry("k", 10, "e1")),
			wantAction: types.ActionSkip,
			wantReason: types.ReasonUpToDate,
		},
		{
			name:       "source etag unknown",
			source:     testutil.Entry("k", 10, ""),
			dest:       ptr(testutil.Entry("k", 10, "e2")),
			wantAction: types.ActionSkip,
			wantReason: types.ReasonUpToDate,
		},
		{
			name:       "destination etag unknown",
			source:     testutil.Entry("k", 10, "e1"),
			dest:       ptr(testutil.Entry("k", 10, "")),
			wantAction: types.ActionSkip,
			wantReason: types.ReasonUpToDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Input{Source: []types.ObjectEntry{tt.source}}
			if tt.dest != nil {
				in.Destination = []types.ObjectEntry{*tt.dest}
			}

			got, err := Build(in)
			require.NoError(t, err)
			require.Len(t, got.Ops, 1)
			assert.Equal(t, tt.wantAction, got.Ops[0].Action)
			assert.Equal(t, tt.wantReason, got.Ops[0].Reason)
		})
	}
}

func TestBuildWithoutMirror(t *testing.T) {
	got, err := Build(Input{
		Destination: []types.ObjectEntry{testutil.Entry("orphan.txt", 5, "e")},
	})
	require.NoError(t, err)

	assert.Empty(t, got.Ops)
	assert.Equal(t, 0, got.Deletes)
}

func TestBuildMirrorDeletesIgnoreFilters(t *testing.T) {
	// Filters gate what leaves the source; they never shield
	// destination-only objects from mirror deletes.
	got, err := Build(Input{
		Destination: []types.ObjectEntry{testutil.Entry("video/.DS_Store", 5, "e")},
		Filters:     []types.FilterRule{types.Exclude("*.DS_Store")},
		Mirror:      true,
	})
	require.NoError(t, err)

	require.Len(t, got.Ops, 1)
	assert.Equal(t, types.ActionDelete, got.Ops[0].Action)
	assert.Equal(t, "video/.DS_Store", got.Ops[0].DestKey)
}

func TestBuildPrefixesAndMapper(t *testing.T) {
	got, err := Build(Input{
		Source: []types.ObjectEntry{
			testutil.Entry("in/a.txt", 10, "e1"),
			testutil.Entry("in/skip.log", 10, "e2"),
		},
		SourcePrefix: "in/",
		DestPrefix:   "out/",
		Filters:      []types.FilterRule{types.Exclude("*.log")},
		Mapper: func(key string) string {
			return "renamed/" + key
		},
	})
	require.NoError(t, err)

	require.Len(t, got.Ops, 1)
	assert.Equal(t, "out/renamed/a.txt", got.Ops[0].DestKey)
	assert.Equal(t, "in/a.txt", got.Ops[0].Source.Key)
}

func TestBuildMirrorMatchesMappedKeys(t *testing.T) {
	// The destination object lives at the mapped key, so mirror mode must
	// not delete it.
	got, err := Build(Input{
		Source:       []types.ObjectEntry{testutil.Entry("in/a.txt", 10, "e1")},
		Destination:  []types.ObjectEntry{testutil.Entry("out/a.txt", 10, "e1")},
		SourcePrefix: "in/",
		DestPrefix:   "out/",
		Mirror:       true,
	})
	require.NoError(t, err)

	require.Len(t, got.Ops, 1)
	assert.Equal(t, types.ActionSkip, got.Ops[0].Action)
	assert.Equal(t, 0, got.Deletes)
}

func TestBuildAmbiguousMapping(t *testing.T) {
	_, err := Build(Input{
		Source: []types.ObjectEntry{
			testutil.Entry("a/report.txt", 10, "e1"),
			testutil.Entry("b/report.txt", 10, "e2"),
		},
		Mapper: func(key string) string {
			return key[strings.LastIndex(key, "/")+1:]
		},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAmbiguousMapping)
	assert.Contains(t, err.Error(), "a/report.txt")
	assert.Contains(t, err.Error(), "b/report.txt")
}

func TestBuildOrdersOperations(t *testing.T) {
	in := Input{
		Source: []types.ObjectEntry{
			testutil.Entry("z.txt", 1, "e"),
			testutil.Entry("a.txt", 1, "e"),
			testutil.Entry("m.txt", 1, "em"),
		},
		Destination: []types.ObjectEntry{
			testutil.Entry("m.txt", 1, "em"),
			testutil.Entry("zz-extra.txt", 1, "e"),
			testutil.Entry("aa-extra.txt", 1, "e"),
		},
		Mirror: true,
	}

	got, err := Build(in)
	require.NoError(t, err)

	var sequence []string
	for _, op := range got.Ops {
		sequence = append(sequence, string(op.Action)+":"+op.DestKey)
	}
	assert.Equal(t, []string{
		"copy:a.txt",
		"copy:z.txt",
		"delete:aa-extra.txt",
		"delete:zz-extra.txt",
		"skip:m.txt",
	}, sequence)
}

func TestBuildIsDeterministic(t *testing.T) {
	in := Input{
		Source:      testutil.NewTestDataGenerator(11).GenerateEntries(50, "src/"),
		Destination: testutil.NewTestDataGenerator(12).GenerateEntries(30, "src/"),
		Mirror:      true,
	}

	first, err := Build(in)
	require.NoError(t, err)
	second, err := Build(in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func ptr(entry types.ObjectEntry) *types.ObjectEntry {
	return &entry
}
