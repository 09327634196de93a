package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NYPL/snowsync/types"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		key     string
		want    bool
	}{
		{"star matches everything", "*", "a/b/c.txt", true},
		{"star matches empty", "*", "", true},
		{"star crosses separators", "*.txt", "a/b/c.txt", true},
		{"star crosses doubled separators", "*.txt", "a//b.txt", true},
		{"suffix anchored", "*.txt", "file.txtx", false},
		{"plain literal", "a/b.txt", "a/b.txt", true},
		{"literal separators not normalized", "a//b", "a/b", false},
		{"question mark single char", "a?c", "abc", true},
		{"question mark matches separator", "a?c", "a/c", true},
		{"question mark needs a char", "?", "", false},
		{"question mark exactly one", "?", "ab", false},
		{"empty pattern empty key", "", "", true},
		{"empty pattern nonempty key", "", "a", false},
		{"multiple stars", "a*b*c", "aXXbYYc", true},
		{"backtracking star", "a*bc", "aXbXbc", true},
		{"prefix star", ".fsevents*", ".fseventsd", true},
		{"infix star", "*Images*", "Video/Images/frame_0001.dpx", true},
		{"apple double", "._.*", "._.Trashes", true},
		{"apple double needs dot", "._.*", "._x", false},
		{"ds store anywhere", "*.DS_Store", "Audio/bag/.DS_Store", true},
		{"trailing stars collapse", "a**", "a", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pattern, tt.key),
				"Match(%q, %q)", tt.pattern, tt.key)
		})
	}
}

func TestEvaluate(t *testing.T) {
	t.Run("no rules includes", func(t *testing.T) {
		assert.Equal(t, types.FilterInclude, Evaluate(nil, "any/key"))
	})

	t.Run("exclude all", func(t *testing.T) {
		rules := []types.FilterRule{types.Exclude("*")}
		assert.Equal(t, types.FilterExclude, Evaluate(rules, "a/1.txt"))
	})

	t.Run("exclude all then include txt", func(t *testing.T) {
		rules := []types.FilterRule{types.Exclude("*"), types.Include("*.txt")}
		assert.Equal(t, types.FilterInclude, Evaluate(rules, "a/1.txt"))
		assert.Equal(t, types.FilterExclude, Evaluate(rules, "a/2.bin"))
	})

	t.Run("last matching rule wins", func(t *testing.T) {
		rules := []types.FilterRule{types.Include("*.txt"), types.Exclude("*")}
		assert.Equal(t, types.FilterExclude, Evaluate(rules, "a/1.txt"))
	})

	t.Run("unmatched key falls back to include", func(t *testing.T) {
		rules := []types.FilterRule{types.Exclude("*.bin")}
		assert.Equal(t, types.FilterInclude, Evaluate(rules, "notes.txt"))
	})

	t.Run("junk rules appended last win", func(t *testing.T) {
		rules := []types.FilterRule{types.Exclude("*"), types.Include("*")}
		rules = append(rules, JunkRules()...)
		assert.True(t, Included(rules, "Video/take1.mkv"))
		assert.False(t, Included(rules, ".Trashes/501/old.mkv"))
		assert.False(t, Included(rules, "Video/.DS_Store"))
		assert.False(t, Included(rules, ".com.apple.timemachine.donotpresent"))
	})
}

func TestApply(t *testing.T) {
	entries := []types.ObjectEntry{
		{Key: "drive1/a/1.txt", Size: 1},
		{Key: "drive1/a/2.bin", Size: 2},
		{Key: "drive1/.DS_Store", Size: 3},
	}
	rules := []types.FilterRule{types.Exclude("*"), types.Include("*.txt")}

	t.Run("relative evaluation", func(t *testing.T) {
		rel := func(key string) string { return key[len("drive1/"):] }
		kept := Apply(rules, entries, rel)
		assert.Len(t, kept, 1)
		assert.Equal(t, "drive1/a/1.txt", kept[0].Key)
	})

	t.Run("no rules keeps everything", func(t *testing.T) {
		kept := Apply(nil, entries, nil)
		assert.Len(t, kept, 3)
	})
}
