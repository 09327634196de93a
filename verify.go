// Package snowsync provides transfer verification.
package snowsync

import (
	"context"
	"sort"
	"strings"

	"github.com/NYPL/snowsync/internal/enumerate"
	"github.com/NYPL/snowsync/internal/filter"
	"github.com/NYPL/snowsync/types"
)

// Verify compares a source and a destination without transferring
// anything. Both sides are enumerated concurrently, the source is
// filtered and key-mapped the same way a transfer would be, and both are
// reduced to (relative key, size) pairs. The result is the symmetric
// difference: pairs missing from the destination and pairs the
// destination holds that the source does not.
//
// An object present on both sides with different sizes shows up on both
// lists, once with each size.
//
// Example:
//
//	diff, err := client.Verify(ctx, "/mnt/drive7", "s3://archive/drive7/",
//	    snowsync.WithVerifyExcludeJunk(),
//	)
//	if err != nil {
//	    return err
//	}
//	if !diff.InSync {
//	    fmt.Printf("%d missing (%d bytes), %d extra\n",
//	        len(diff.Missing), diff.BytesRemaining, len(diff.Extra))
//	}
func (c *Client) Verify(
	ctx context.Context,
	source, destination string,
	opts ...types.VerifyOption,
) (*types.VerifyResult, error) {
	cfg := &types.VerifyOptionConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	srcLoc, err := ParseLocation(source)
	if err != nil {
		return nil, err
	}
	dstLoc, err := ParseLocation(destination)
	if err != nil {
		return nil, err
	}

	srcStore, err := c.store(srcLoc)
	if err != nil {
		return nil, err
	}
	dstStore, err := c.store(dstLoc)
	if err != nil {
		return nil, err
	}

	srcEntries, dstEntries, err := enumerate.Pair(
		ctx, srcStore, dstStore, srcLoc.Prefix, dstLoc.Prefix, c.maxRetries)
	if err != nil {
		return nil, err
	}

	mapKey := cfg.Mapper
	if mapKey == nil {
		mapKey = func(key string) string { return key }
	}

	want := make(map[types.KeySize]struct{}, len(srcEntries))
	for _, entry := range srcEntries {
		relKey := strings.TrimPrefix(entry.Key, srcLoc.Prefix)
		if !filter.Included(cfg.Filters, relKey) {
			continue
		}
		want[types.KeySize{Key: mapKey(relKey), Size: entry.Size}] = struct{}{}
	}

	have := make(map[types.KeySize]struct{}, len(dstEntries))
	for _, entry := range dstEntries {
		relKey := strings.TrimPrefix(entry.Key, dstLoc.Prefix)
		have[types.KeySize{Key: relKey, Size: entry.Size}] = struct{}{}
	}

	result := &types.VerifyResult{}
	for pair := range want {
		if _, ok := have[pair]; !ok {
			result.Missing = append(result.Missing, pair)
			result.BytesRemaining += pair.Size
		}
	}
	for pair := range have {
		if _, ok := want[pair]; !ok {
			result.Extra = append(result.Extra, pair)
		}
	}

	sortKeySizes(result.Missing)
	sortKeySizes(result.Extra)
	result.InSync = len(result.Missing) == 0 && len(result.Extra) == 0

	c.log.Info().
		Str("source", srcStore.Name()).
		Str("destination", dstStore.Name()).
		Int("missing", len(result.Missing)).
		Int("extra", len(result.Extra)).
		Int64("bytesRemaining", result.BytesRemaining).
		Bool("inSync", result.InSync).
		Msg("verify complete")

	return result, nil
}

func sortKeySizes(pairs []types.KeySize) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Key != pairs[j].Key {
			return pairs[i].Key < pairs[j].Key
		}
		return pairs[i].Size < pairs[j].Size
	})
}
