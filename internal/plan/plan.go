package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/NYPL/snowsync/errors"
	"github.com/NYPL/snowsync/internal/filter"
	"github.com/NYPL/snowsync/types"
)

// Input holds the snapshots and settings a plan is built from.
type Input struct {
	// Source is the source listing snapshot.
	Source []types.ObjectEntry

	// Destination is the destination listing snapshot.
	Destination []types.ObjectEntry

	// SourcePrefix is trimmed from source keys to form relative keys.
	SourcePrefix string

	// DestPrefix is prepended to mapped keys to form destination keys.
	DestPrefix string

	// Filters gate source objects on their relative keys. Destination
	// objects are never filtered.
	Filters []types.FilterRule

	// Mapper rewrites relative keys; nil keeps them unchanged.
	Mapper types.KeyMapper

	// Mirror plans deletes for destination objects with no source
	// counterpart.
	Mirror bool
}

// Build computes a reconciliation plan from two snapshots. It fails when
// two source keys map to the same destination key; otherwise every
// filtered-in source object gets exactly one copy or skip, and in mirror
// mode every unmatched destination object gets a delete.
func Build(in Input) (*types.TransferPlan, error) {
	mapKey := in.Mapper
	if mapKey == nil {
		mapKey = func(key string) string { return key }
	}

	destEntries := make(map[string]types.ObjectEntry, len(in.Destination))
	for _, entry := range in.Destination {
		destEntries[entry.Key] = entry
	}

	var copies, deletes, skips []types.PlannedOp
	var bytesToCopy int64

	// mappedFrom tracks which source key claimed each destination key,
	// both for collision detection and for mirror-mode deletes.
	mappedFrom := make(map[string]string, len(in.Source))

	for _, entry := range in.Source {
		relKey := strings.TrimPrefix(entry.Key, in.SourcePrefix)
		if !filter.Included(in.Filters, relKey) {
			continue
		}

		destKey := in.DestPrefix + mapKey(relKey)
		if prev, ok := mappedFrom[destKey]; ok {
			if prev == entry.Key {
				continue
			}
			return nil, errors.NewError("plan",
				fmt.Errorf("%w: source keys %q and %q both map to %q",
					errors.ErrAmbiguousMapping, prev, entry.Key, destKey))
		}
		mappedFrom[destKey] = entry.Key

		op := types.PlannedOp{Source: &entry, DestKey: destKey}

		existing, found := destEntries[destKey]
		switch {
		case !found:
			op.Action = types.ActionCopy
			op.Reason = types.ReasonMissing
		case existing.Size != entry.Size:
			op.Action = types.ActionCopy
			op.Reason = types.ReasonSizeMismatch
		case entry.ETag != "" && existing.ETag != "" && entry.ETag != existing.ETag:
			op.Action = types.ActionCopy
			op.Reason = types.ReasonETagMismatch
		default:
			op.Action = types.ActionSkip
			op.Reason = types.ReasonUpToDate
		}

		if op.Action == types.ActionCopy {
			bytesToCopy += entry.Size
			copies = append(copies, op)
		} else {
			skips = append(skips, op)
		}
	}

	if in.Mirror {
		for _, entry := range in.Destination {
			if _, ok := mappedFrom[entry.Key]; ok {
				continue
			}
			deletes = append(deletes, types.PlannedOp{
				Action:  types.ActionDelete,
				DestKey: entry.Key,
				Reason:  types.ReasonNotOnSource,
			})
		}
	}

	byDestKey := func(ops []types.PlannedOp) func(i, j int) bool {
		return func(i, j int) bool { return ops[i].DestKey < ops[j].DestKey }
	}
	sort.Slice(copies, byDestKey(copies))
	sort.Slice(deletes, byDestKey(deletes))
	sort.Slice(skips, byDestKey(skips))

	ops := make([]types.PlannedOp, 0, len(copies)+len(deletes)+len(skips))
	ops = append(ops, copies...)
	ops = append(ops, deletes...)
	ops = append(ops, skips...)

	return &types.TransferPlan{
		Ops:         ops,
		Copies:      len(copies),
		Deletes:     len(deletes),
		Skips:       len(skips),
		BytesToCopy: bytesToCopy,
	}, nil
}
