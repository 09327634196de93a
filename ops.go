// Package snowsync provides the listing and removal operations.
package snowsync

import (
	"context"
	"strings"
	"time"

	"github.com/NYPL/snowsync/internal/enumerate"
	"github.com/NYPL/snowsync/internal/execute"
	"github.com/NYPL/snowsync/internal/filter"
	"github.com/NYPL/snowsync/types"
)

// List returns every object at a location: all keys starting with the
// prefix for s3://bucket/prefix locations, or every file under the
// directory for local paths. The prefix is a literal string match, so
// "s3://b/drive7" also matches "drive70/x".
//
// Example:
//
//	entries, err := client.List(ctx, "s3://archive/drive7/")
//	if err != nil {
//	    return err
//	}
//	for _, entry := range entries {
//	    fmt.Printf("%12d  %s\n", entry.Size, entry.Key)
//	}
func (c *Client) List(ctx context.Context, location string) ([]types.ObjectEntry, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	store, err := c.store(loc)
	if err != nil {
		return nil, err
	}

	entries, err := enumerate.Snapshot(ctx, store, loc.Prefix, c.maxRetries)
	if err != nil {
		return nil, err
	}

	c.log.Debug().
		Str("location", store.Name()).
		Str("prefix", loc.Prefix).
		Int("entries", len(entries)).
		Msg("listing complete")

	return entries, nil
}

// Remove deletes the objects at a location, optionally narrowed by
// filter rules evaluated against keys relative to the prefix. Deletes
// run in batches through the destination store; per-key failures land on
// the result and the run continues.
//
// With WithRemoveDryRun the result carries the delete plan and nothing
// is removed.
//
// Example:
//
//	result, err := client.Remove(ctx, "s3://archive/drive7/",
//	    snowsync.WithRemoveExclude("*.json"),
//	)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("removed %d objects, %d failed\n", result.Deleted, result.Failed)
func (c *Client) Remove(
	ctx context.Context,
	location string,
	opts ...types.RemoveOption,
) (*types.TransferResult, error) {
	start := time.Now()

	cfg := &types.RemoveOptionConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	loc, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	store, err := c.store(loc)
	if err != nil {
		return nil, err
	}

	entries, err := enumerate.Snapshot(ctx, store, loc.Prefix, c.maxRetries)
	if err != nil {
		return nil, err
	}

	rel := func(key string) string { return strings.TrimPrefix(key, loc.Prefix) }
	entries = filter.Apply(cfg.Filters, entries, rel)

	removal := &types.TransferPlan{Deletes: len(entries)}
	removal.Ops = make([]types.PlannedOp, 0, len(entries))
	for _, entry := range entries {
		removal.Ops = append(removal.Ops, types.PlannedOp{
			Action:  types.ActionDelete,
			DestKey: entry.Key,
			Reason:  types.ReasonRequested,
		})
	}

	c.log.Info().
		Str("location", store.Name()).
		Int("deletes", removal.Deletes).
		Bool("dryRun", cfg.DryRun).
		Msg("removal planned")

	if cfg.DryRun {
		return &types.TransferResult{
			Plan:     removal,
			DryRun:   true,
			Duration: time.Since(start),
		}, nil
	}

	executor := execute.New(execute.Config{
		// Removal never copies, so the location serves as both sides.
		Source:      store,
		Destination: store,
		Attempts:    c.maxRetries,
		OnProgress:  c.logProgress,
	})

	result, runErr := executor.Run(ctx, removal)
	result.Duration = time.Since(start)

	c.log.Info().
		Int("deleted", result.Deleted).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("removal complete")

	return result, runErr
}
