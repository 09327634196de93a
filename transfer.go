// Package snowsync provides the public transfer API.
package snowsync

import (
	"context"
	"fmt"
	"time"

	"github.com/NYPL/snowsync/errors"
	"github.com/NYPL/snowsync/internal/bundle"
	"github.com/NYPL/snowsync/internal/enumerate"
	"github.com/NYPL/snowsync/internal/execute"
	"github.com/NYPL/snowsync/internal/plan"
	"github.com/NYPL/snowsync/types"
)

// plannedTransfer carries everything the execution phase needs once
// planning has finished.
type plannedTransfer struct {
	source      types.Store
	destination types.Store
	srcLoc      Location
	dstLoc      Location
	plan        *types.TransferPlan
}

// Transfer copies the objects under source to destination, skipping
// objects the destination already holds with matching size and ETag.
// Source and destination are locations: either s3://bucket/prefix or a
// local path.
//
// The operation runs in three phases:
//  1. Enumerate: snapshot both locations completely
//  2. Plan: compute the copy/skip/delete set from the snapshots
//  3. Execute: run the plan with bounded concurrency
//
// Per-object failures do not stop the run; they are collected on the
// result. The returned error is non-nil only when the run itself could
// not proceed (bad input, enumeration failure, ambiguous mapping) or was
// cancelled.
//
// Returns:
//   - *TransferResult: counts, bytes, failures, and timing for the run
//   - error: non-nil when planning failed or ctx ended the run early
//
// Errors:
//   - ErrInvalidInput: empty or malformed locations
//   - ErrAmbiguousMapping: two source keys map to one destination key
//   - ErrStoreUnavailable: a listing failed after the retry budget
//
// Example:
//
//	result, err := client.Transfer(ctx, "/mnt/drive7", "s3://archive/drive7/",
//	    snowsync.WithExcludeJunk(),
//	    snowsync.WithMirror(),
//	)
//	if err != nil {
//	    return fmt.Errorf("transfer failed: %w", err)
//	}
//	fmt.Printf("copied %d objects (%d bytes), %d failed\n",
//	    result.Copied, result.BytesCopied, result.Failed)
func (c *Client) Transfer(
	ctx context.Context,
	source, destination string,
	opts ...types.TransferOption,
) (*types.TransferResult, error) {
	start := time.Now()

	cfg := &types.TransferOptionConfig{Concurrency: c.concurrency}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Bundle != nil && cfg.Bundle.ArchiveKey == "" {
		return nil, errors.NewError("transfer",
			fmt.Errorf("%w: bundle archive key is empty", errors.ErrInvalidInput))
	}

	run, err := c.buildPlan(ctx, source, destination, cfg)
	if err != nil {
		return nil, err
	}

	c.log.Info().
		Str("source", run.source.Name()).
		Str("destination", run.destination.Name()).
		Int("copies", run.plan.Copies).
		Int("skips", run.plan.Skips).
		Int("deletes", run.plan.Deletes).
		Int64("bytes", run.plan.BytesToCopy).
		Msg("transfer planned")

	if cfg.DryRun {
		return &types.TransferResult{
			Plan:     run.plan,
			DryRun:   true,
			Duration: time.Since(start),
		}, nil
	}

	put := types.PutConfig{
		ContentType:  cfg.ContentType,
		StorageClass: cfg.StorageClass,
		Metadata:     cfg.Metadata,
	}

	var bundled int
	var bundledBytes int64
	var bundleFailures []types.TransferError

	toRun := run.plan
	if cfg.Bundle != nil {
		bundleCfg := bundle.Config{
			ArchiveKey: run.dstLoc.Prefix + cfg.Bundle.ArchiveKey,
			Patterns:   cfg.Bundle.Patterns,
			Limit:      cfg.Bundle.Limit,
		}

		var members []types.PlannedOp
		members, toRun = bundle.Partition(run.plan, run.dstLoc.Prefix, bundleCfg)

		if len(members) == 0 {
			c.log.Warn().
				Str("archive", bundleCfg.ArchiveKey).
				Msg("bundle matched no planned copies")
		} else if written, bundleErr := bundle.Upload(
			ctx, run.source, run.destination, members, bundleCfg, put,
		); bundleErr != nil {
			c.log.Warn().
				Str("archive", bundleCfg.ArchiveKey).
				Int("members", len(members)).
				Err(bundleErr).
				Msg("bundle upload failed")
			for _, op := range members {
				bundleFailures = append(bundleFailures, types.TransferError{
					Key:     op.DestKey,
					Action:  op.Action,
					Message: bundleErr.Error(),
				})
			}
		} else {
			bundled = len(members)
			bundledBytes = written
			c.log.Info().
				Str("archive", bundleCfg.ArchiveKey).
				Int("members", bundled).
				Int64("bytes", written).
				Msg("bundle uploaded")
		}
	}

	executor := execute.New(execute.Config{
		Source:      run.source,
		Destination: run.destination,
		Concurrency: cfg.Concurrency,
		Attempts:    c.maxRetries,
		Put:         put,
		OnProgress:  c.logProgress,
	})

	result, runErr := executor.Run(ctx, toRun)

	result.Bundled = bundled
	result.BytesCopied += bundledBytes
	if len(bundleFailures) > 0 {
		result.Failures = append(bundleFailures, result.Failures...)
		result.Failed = len(result.Failures)
	}
	result.Duration = time.Since(start)

	c.log.Info().
		Int("copied", result.Copied).
		Int("skipped", result.Skipped).
		Int("deleted", result.Deleted).
		Int("bundled", result.Bundled).
		Int("failed", result.Failed).
		Int64("bytes", result.BytesCopied).
		Dur("duration", result.Duration).
		Msg("transfer complete")

	return result, runErr
}

// Plan computes the reconciliation plan for a transfer without touching
// any object. It enumerates both locations and returns the copy, skip,
// and delete operations a Transfer call with the same arguments would
// run.
//
// Example:
//
//	plan, err := client.Plan(ctx, "/mnt/drive7", "s3://archive/drive7/")
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("%d to copy, %d up to date\n", plan.Copies, plan.Skips)
func (c *Client) Plan(
	ctx context.Context,
	source, destination string,
	opts ...types.TransferOption,
) (*types.TransferPlan, error) {
	cfg := &types.TransferOptionConfig{Concurrency: c.concurrency}
	for _, opt := range opts {
		opt(cfg)
	}

	run, err := c.buildPlan(ctx, source, destination, cfg)
	if err != nil {
		return nil, err
	}
	return run.plan, nil
}

// buildPlan parses both locations, snapshots them concurrently, and
// computes the plan.
func (c *Client) buildPlan(
	ctx context.Context,
	source, destination string,
	cfg *types.TransferOptionConfig,
) (*plannedTransfer, error) {
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

	built, err := plan.Build(plan.Input{
		Source:       srcEntries,
		Destination:  dstEntries,
		SourcePrefix: srcLoc.Prefix,
		DestPrefix:   dstLoc.Prefix,
		Filters:      cfg.Filters,
		Mapper:       cfg.Mapper,
		Mirror:       cfg.Mirror,
	})
	if err != nil {
		return nil, err
	}

	return &plannedTransfer{
		source:      srcStore,
		destination: dstStore,
		srcLoc:      srcLoc,
		dstLoc:      dstLoc,
		plan:        built,
	}, nil
}

// logProgress reports each finished operation at debug level, failures at
// warn.
func (c *Client) logProgress(op types.PlannedOp, err error) {
	if err != nil {
		c.log.Warn().
			Str("key", op.DestKey).
			Str("action", string(op.Action)).
			Err(err).
			Msg("operation failed")
		return
	}
	c.log.Debug().
		Str("key", op.DestKey).
		Str("action", string(op.Action)).
		Msg("operation complete")
}
