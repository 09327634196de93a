package execute

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NYPL/snowsync/errors"
	"github.com/NYPL/snowsync/internal/retry"
	"github.com/NYPL/snowsync/types"
)

const (
	// DefaultConcurrency bounds in-flight copy operations.
	DefaultConcurrency = 5

	// maxDeleteBatch is the S3 DeleteObjects request ceiling.
	maxDeleteBatch = 1000
)

// Config holds the collaborators and knobs for one execution run.
type Config struct {
	// Source objects are read from here.
	Source types.Store

	// Destination objects are written here and deleted from here.
	Destination types.Store

	// Concurrency bounds in-flight copies; values < 1 mean
	// DefaultConcurrency.
	Concurrency int

	// Attempts is the per-operation retry budget for transient failures;
	// values < 1 mean retry.DefaultAttempts.
	Attempts int

	// Put carries the attributes applied to every written object. An
	// empty ContentType falls back to the source store's sniffer when it
	// has one.
	Put types.PutConfig

	// OnProgress, when set, observes every finished operation with its
	// outcome. It must be safe for concurrent calls.
	OnProgress func(op types.PlannedOp, err error)
}

// Executor runs transfer plans. It is stateless across runs; one executor
// can run many plans.
type Executor struct {
	cfg Config
}

// New creates an executor, applying defaults for unset knobs.
func New(cfg Config) *Executor {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = retry.DefaultAttempts
	}
	return &Executor{cfg: cfg}
}

// Run executes the plan: copies first, concurrently, then deletes in
// batches. Per-object failures land on the result and the run continues.
// The returned error is non-nil only when ctx ends the run early; the
// result still reflects everything that finished before that.
func (e *Executor) Run(ctx context.Context, plan *types.TransferPlan) (*types.TransferResult, error) {
	start := time.Now()

	var (
		copied      int64
		bytesCopied int64

		mu       sync.Mutex
		failures []types.TransferError
	)

	recordFailure := func(op types.PlannedOp, err error) {
		mu.Lock()
		failures = append(failures, types.TransferError{
			Key:     op.DestKey,
			Action:  op.Action,
			Message: err.Error(),
		})
		mu.Unlock()
	}

	observe := func(op types.PlannedOp, err error) {
		if e.cfg.OnProgress != nil {
			e.cfg.OnProgress(op, err)
		}
	}

	result := &types.TransferResult{}

	sem := make(chan struct{}, e.cfg.Concurrency)
	var wg sync.WaitGroup
	var runErr error

copyLoop:
	for _, op := range plan.Ops {
		switch op.Action {
		case types.ActionSkip:
			result.Skipped++
			continue
		case types.ActionDelete:
			// Deletes run after all copies settle.
			continue
		}

		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break copyLoop
		default:
		}

		// Acquire before spawning so cancellation stops issuing new
		// copies while in-flight ones finish.
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			runErr = ctx.Err()
			break copyLoop
		}

		wg.Add(1)
		go func(op types.PlannedOp) {
			defer wg.Done()
			defer func() { <-sem }()

			// A copy that lost the race with cancellation never started;
			// it is not a failure.
			if ctx.Err() != nil {
				return
			}

			err := e.copyOne(ctx, op)
			observe(op, err)
			if err != nil {
				recordFailure(op, err)
				return
			}
			atomic.AddInt64(&copied, 1)
			atomic.AddInt64(&bytesCopied, op.Source.Size)
		}(op)
	}

	wg.Wait()

	if runErr == nil {
		var deleted int
		deleted, runErr = e.deleteAll(ctx, plan, recordFailure, observe)
		result.Deleted = deleted
	}

	result.Copied = int(atomic.LoadInt64(&copied))
	result.BytesCopied = atomic.LoadInt64(&bytesCopied)
	result.Failures = failures
	result.Failed = len(failures)
	result.Duration = time.Since(start)
	return result, runErr
}

// copyOne transfers a single object, retrying transient failures within
// the attempt budget.
func (e *Executor) copyOne(ctx context.Context, op types.PlannedOp) error {
	if op.Source == nil {
		return errors.NewError("copy",
			fmt.Errorf("%w: planned copy %q has no source entry", errors.ErrInvalidInput, op.DestKey))
	}

	cfg := e.cfg.Put
	if cfg.ContentType == "" {
		if typer, ok := e.cfg.Source.(types.ContentTyper); ok {
			cfg.ContentType = typer.ContentType(op.Source.Key)
		}
	}

	return retry.Do(ctx, e.cfg.Attempts, func() error {
		return e.copyAttempt(ctx, op, cfg)
	})
}

// copyAttempt tries the destination's server-side copy first and falls
// back to streaming the object through this process.
func (e *Executor) copyAttempt(ctx context.Context, op types.PlannedOp, cfg types.PutConfig) error {
	srcKey := op.Source.Key

	if copier, ok := e.cfg.Destination.(types.ServerCopier); ok {
		err := copier.CopyFrom(ctx, e.cfg.Source, srcKey, op.DestKey, cfg)
		if err == nil || !errors.IsUnsupported(err) {
			return err
		}
	}

	body, err := e.cfg.Source.Open(ctx, srcKey)
	if err != nil {
		return err
	}
	defer body.Close()

	return e.cfg.Destination.Put(ctx, op.DestKey, body, op.Source.Size, cfg)
}

// deleteAll removes the plan's delete keys in batches, recording per-key
// failures. It returns how many objects were deleted.
func (e *Executor) deleteAll(
	ctx context.Context,
	plan *types.TransferPlan,
	recordFailure func(op types.PlannedOp, err error),
	observe func(op types.PlannedOp, err error),
) (int, error) {
	var deleteOps []types.PlannedOp
	for _, op := range plan.Ops {
		if op.Action == types.ActionDelete {
			deleteOps = append(deleteOps, op)
		}
	}

	deleted := 0
	for batchStart := 0; batchStart < len(deleteOps); batchStart += maxDeleteBatch {
		batchEnd := batchStart + maxDeleteBatch
		if batchEnd > len(deleteOps) {
			batchEnd = len(deleteOps)
		}
		batch := deleteOps[batchStart:batchEnd]

		select {
		case <-ctx.Done():
			return deleted, ctx.Err()
		default:
		}

		keys := make([]string, len(batch))
		for i, op := range batch {
			keys[i] = op.DestKey
		}

		var keyFailures []types.DeleteFailure
		err := retry.Do(ctx, e.cfg.Attempts, func() error {
			var delErr error
			keyFailures, delErr = e.cfg.Destination.Delete(ctx, keys)
			return delErr
		})
		if err != nil {
			if ctx.Err() != nil {
				return deleted, ctx.Err()
			}
			// The whole batch failed; record every key and move on.
			for _, op := range batch {
				observe(op, err)
				recordFailure(op, err)
			}
			continue
		}

		failedKeys := make(map[string]string, len(keyFailures))
		for _, f := range keyFailures {
			failedKeys[f.Key] = f.Message
		}

		for _, op := range batch {
			if msg, failed := failedKeys[op.DestKey]; failed {
				err := errors.NewObjectError("delete", e.cfg.Destination.Name(), op.DestKey,
					fmt.Errorf("store rejected delete: %s", msg))
				observe(op, err)
				recordFailure(op, err)
				continue
			}
			observe(op, nil)
			deleted++
		}
	}

	return deleted, nil
}
