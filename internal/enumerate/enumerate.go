package enumerate

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/NYPL/snowsync/internal/retry"
	"github.com/NYPL/snowsync/types"
)

// Snapshot lists every object under prefix, following continuation tokens
// until the store reports no more pages. Each page fetch gets its own
// retry budget of attempts tries.
func Snapshot(ctx context.Context, store types.Store, prefix string, attempts int) ([]types.ObjectEntry, error) {
	var entries []types.ObjectEntry
	var token string

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var page *types.ListPage
		err := retry.Do(ctx, attempts, func() error {
			p, listErr := store.List(ctx, prefix, token)
			if listErr != nil {
				return listErr
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, err
		}

		entries = append(entries, page.Entries...)

		if !page.Truncated || page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	return entries, nil
}

// Pair snapshots source and destination concurrently. A failure on either
// side cancels the other and is returned.
func Pair(
	ctx context.Context,
	source, destination types.Store,
	sourcePrefix, destPrefix string,
	attempts int,
) ([]types.ObjectEntry, []types.ObjectEntry, error) {
	var src, dst []types.ObjectEntry

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, err := Snapshot(gctx, source, sourcePrefix, attempts)
		if err != nil {
			return err
		}
		src = entries
		return nil
	})
	g.Go(func() error {
		entries, err := Snapshot(gctx, destination, destPrefix, attempts)
		if err != nil {
			return err
		}
		dst = entries
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return src, dst, nil
}
