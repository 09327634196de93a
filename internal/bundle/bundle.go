package bundle

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/NYPL/snowsync/errors"
	"github.com/NYPL/snowsync/internal/filter"
	"github.com/NYPL/snowsync/internal/pool"
	"github.com/NYPL/snowsync/types"
)

// AutoExtractKey is the metadata key Snowball devices read to unpack an
// uploaded archive back into individual objects.
const AutoExtractKey = "snowball-auto-extract"

// ArchiveContentType is the MIME type recorded on bundle archives.
const ArchiveContentType = "application/x-tar"

// DefaultPatterns selects the small text artifacts drives typically
// carry alongside media.
var DefaultPatterns = []string{"*.txt", "*.json"}

// Config describes one bundle archive.
type Config struct {
	// ArchiveKey is the destination key the tar archive is written to.
	ArchiveKey string

	// Patterns selects members by relative destination key; empty means
	// DefaultPatterns.
	Patterns []string

	// Limit excludes objects larger than this many bytes; 0 means no cap.
	Limit int64
}

// Partition splits a plan into bundle members and the residual plan the
// executor runs. Copy operations whose relative destination key matches a
// pattern, and whose size is within the limit, become members; everything
// else stays planned as-is.
func Partition(plan *types.TransferPlan, destPrefix string, cfg Config) ([]types.PlannedOp, *types.TransferPlan) {
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	var members []types.PlannedOp
	rest := &types.TransferPlan{}

	for _, op := range plan.Ops {
		if op.Action == types.ActionCopy && op.Source != nil &&
			matches(patterns, strings.TrimPrefix(op.DestKey, destPrefix)) &&
			(cfg.Limit <= 0 || op.Source.Size <= cfg.Limit) {
			members = append(members, op)
			continue
		}

		rest.Ops = append(rest.Ops, op)
		switch op.Action {
		case types.ActionCopy:
			rest.Copies++
			rest.BytesToCopy += op.Source.Size
		case types.ActionDelete:
			rest.Deletes++
		case types.ActionSkip:
			rest.Skips++
		}
	}

	return members, rest
}

func matches(patterns []string, key string) bool {
	for _, pattern := range patterns {
		if filter.Match(pattern, key) {
			return true
		}
	}
	return false
}

// Upload streams the members into one tar archive at cfg.ArchiveKey,
// tagged so the receiving device auto-extracts it. The archive size is
// unknown up front, so destination stores see size -1. It returns the
// bytes written; a failure on any member fails the whole archive.
func Upload(
	ctx context.Context,
	source, dest types.Store,
	members []types.PlannedOp,
	cfg Config,
	put types.PutConfig,
) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	if cfg.ArchiveKey == "" {
		return 0, errors.NewError("bundle",
			fmt.Errorf("%w: bundle archive key is empty", errors.ErrInvalidInput))
	}

	meta := make(map[string]string, len(put.Metadata)+1)
	for k, v := range put.Metadata {
		meta[k] = v
	}
	meta[AutoExtractKey] = "true"
	put.Metadata = meta
	put.ContentType = ArchiveContentType

	pr, pw := io.Pipe()
	counter := &countingWriter{w: pw}

	tarDone := make(chan error, 1)
	go func() {
		err := writeArchive(ctx, source, members, counter)
		if err != nil {
			_ = pw.CloseWithError(err)
		} else {
			_ = pw.Close()
		}
		tarDone <- err
	}()

	putErr := dest.Put(ctx, cfg.ArchiveKey, pr, -1, put)

	// Unblock the archiver if the destination stopped reading early.
	_ = pr.Close()
	tarErr := <-tarDone

	if putErr != nil {
		return counter.n, putErr
	}
	if tarErr != nil {
		return counter.n, tarErr
	}
	return counter.n, nil
}

// writeArchive tars each member in order, streaming bodies straight from
// the source store.
func writeArchive(ctx context.Context, source types.Store, members []types.PlannedOp, w io.Writer) error {
	tw := tar.NewWriter(w)

	buf := pool.Get(pool.MediumBufferSize)
	defer pool.Put(buf)

	for _, op := range members {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		body, err := source.Open(ctx, op.Source.Key)
		if err != nil {
			return err
		}

		header := &tar.Header{
			Name:    op.DestKey,
			Mode:    0o644,
			Size:    op.Source.Size,
			ModTime: op.Source.LastModified,
		}
		if err := tw.WriteHeader(header); err != nil {
			_ = body.Close()
			return errors.NewError("bundle", err).WithKey(op.DestKey)
		}
		if _, err := io.CopyBuffer(tw, body, buf); err != nil {
			_ = body.Close()
			return errors.NewError("bundle", err).WithKey(op.DestKey)
		}
		if err := body.Close(); err != nil {
			return errors.NewError("bundle", err).WithKey(op.DestKey)
		}
	}

	if err := tw.Close(); err != nil {
		return errors.NewError("bundle", err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
