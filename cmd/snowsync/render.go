package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/NYPL/snowsync/types"
)

// renderPlan prints a computed plan: a summary line, then each pending
// copy and delete. Up-to-date objects are counted but not listed.
func renderPlan(w io.Writer, plan *types.TransferPlan, asJSON bool) error {
	if asJSON {
		return writeJSON(w, plan)
	}

	fmt.Fprintf(w, "plan: %d to copy (%s), %d to delete, %d up to date\n",
		plan.Copies, humanize.Bytes(uint64(plan.BytesToCopy)), plan.Deletes, plan.Skips)
	for _, op := range plan.Ops {
		switch op.Action {
		case types.ActionCopy:
			fmt.Fprintf(w, "  copy    %s -> %s (%s)\n", op.Source.Key, op.DestKey, op.Reason)
		case types.ActionDelete:
			fmt.Fprintf(w, "  delete  %s (%s)\n", op.DestKey, op.Reason)
		}
	}
	return nil
}

// renderResult prints the outcome of an executed run, listing every
// failure by key.
func renderResult(w io.Writer, result *types.TransferResult, asJSON bool) error {
	if asJSON {
		return writeJSON(w, result)
	}

	fmt.Fprintf(w, "copied %d (%s), skipped %d, deleted %d, bundled %d, failed %d in %s\n",
		result.Copied, humanize.Bytes(uint64(result.BytesCopied)), result.Skipped,
		result.Deleted, result.Bundled, result.Failed,
		result.Duration.Round(time.Millisecond))
	for _, failure := range result.Failures {
		fmt.Fprintf(w, "  failed  %s %s: %s\n", failure.Action, failure.Key, failure.Message)
	}
	return nil
}

// renderDiff prints a verification diff: missing and extra objects with
// sizes, then a one-line summary of what is left to move.
func renderDiff(w io.Writer, diff *types.VerifyResult, asJSON bool) error {
	if asJSON {
		return writeJSON(w, diff)
	}

	if diff.InSync {
		fmt.Fprintln(w, "in sync")
		return nil
	}
	for _, pair := range diff.Missing {
		fmt.Fprintf(w, "  missing  %s (%s)\n", pair.Key, humanize.Bytes(uint64(pair.Size)))
	}
	for _, pair := range diff.Extra {
		fmt.Fprintf(w, "  extra    %s (%s)\n", pair.Key, humanize.Bytes(uint64(pair.Size)))
	}
	fmt.Fprintf(w, "%d missing, %d extra, %s left to transfer\n",
		len(diff.Missing), len(diff.Extra), humanize.Bytes(uint64(diff.BytesRemaining)))
	return nil
}

// renderEntries prints a listing with modification time, humanized size
// and key per line, followed by an object and byte count.
func renderEntries(w io.Writer, entries []types.ObjectEntry, asJSON bool) error {
	if asJSON {
		return writeJSON(w, entries)
	}

	var total int64
	for _, entry := range entries {
		fmt.Fprintf(w, "%s  %10s  %s\n",
			entry.LastModified.Format("2006-01-02 15:04:05"),
			humanize.Bytes(uint64(entry.Size)), entry.Key)
		total += entry.Size
	}
	fmt.Fprintf(w, "%d objects, %s\n", len(entries), humanize.Bytes(uint64(total)))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
