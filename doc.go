// Package snowsync plans and runs bulk object transfers between local
// drives and S3-compatible stores, including AWS Snowball devices on a
// local network.
//
// Every operation works from complete snapshots: both sides are listed
// in full, a reconciliation plan is computed, and only then does
// anything move. Objects the destination already holds with matching
// size and ETag are skipped, so reruns after a partial failure pick up
// where the last run stopped.
//
// Key features:
//   - Resumable transfers driven by list-diff plans, never blind puts
//   - Local paths and s3://bucket/prefix locations on either side
//   - Include/exclude wildcard filters and key remapping
//   - Mirror mode that deletes destination objects with no source
//   - Small-file bundling into auto-extracting tar archives
//   - Verification reporting what still differs between the sides
//
// Example usage:
//
//	client, err := snowsync.New(
//	    snowsync.WithEndpoint("192.168.1.99"),
//	)
//	if err != nil {
//	    return err
//	}
//
//	// Archive a drive onto the device
//	result, err := client.Transfer(ctx, "/mnt/drive7", "s3://archive/drive7/",
//	    snowsync.WithExcludeJunk(),
//	)
//	if err != nil {
//	    return err
//	}
package snowsync
