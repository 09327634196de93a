// Package internal contains private implementation details for the snowsync
// module. These packages are not intended for external use and may change
// without notice.
//
// The internal packages are organized as follows:
//   - storeapi: Narrow S3 SDK interface the stores are built on
//   - enumerate: Concurrent store snapshotting with per-page retries
//   - plan: Pure snapshot reconciliation into a transfer plan
//   - execute: Bounded-concurrency plan execution
//   - bundle: Small-file tar bundling for Snowball auto-extract
//   - filter: Ordered include/exclude rule evaluation
//   - multipart: Multipart upload for large or unknown-size bodies
//   - retry: Exponential backoff around transient store failures
//   - validate: Input validation logic
//   - pool: Memory management optimizations
//   - testutil: Shared mocks, fixtures and LocalStack harness
package internal
