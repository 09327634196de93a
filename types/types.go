// Package types provides shared type definitions for the snowsync module.
package types

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/rs/zerolog"
)

// StorageClass represents the S3 storage class applied to written objects.
type StorageClass string

// Predefined S3 storage classes
const (
	// StorageClassStandard is the default S3 storage class
	StorageClassStandard StorageClass = "STANDARD"

	// StorageClassReducedRedundancy provides reduced redundancy storage
	StorageClassReducedRedundancy StorageClass = "REDUCED_REDUNDANCY"

	// StorageClassStandardIA provides infrequent access storage
	StorageClassStandardIA StorageClass = "STANDARD_IA"

	// StorageClassOneZoneIA provides one zone infrequent access storage
	StorageClassOneZoneIA StorageClass = "ONEZONE_IA"

	// StorageClassIntelligentTiering provides intelligent tiering storage
	StorageClassIntelligentTiering StorageClass = "INTELLIGENT_TIERING"

	// StorageClassGlacier provides Glacier archival storage
	StorageClassGlacier StorageClass = "GLACIER"

	// StorageClassDeepArchive provides Deep Archive storage
	StorageClassDeepArchive StorageClass = "DEEP_ARCHIVE"

	// StorageClassGlacierIR provides Glacier Instant Retrieval storage
	StorageClassGlacierIR StorageClass = "GLACIER_IR"
)

// ObjectEntry identifies one stored object as reported by a listing.
// Entries are immutable once listed; a fresh listing produces a new snapshot.
type ObjectEntry struct {
	// Key is the full slash-delimited object key. Keys are opaque strings;
	// there is no real folder hierarchy.
	Key string `json:"key"`

	// Size is the object size in bytes
	Size int64 `json:"size"`

	// LastModified is when the object was last modified
	LastModified time.Time `json:"lastModified"`

	// StorageClass is the storage class reported by the store (informational)
	StorageClass string `json:"storageClass,omitempty"`

	// ETag is the opaque content fingerprint reported by the store.
	// Empty when the store does not provide one (e.g. local filesystems).
	ETag string `json:"etag,omitempty"`
}

// FilterAction is the verdict of a filter rule: include or exclude.
type FilterAction string

// Filter rule actions
const (
	// FilterInclude selects matching keys for the operation
	FilterInclude FilterAction = "include"

	// FilterExclude removes matching keys from the operation
	FilterExclude FilterAction = "exclude"
)

// FilterRule is one ordered include/exclude pattern. Rules apply in
// declaration order and the last matching rule wins; keys matched by no
// rule are included.
type FilterRule struct {
	// Pattern is a wildcard pattern where `*` matches any run of
	// characters including `/` and `?` matches exactly one character.
	Pattern string

	// Action is what happens to keys the pattern matches
	Action FilterAction
}

// Include builds a FilterRule that selects keys matching pattern.
func Include(pattern string) FilterRule {
	return FilterRule{Pattern: pattern, Action: FilterInclude}
}

// Exclude builds a FilterRule that rejects keys matching pattern.
func Exclude(pattern string) FilterRule {
	return FilterRule{Pattern: pattern, Action: FilterExclude}
}

// KeyMapper translates a source key (relative to the source prefix) to a
// destination key. The identity mapping is used when nil.
type KeyMapper func(sourceKey string) string

// Action is the reconciliation step planned for one object.
type Action string

// Planned actions
const (
	// ActionCopy transfers the source object to the destination
	ActionCopy Action = "copy"

	// ActionSkip leaves a destination object that already matches
	ActionSkip Action = "skip"

	// ActionDelete removes a destination object with no source counterpart
	ActionDelete Action = "delete"
)

// Reasons recorded on planned operations.
const (
	// ReasonMissing means the destination has no object at the mapped key
	ReasonMissing = "missing"

	// ReasonSizeMismatch means source and destination sizes differ
	ReasonSizeMismatch = "size mismatch"

	// ReasonETagMismatch means both sides report ETags and they differ
	ReasonETagMismatch = "etag mismatch"

	// ReasonUpToDate means the destination object already matches
	ReasonUpToDate = "up to date"

	// ReasonNotOnSource means no filtered-in source object maps to the key
	ReasonNotOnSource = "not on source"

	// ReasonRequested means the caller asked for the object's removal
	ReasonRequested = "requested"
)

// PlannedOp is one (source entry, destination key, action) triple of a
// transfer plan.
type PlannedOp struct {
	// Action is the reconciliation step for this object
	Action Action `json:"action"`

	// Source is the source listing entry; nil for delete actions
	Source *ObjectEntry `json:"source,omitempty"`

	// DestKey is the full destination key the action applies to
	DestKey string `json:"destKey"`

	// Reason is why the planner chose this action
	Reason string `json:"reason,omitempty"`
}

// TransferPlan is the computed, read-only reconciliation plan. It is built
// once per invocation from complete source and destination snapshots and
// never mutated afterwards.
type TransferPlan struct {
	// Ops holds the planned operations: copies first, then deletes, then
	// skips, key-sorted within each group
	Ops []PlannedOp `json:"operations"`

	// Copies is the number of copy actions
	Copies int `json:"copies"`

	// Skips is the number of skip actions
	Skips int `json:"skips"`

	// Deletes is the number of delete actions
	Deletes int `json:"deletes"`

	// BytesToCopy is the total size of all copy actions
	BytesToCopy int64 `json:"bytesToCopy"`
}

// TransferError records one per-object failure from an execution run.
type TransferError struct {
	// Key is the destination key that failed
	Key string `json:"key"`

	// Action is the operation that failed
	Action Action `json:"action"`

	// Message is the failure detail
	Message string `json:"message"`
}

// TransferResult summarizes one transfer run.
type TransferResult struct {
	// Copied is the number of objects copied to the destination
	Copied int `json:"copied"`

	// Skipped is the number of objects left untouched (already matching)
	Skipped int `json:"skipped"`

	// Deleted is the number of destination objects removed (mirror mode)
	Deleted int `json:"deleted"`

	// Bundled is the number of objects packed into a bundle archive
	Bundled int `json:"bundled"`

	// Failed is the number of operations that did not complete
	Failed int `json:"failed"`

	// BytesCopied is the total bytes written to the destination
	BytesCopied int64 `json:"bytesCopied"`

	// Failures lists each failed operation by key
	Failures []TransferError `json:"failures,omitempty"`

	// Duration is how long the run took
	Duration time.Duration `json:"duration"`

	// Plan is the computed plan; populated on dry runs
	Plan *TransferPlan `json:"plan,omitempty"`

	// DryRun reports whether the plan was executed
	DryRun bool `json:"dryRun,omitempty"`
}

// KeySize is one (relative key, size) pair used when verifying a transfer.
type KeySize struct {
	// Key is the object key relative to the compared prefix
	Key string `json:"key"`

	// Size is the object size in bytes
	Size int64 `json:"size"`
}

// VerifyResult reports the set difference between a source and a
// destination reduced to (relative key, size) pairs.
type VerifyResult struct {
	// Missing lists source objects absent from the destination
	Missing []KeySize `json:"missing"`

	// Extra lists destination objects absent from the source
	Extra []KeySize `json:"extra"`

	// BytesRemaining is the total size of the missing objects
	BytesRemaining int64 `json:"bytesRemaining"`

	// InSync reports whether both sides match exactly
	InSync bool `json:"inSync"`
}

// ListPage is one page of a store listing.
type ListPage struct {
	// Entries are the objects on this page in listing order
	Entries []ObjectEntry

	// NextToken continues the listing when Truncated is true
	NextToken string

	// Truncated reports whether more pages follow
	Truncated bool
}

// PutConfig carries the attributes applied when writing an object.
type PutConfig struct {
	// ContentType is the MIME type recorded on the object; stores may
	// sniff one when empty
	ContentType string

	// StorageClass is the storage class for the written object
	StorageClass StorageClass

	// Metadata is user-defined metadata recorded on the object
	Metadata map[string]string
}

// DeleteFailure records one key a Delete call could not remove.
type DeleteFailure struct {
	// Key is the object key that was not deleted
	Key string

	// Message is the failure detail reported by the store
	Message string
}

// Store is the object-store collaborator: an object namespace supporting
// list/open/put/delete. Implementations preserve S3 semantics: a prefix is
// a literal string match against keys, not a directory.
type Store interface {
	// Name identifies the store in logs and error messages,
	// e.g. "s3://bucket" or a local path.
	Name() string

	// List returns one page of entries whose keys start with prefix,
	// continuing from token ("" requests the first page).
	List(ctx context.Context, prefix, token string) (*ListPage, error)

	// Open returns a reader over the object body. The caller closes it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Put writes body to key. Size is the body length in bytes, or -1
	// when unknown.
	Put(ctx context.Context, key string, body io.Reader, size int64, cfg PutConfig) error

	// Delete removes the given keys, returning per-key failures. The
	// returned error reports a whole-call failure.
	Delete(ctx context.Context, keys []string) ([]DeleteFailure, error)
}

// ServerCopier is implemented by stores that can copy an object from a
// compatible source without streaming it through the caller. CopyFrom
// returns ErrUnsupported when the source cannot be copied server-side,
// in which case callers fall back to Open/Put.
type ServerCopier interface {
	CopyFrom(ctx context.Context, src Store, srcKey, destKey string, cfg PutConfig) error
}

// ContentTyper is implemented by stores that can report a content type
// for an object, e.g. by sniffing local file contents.
type ContentTyper interface {
	ContentType(key string) string
}

// Configuration types for functional options

// ClientConfig holds configuration for the snowsync client.
type ClientConfig struct {
	Region            string
	Endpoint          string
	Profile           string
	AccessKeyID       string
	SecretAccessKey   string
	SessionToken      string
	MaxRetries        int
	Timeout           time.Duration
	Concurrency       int
	PartSize          int64
	ForcePathStyle    bool
	RequestsPerSecond float64
	CustomAWSConfig   *aws.Config
	CustomHTTPClient  *http.Client
	Filesystem        fs.Filesystem // Filesystem abstraction for local stores and spooling
	Logger            *zerolog.Logger
}

// BundleOptionConfig holds configuration for small-file bundling during
// transfers.
type BundleOptionConfig struct {
	// ArchiveKey is the destination key the tar archive is written to
	ArchiveKey string

	// Patterns selects relative keys to bundle; defaults to *.txt, *.json
	Patterns []string

	// Limit caps the size of bundled objects; 0 means no cap
	Limit int64
}

// TransferOptionConfig holds configuration for transfer operations via
// functional options.
type TransferOptionConfig struct {
	Filters      []FilterRule
	Mapper       KeyMapper
	Mirror       bool
	DryRun       bool
	Concurrency  int
	StorageClass StorageClass
	ContentType  string
	Metadata     map[string]string
	Bundle       *BundleOptionConfig
}

// VerifyOptionConfig holds configuration for verify operations via
// functional options.
type VerifyOptionConfig struct {
	Filters []FilterRule
	Mapper  KeyMapper
}

// RemoveOptionConfig holds configuration for remove operations via
// functional options.
type RemoveOptionConfig struct {
	Filters []FilterRule
	DryRun  bool
}

// Option is a functional option for configuring the snowsync client.
type (
	Option func(*ClientConfig)
	// TransferOption is a functional option for configuring transfers.
	TransferOption func(*TransferOptionConfig)
	// VerifyOption is a functional option for configuring verification.
	VerifyOption func(*VerifyOptionConfig)
	// RemoveOption is a functional option for configuring removals.
	RemoveOption func(*RemoveOptionConfig)
)
