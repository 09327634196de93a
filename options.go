// Package snowsync provides functional options for configuring the client
// and its operations. These follow the functional options pattern for
// clean, composable configuration.
package snowsync

import (
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/rs/zerolog"

	"github.com/NYPL/snowsync/internal/filter"
	"github.com/NYPL/snowsync/types"
)

// WithRegion sets the AWS region for S3 operations.
// If not specified, uses the region from the credential chain.
func WithRegion(region string) types.Option {
	return func(c *types.ClientConfig) {
		c.Region = region
	}
}

// WithEndpoint sets a custom S3 endpoint. A bare IPv4 address is expanded
// to http://ADDR:8080, the convention for Snowball devices on a local
// network. Custom endpoints force path-style addressing.
func WithEndpoint(endpoint string) types.Option {
	return func(c *types.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithProfile selects a named profile from the shared AWS config files.
func WithProfile(profile string) types.Option {
	return func(c *types.ClientConfig) {
		c.Profile = profile
	}
}

// WithStaticCredentials sets fixed credentials instead of the default
// credential chain. The session token may be empty.
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) types.Option {
	return func(c *types.ClientConfig) {
		c.AccessKeyID = accessKeyID
		c.SecretAccessKey = secretAccessKey
		c.SessionToken = sessionToken
	}
}

// WithMaxRetries sets the retry budget for transient failures.
// Default is 3 attempts. Set to 1 to disable retries.
func WithMaxRetries(maxRetries int) types.Option {
	return func(c *types.ClientConfig) {
		if maxRetries > 0 {
			c.MaxRetries = maxRetries
		}
	}
}

// WithTimeout sets the timeout for individual store requests.
// Default is no timeout.
func WithTimeout(timeout time.Duration) types.Option {
	return func(c *types.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithConcurrency sets the default number of concurrent transfer
// operations. Default is 5.
func WithConcurrency(concurrency int) types.Option {
	return func(c *types.ClientConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithPartSize sets the multipart upload part size.
// Default is 8MB; S3 requires at least 5MB.
func WithPartSize(partSize int64) types.Option {
	return func(c *types.ClientConfig) {
		if partSize > 0 {
			c.PartSize = partSize
		}
	}
}

// WithForcePathStyle forces path-style URLs instead of virtual-hosted
// style. Required for S3-compatible services without virtual hosting.
func WithForcePathStyle(forcePathStyle bool) types.Option {
	return func(c *types.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithRequestsPerSecond caps outbound S3 requests across all operations
// sharing the client. Zero means unlimited.
func WithRequestsPerSecond(rps float64) types.Option {
	return func(c *types.ClientConfig) {
		if rps > 0 {
			c.RequestsPerSecond = rps
		}
	}
}

// WithAWSConfig provides a prebuilt AWS configuration, overriding the
// default loading behavior.
func WithAWSConfig(config *aws.Config) types.Option {
	return func(c *types.ClientConfig) {
		c.CustomAWSConfig = config
	}
}

// WithCustomHTTPClient provides a custom HTTP client for full control
// over transport behavior.
func WithCustomHTTPClient(client *http.Client) types.Option {
	return func(c *types.ClientConfig) {
		c.CustomHTTPClient = client
	}
}

// WithFilesystem sets the filesystem implementation backing local
// locations. Defaults to the OS filesystem; in-memory filesystems are
// useful in tests.
func WithFilesystem(filesystem fs.Filesystem) types.Option {
	return func(c *types.ClientConfig) {
		c.Filesystem = filesystem
	}
}

// WithLogger sets the structured logger. Defaults to a disabled logger.
func WithLogger(logger *zerolog.Logger) types.Option {
	return func(c *types.ClientConfig) {
		c.Logger = logger
	}
}

// WithInclude appends an include rule. Rules apply in declaration order
// and the last matching rule wins; `*` matches any run of characters
// including `/`.
func WithInclude(pattern string) types.TransferOption {
	return func(c *types.TransferOptionConfig) {
		c.Filters = append(c.Filters, types.Include(pattern))
	}
}

// WithExclude appends an exclude rule.
func WithExclude(pattern string) types.TransferOption {
	return func(c *types.TransferOptionConfig) {
		c.Filters = append(c.Filters, types.Exclude(pattern))
	}
}

// WithExcludeJunk appends exclude rules for the desktop junk files that
// ride along on external drives. Appended after any other rules, so they
// always win.
func WithExcludeJunk() types.TransferOption {
	return func(c *types.TransferOptionConfig) {
		c.Filters = append(c.Filters, filter.JunkRules()...)
	}
}

// WithMirror deletes destination objects that no source object maps to.
// Deletions bypass filters: anything under the destination prefix that is
// not part of the mapped source set goes.
func WithMirror() types.TransferOption {
	return func(c *types.TransferOptionConfig) {
		c.Mirror = true
	}
}

// WithDryRun computes and returns the plan without executing it.
func WithDryRun() types.TransferOption {
	return func(c *types.TransferOptionConfig) {
		c.DryRun = true
	}
}

// WithTransferConcurrency overrides the client concurrency for one
// transfer.
func WithTransferConcurrency(concurrency int) types.TransferOption {
	return func(c *types.TransferOptionConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithStorageClass sets the storage class applied to written objects.
func WithStorageClass(storageClass types.StorageClass) types.TransferOption {
	return func(c *types.TransferOptionConfig) {
		c.StorageClass = storageClass
	}
}

// WithContentType fixes the content type for written objects instead of
// per-object detection.
func WithContentType(contentType string) types.TransferOption {
	return func(c *types.TransferOptionConfig) {
		c.ContentType = contentType
	}
}

// WithMetadata merges user metadata onto every written object.
func WithMetadata(metadata map[string]string) types.TransferOption {
	return func(c *types.TransferOptionConfig) {
		if c.Metadata == nil {
			c.Metadata = make(map[string]string, len(metadata))
		}
		for k, v := range metadata {
			c.Metadata[k] = v
		}
	}
}

// WithKeyMapper translates source keys (relative to the source prefix) to
// destination keys. The identity mapping is used when nil.
func WithKeyMapper(mapper types.KeyMapper) types.TransferOption {
	return func(c *types.TransferOptionConfig) {
		c.Mapper = mapper
	}
}

// WithBundle packs small matching objects into one tar archive written to
// archiveKey under the destination prefix, tagged so a Snowball device
// extracts it on import.
func WithBundle(archiveKey string) types.TransferOption {
	return func(c *types.TransferOptionConfig) {
		if c.Bundle == nil {
			c.Bundle = &types.BundleOptionConfig{}
		}
		c.Bundle.ArchiveKey = archiveKey
	}
}

// WithBundlePatterns selects which relative keys are bundled.
// Defaults to *.txt and *.json.
func WithBundlePatterns(patterns ...string) types.TransferOption {
	return func(c *types.TransferOptionConfig) {
		if c.Bundle == nil {
			c.Bundle = &types.BundleOptionConfig{}
		}
		c.Bundle.Patterns = patterns
	}
}

// WithBundleLimit caps the size of objects considered for bundling.
// Zero means no cap.
func WithBundleLimit(limit int64) types.TransferOption {
	return func(c *types.TransferOptionConfig) {
		if c.Bundle == nil {
			c.Bundle = &types.BundleOptionConfig{}
		}
		c.Bundle.Limit = limit
	}
}

// WithVerifyInclude appends an include rule for verification.
func WithVerifyInclude(pattern string) types.VerifyOption {
	return func(c *types.VerifyOptionConfig) {
		c.Filters = append(c.Filters, types.Include(pattern))
	}
}

// WithVerifyExclude appends an exclude rule for verification.
func WithVerifyExclude(pattern string) types.VerifyOption {
	return func(c *types.VerifyOptionConfig) {
		c.Filters = append(c.Filters, types.Exclude(pattern))
	}
}

// WithVerifyExcludeJunk appends exclude rules for desktop junk files.
func WithVerifyExcludeJunk() types.VerifyOption {
	return func(c *types.VerifyOptionConfig) {
		c.Filters = append(c.Filters, filter.JunkRules()...)
	}
}

// WithVerifyKeyMapper applies the same key mapping used by the transfer
// being verified.
func WithVerifyKeyMapper(mapper types.KeyMapper) types.VerifyOption {
	return func(c *types.VerifyOptionConfig) {
		c.Mapper = mapper
	}
}

// WithRemoveInclude appends an include rule for removal.
func WithRemoveInclude(pattern string) types.RemoveOption {
	return func(c *types.RemoveOptionConfig) {
		c.Filters = append(c.Filters, types.Include(pattern))
	}
}

// WithRemoveExclude appends an exclude rule for removal.
func WithRemoveExclude(pattern string) types.RemoveOption {
	return func(c *types.RemoveOptionConfig) {
		c.Filters = append(c.Filters, types.Exclude(pattern))
	}
}

// WithRemoveDryRun lists what would be removed without deleting anything.
func WithRemoveDryRun() types.RemoveOption {
	return func(c *types.RemoveOptionConfig) {
		c.DryRun = true
	}
}
