// Package snowsync provides client initialization and configuration.
//
// The Client wires AWS configuration, credentials, endpoint selection,
// rate limiting, and the filesystem abstraction behind the Transfer,
// Verify, List, and Remove operations.
package snowsync

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/NYPL/snowsync/errors"
	"github.com/NYPL/snowsync/internal/retry"
	"github.com/NYPL/snowsync/internal/storeapi"
	"github.com/NYPL/snowsync/types"
)

// snowballPort is the S3 endpoint port on a Snowball device; a bare IP
// endpoint is expanded to http://ADDR:8080.
const snowballPort = "8080"

// Client is the entry point for transfer, verify, list, and remove
// operations. It is safe for concurrent use.
type Client struct {
	// api is the S3 SDK surface, swappable for tests
	api storeapi.S3API

	// config holds the resolved AWS configuration
	config aws.Config

	// fsys backs local locations
	fsys fs.Filesystem

	// limiter paces outbound S3 requests across all stores; nil when
	// unlimited
	limiter *rate.Limiter

	log zerolog.Logger

	maxRetries  int
	concurrency int
	partSize    int64
}

// New creates a client. Credentials and region come from the AWS default
// chain unless overridden by options.
//
// Example:
//
//	client, err := snowsync.New(
//	    snowsync.WithEndpoint("192.168.1.99"),
//	    snowsync.WithRequestsPerSecond(100),
//	)
func New(opts ...types.Option) (*Client, error) {
	clientCfg := &types.ClientConfig{
		MaxRetries:  retry.DefaultAttempts,
		Concurrency: 5,
		PartSize:    8 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(clientCfg)
	}

	var cfg aws.Config
	var err error

	if clientCfg.CustomAWSConfig != nil {
		cfg = *clientCfg.CustomAWSConfig
	} else {
		var loadOpts []func(*config.LoadOptions) error
		if clientCfg.Profile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(clientCfg.Profile))
		}
		if clientCfg.AccessKeyID != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(
					clientCfg.AccessKeyID, clientCfg.SecretAccessKey, clientCfg.SessionToken)))
		}
		cfg, err = config.LoadDefaultConfig(context.Background(), loadOpts...)
		if err != nil {
			return nil, errors.NewError("client initialization", err)
		}
	}

	if clientCfg.Region != "" {
		cfg.Region = clientCfg.Region
	} else if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	if clientCfg.MaxRetries > 0 {
		cfg.RetryMaxAttempts = clientCfg.MaxRetries
	}

	var s3Opts []func(*s3.Options)

	if endpoint := normalizeEndpoint(clientCfg.Endpoint); endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	} else if clientCfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	if clientCfg.CustomHTTPClient != nil {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = clientCfg.CustomHTTPClient
		})
	} else if clientCfg.Timeout > 0 {
		httpClient := &http.Client{Timeout: clientCfg.Timeout}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}

	client := &Client{
		api:         s3.NewFromConfig(cfg, s3Opts...),
		config:      cfg,
		fsys:        clientCfg.Filesystem,
		limiter:     newLimiter(clientCfg.RequestsPerSecond),
		log:         zerolog.Nop(),
		maxRetries:  clientCfg.MaxRetries,
		concurrency: clientCfg.Concurrency,
		partSize:    clientCfg.PartSize,
	}
	if client.fsys == nil {
		client.fsys = billy.NewOSFS("/")
	}
	if clientCfg.Logger != nil {
		client.log = *clientCfg.Logger
	}

	return client, nil
}

// NewWithClient creates a client around a custom S3 API implementation.
// This is primarily used for testing with mocks.
func NewWithClient(api storeapi.S3API, opts ...types.Option) *Client {
	clientCfg := &types.ClientConfig{
		MaxRetries:  retry.DefaultAttempts,
		Concurrency: 5,
		PartSize:    8 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(clientCfg)
	}

	client := &Client{
		api:         api,
		config:      aws.Config{},
		fsys:        clientCfg.Filesystem,
		limiter:     newLimiter(clientCfg.RequestsPerSecond),
		log:         zerolog.Nop(),
		maxRetries:  clientCfg.MaxRetries,
		concurrency: clientCfg.Concurrency,
		partSize:    clientCfg.PartSize,
	}
	if client.fsys == nil {
		client.fsys = billy.NewOSFS("/")
	}
	if clientCfg.Logger != nil {
		client.log = *clientCfg.Logger
	}
	return client
}

// Close releases any resources held by the client.
// Currently a no-op but included for future extensibility.
func (c *Client) Close() error {
	return nil
}

// store builds the Store implementation for a parsed location. All S3
// stores share the client's rate limiter, so the requests-per-second cap
// holds across concurrent operations.
func (c *Client) store(loc Location) (types.Store, error) {
	if loc.IsS3() {
		s3Store, err := NewS3Store(c.api, loc.Bucket, c.partSize, c.limiter)
		if err != nil {
			return nil, err
		}
		return s3Store, nil
	}
	return NewFSStore(c.fsys, loc.Path), nil
}

// newLimiter builds the shared request pacer; zero or negative rates mean
// no pacing.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// normalizeEndpoint expands a bare IPv4 address to the Snowball device
// convention http://ADDR:8080. URLs pass through unchanged.
func normalizeEndpoint(endpoint string) string {
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	if ip := net.ParseIP(endpoint); ip != nil && ip.To4() != nil {
		return "http://" + endpoint + ":" + snowballPort
	}
	return endpoint
}
