// Package testutil boots LocalStack containers for the integration
// suite.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Static credentials accepted by LocalStack.
const (
	LocalStackAccessKey = "test"
	LocalStackSecretKey = "test"
)

const localstackPort = "4566"

// LocalStackContainer is a running LocalStack instance plus the
// coordinates clients need to reach its S3 service.
type LocalStackContainer struct {
	ls       *localstack.LocalStackContainer
	endpoint string
	region   string
}

// NewLocalStackContainer starts a LocalStack container and blocks until
// its health endpoint answers.
func NewLocalStackContainer(ctx context.Context) (*LocalStackContainer, error) {
	ls, err := localstack.Run(ctx,
		"localstack/localstack:latest",
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/_localstack/health").
				WithPort(localstackPort).
				WithStartupTimeout(2*time.Minute),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start localstack: %w", err)
	}

	host, err := ls.Host(ctx)
	if err != nil {
		_ = ls.Terminate(ctx)
		return nil, fmt.Errorf("resolve localstack host: %w", err)
	}
	port, err := ls.MappedPort(ctx, localstackPort)
	if err != nil {
		_ = ls.Terminate(ctx)
		return nil, fmt.Errorf("resolve localstack port: %w", err)
	}

	return &LocalStackContainer{
		ls:       ls,
		endpoint: fmt.Sprintf("http://%s:%s", host, port.Port()),
		region:   "us-east-1",
	}, nil
}

// Endpoint returns the mapped S3 endpoint URL.
func (c *LocalStackContainer) Endpoint() string { return c.endpoint }

// Region returns the region the container answers for.
func (c *LocalStackContainer) Region() string { return c.region }

// Terminate stops and removes the container.
func (c *LocalStackContainer) Terminate(ctx context.Context) error {
	if c.ls == nil {
		return nil
	}
	return c.ls.Terminate(ctx)
}

// GetS3Client returns a raw SDK client pointed at the container. Tests
// use it to seed buckets and inspect what the transfer wrote.
func (c *LocalStackContainer) GetS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(c.region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(LocalStackAccessKey, LocalStackSecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load sdk config: %w", err)
	}
	// LocalStack serves every bucket from one host, so path-style
	// addressing is required.
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(c.endpoint)
	}), nil
}

// SetupLocalStackTest starts LocalStack for a test and returns the
// container, a raw S3 client for fixtures, and a cleanup function to
// defer. The test is skipped in short mode.
func SetupLocalStackTest(t *testing.T) (*LocalStackContainer, *s3.Client, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("localstack tests skipped in short mode")
	}

	ctx := context.Background()
	container, err := NewLocalStackContainer(ctx)
	if err != nil {
		t.Fatalf("start localstack: %v", err)
	}

	client, err := container.GetS3Client(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("build s3 client: %v", err)
	}

	return container, client, func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate localstack: %v", err)
		}
	}
}

// CreateTestBucketInLocalStack creates bucketName on the container.
func CreateTestBucketInLocalStack(ctx context.Context, client *s3.Client, bucketName string) error {
	_, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucketName)})
	if err != nil {
		return fmt.Errorf("create bucket %s: %w", bucketName, err)
	}
	return nil
}

// CleanupTestBucketInLocalStack empties bucketName and deletes it.
// Listing restarts from the first page after every batch delete, so the
// loop ends once the bucket reports no contents.
func CleanupTestBucketInLocalStack(ctx context.Context, client *s3.Client, bucketName string) error {
	for {
		page, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(bucketName)})
		if err != nil {
			return fmt.Errorf("list %s: %w", bucketName, err)
		}
		if len(page.Contents) == 0 {
			break
		}

		ids := make([]s3types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			ids = append(ids, s3types.ObjectIdentifier{Key: obj.Key})
		}
		_, err = client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucketName),
			Delete: &s3types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("empty %s: %w", bucketName, err)
		}
	}

	_, err := client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucketName)})
	if err != nil {
		return fmt.Errorf("delete bucket %s: %w", bucketName, err)
	}
	return nil
}
