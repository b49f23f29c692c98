// internal/inventory/enumerator.go

// Package inventory enumerates resources through the provider API so a typo'd
// or hallucinated resource name is rejected before a browser ever launches.
// Enumeration is optional; without credentials, target verification is skipped
// and navigation verification is the only guard.
package inventory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/veritas9k/consnap-cli/internal/config"
)

const cacheTTL = 5 * time.Minute

type cacheEntry struct {
	names     []string
	expiresAt time.Time
}

// Enumerator lists resource identifiers per service and region. Responses are
// cached briefly and API calls are rate limited; a capture run hitting the
// same service repeatedly should not hammer the control plane.
type Enumerator struct {
	cfg     config.InventoryConfig
	limiter *rate.Limiter
	logger  *zap.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewEnumerator builds an enumerator from static credentials. Call Enabled
// before using it; an enumerator without credentials refuses every call.
func NewEnumerator(cfg config.InventoryConfig, logger *zap.Logger) *Enumerator {
	return &Enumerator{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(10), 1),
		logger:  logger.Named("inventory"),
		cache:   make(map[string]cacheEntry),
	}
}

// Enabled reports whether enumeration can run at all.
func (e *Enumerator) Enabled() bool {
	return e.cfg.Enabled && e.cfg.AccessKeyID != "" && e.cfg.SecretAccessKey != ""
}

func (e *Enumerator) awsConfig(region string) aws.Config {
	return aws.Config{
		Region: region,
		Credentials: credentials.NewStaticCredentialsProvider(
			e.cfg.AccessKeyID,
			e.cfg.SecretAccessKey,
			e.cfg.SessionToken,
		),
		RetryMaxAttempts: 5,
	}
}

// CallerIdentity resolves the account behind the configured credentials.
func (e *Enumerator) CallerIdentity(ctx context.Context, region string) (account, arn string, err error) {
	if !e.Enabled() {
		return "", "", fmt.Errorf("inventory is not configured")
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return "", "", err
	}
	client := sts.NewFromConfig(e.awsConfig(region))
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", "", fmt.Errorf("GetCallerIdentity: %w", err)
	}
	return aws.ToString(out.Account), aws.ToString(out.Arn), nil
}

// ListResources returns the known identifiers for a service in a region.
// Services without an enumerator return (nil, nil); target verification
// treats an empty list as "cannot verify" rather than "does not exist".
func (e *Enumerator) ListResources(ctx context.Context, service, region string) ([]string, error) {
	if !e.Enabled() {
		return nil, nil
	}
	service = strings.ToLower(service)
	key := service + ":" + region

	e.mu.RLock()
	entry, ok := e.cache[key]
	e.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.names, nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var (
		names []string
		err   error
	)
	switch service {
	case "rds":
		names, err = e.listRDS(ctx, region)
	case "ec2":
		names, err = e.listEC2(ctx, region)
	case "s3":
		names, err = e.listS3(ctx, region)
	case "lambda":
		names, err = e.listLambda(ctx, region)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Resource inventory refreshed.",
		zap.String("service", service),
		zap.String("region", region),
		zap.Int("count", len(names)))

	e.mu.Lock()
	e.cache[key] = cacheEntry{names: names, expiresAt: time.Now().Add(cacheTTL)}
	e.mu.Unlock()
	return names, nil
}

func (e *Enumerator) listRDS(ctx context.Context, region string) ([]string, error) {
	client := rds.NewFromConfig(e.awsConfig(region))
	var names []string

	instances := rds.NewDescribeDBInstancesPaginator(client, &rds.DescribeDBInstancesInput{})
	for instances.HasMorePages() {
		page, err := instances.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeDBInstances: %w", err)
		}
		for _, db := range page.DBInstances {
			names = append(names, aws.ToString(db.DBInstanceIdentifier))
		}
	}

	clusters := rds.NewDescribeDBClustersPaginator(client, &rds.DescribeDBClustersInput{})
	for clusters.HasMorePages() {
		page, err := clusters.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeDBClusters: %w", err)
		}
		for _, cl := range page.DBClusters {
			names = append(names, aws.ToString(cl.DBClusterIdentifier))
		}
	}
	return names, nil
}

func (e *Enumerator) listEC2(ctx context.Context, region string) ([]string, error) {
	client := ec2.NewFromConfig(e.awsConfig(region))
	var names []string
	paginator := ec2.NewDescribeInstancesPaginator(client, &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeInstances: %w", err)
		}
		for _, res := range page.Reservations {
			for _, inst := range res.Instances {
				names = append(names, aws.ToString(inst.InstanceId))
				// Name tags are what operators type; accept those too.
				for _, tag := range inst.Tags {
					if aws.ToString(tag.Key) == "Name" && aws.ToString(tag.Value) != "" {
						names = append(names, aws.ToString(tag.Value))
					}
				}
			}
		}
	}
	return names, nil
}

// listS3 ignores the region; bucket names are global.
func (e *Enumerator) listS3(ctx context.Context, region string) ([]string, error) {
	client := s3.NewFromConfig(e.awsConfig(region))
	out, err := client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("ListBuckets: %w", err)
	}
	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		names = append(names, aws.ToString(b.Name))
	}
	return names, nil
}

func (e *Enumerator) listLambda(ctx context.Context, region string) ([]string, error) {
	client := lambda.NewFromConfig(e.awsConfig(region))
	var names []string
	paginator := lambda.NewListFunctionsPaginator(client, &lambda.ListFunctionsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("ListFunctions: %w", err)
		}
		for _, fn := range page.Functions {
			names = append(names, aws.ToString(fn.FunctionName))
		}
	}
	return names, nil
}
