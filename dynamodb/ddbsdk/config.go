package ddbsdk

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	dynamodbv2 "github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/table"
)

// AWSOptions selects the AWS account, region and endpoint to talk to.
type AWSOptions struct {
	Region string
	// Endpoint overrides the DynamoDB endpoint, e.g. http://localhost:8000
	// for DynamoDB Local.
	Endpoint string
	// MaxAttempts bounds SDK retries of idempotent calls. Zero keeps the SDK
	// default.
	MaxAttempts int
}

// NewFromConfig loads the default AWS configuration chain and returns a
// Client serving def.
func NewFromConfig(ctx context.Context, aopts AWSOptions, def table.TableDefinition, opts ...Option) (*Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if aopts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(aopts.Region))
	}
	if aopts.MaxAttempts > 0 {
		loadOpts = append(loadOpts, awsconfig.WithRetryMaxAttempts(aopts.MaxAttempts))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	awsddb := dynamodbv2.NewFromConfig(awsCfg, func(o *dynamodbv2.Options) {
		if aopts.Endpoint != "" {
			o.BaseEndpoint = aws.String(aopts.Endpoint)
		}
	})
	return New(awsddb, def, opts...), nil
}
