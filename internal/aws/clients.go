package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// AWSClients bundles all service clients for convenience.
type AWSClients struct {
	DynamoDB   DynamoDBAPI
	SQS        SQSAPI
	CloudWatch CloudWatchAPI
	SNS        SNSAPI
	SES        SESAPI

	// CredentialsAvailable is false when no credentials resolved at startup.
	// Notification providers are left unconfigured in that case.
	CredentialsAvailable bool
}

// NewAWSClients loads AWS config and returns concrete service clients that implement our interfaces.
// When AWS_ENDPOINT_OVERRIDE is set every client is pointed at it (LocalStack).
func NewAWSClients(ctx context.Context) (*AWSClients, error) {
	cfg, err := LoadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}

	hasCreds := HasCredentials(ctx, cfg)

	endpoint := EndpointOverride()
	if endpoint == "" {
		return &AWSClients{
			DynamoDB:             dynamodb.NewFromConfig(cfg),
			SQS:                  sqs.NewFromConfig(cfg),
			CloudWatch:           cloudwatch.NewFromConfig(cfg),
			SNS:                  sns.NewFromConfig(cfg),
			SES:                  sesv2.NewFromConfig(cfg),
			CredentialsAvailable: hasCreds,
		}, nil
	}

	return &AWSClients{
		DynamoDB:             dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) { o.BaseEndpoint = &endpoint }),
		SQS:                  sqs.NewFromConfig(cfg, func(o *sqs.Options) { o.BaseEndpoint = &endpoint }),
		CloudWatch:           cloudwatch.NewFromConfig(cfg, func(o *cloudwatch.Options) { o.BaseEndpoint = &endpoint }),
		SNS:                  sns.NewFromConfig(cfg, func(o *sns.Options) { o.BaseEndpoint = &endpoint }),
		SES:                  sesv2.NewFromConfig(cfg, func(o *sesv2.Options) { o.BaseEndpoint = &endpoint }),
		CredentialsAvailable: hasCreds,
	}, nil
}
