// Package awsutil loads the AWS SDK configuration shared by every client.
package awsutil

import (
	"context"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// EndpointEnv names the variable pointing every client at a local emulator.
const EndpointEnv = "AWS_ENDPOINT_URL"

// LocalEndpoint returns the emulator endpoint, e.g. http://localstack:4566,
// or "" against AWS proper.
func LocalEndpoint() string {
	return strings.TrimRight(strings.TrimSpace(os.Getenv(EndpointEnv)), "/")
}

// Load returns the SDK config for region together with the local endpoint, if any.
func Load(ctx context.Context, region string) (aws.Config, string, error) {
	opts := []func(*awsCfg.LoadOptions) error{awsCfg.WithRegion(region)}

	endpoint := LocalEndpoint()
	if endpoint != "" {
		opts = append(opts, awsCfg.WithBaseEndpoint(endpoint))
		// emulators accept any key pair
		if os.Getenv("AWS_ACCESS_KEY_ID") == "" {
			opts = append(opts, awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")))
		}
	}

	cfg, err := awsCfg.LoadDefaultConfig(ctx, opts...)
	return cfg, endpoint, err
}
