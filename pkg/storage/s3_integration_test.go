//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
)

// Requires Docker.
func TestS3Store_LocalStack(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	ctr, err := localstack.Run(ctx, "localstack/localstack:3.0",
		testcontainers.WithEnv(map[string]string{"SERVICES": "s3"}),
	)
	require.NoError(t, err, "start LocalStack")
	defer func() {
		if err := ctr.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	}()

	endpoint, err := ctr.PortEndpoint(ctx, "4566/tcp", "http")
	require.NoError(t, err)

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "test", SecretAccessKey: "test"}, nil
		})),
	)
	require.NoError(t, err)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String("traces")})
	require.NoError(t, err)

	s := &S3Store{Client: client, Bucket: "traces", Prefix: "graphstep"}
	require.NoError(t, s.Put(ctx, "demo/run-1.json", []byte(`[{"kind":"wait","seq":1}]`)))
	require.NoError(t, s.Put(ctx, "demo/run-2.json", []byte(`[]`)))

	keys, err := s.List(ctx, "demo/")
	require.NoError(t, err)
	assert.Equal(t, []string{"demo/run-1.json", "demo/run-2.json"}, keys)

	data, err := s.Get(ctx, "demo/run-1.json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"kind":"wait","seq":1}]`, string(data))
}
