package blobstore

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/greengliwice/trees-backend/internal/config"
)

// Open returns the Store selected by env.BlobDriver.
func Open(env config.Env, cfg aws.Config, endpoint string) (Store, error) {
	switch Driver(env.BlobDriver) {
	case DriverS3:
		client := s3.NewFromConfig(cfg, func(o *s3.Options) {
			if endpoint != "" {
				o.UsePathStyle = true // localstack/dev friendliness
			}
		})
		return NewS3FromClient(client, env.ImagesBucket, env.Region, endpoint), nil
	case DriverMinio:
		return NewMinio(MinioConfig{
			Endpoint:  env.MinioEndpoint,
			AccessKey: env.MinioAccessKey,
			SecretKey: env.MinioSecretKey,
			UseSSL:    env.MinioUseSSL,
			Bucket:    env.ImagesBucket,
			Region:    env.Region,
		})
	case DriverMemory:
		return NewMemory(env.ImagesBucket), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", env.BlobDriver)
	}
}
