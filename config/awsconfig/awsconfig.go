// Package awsconfig wires S3 Storage and Result Storage from flags
package awsconfig

import (
	"context"
	"flag"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/cshum/pixbright"
	"github.com/cshum/pixbright/config"
	"github.com/cshum/pixbright/storage/s3storage"
	"go.uber.org/zap"
)

// WithAWS with S3 Storage and Result Storage config option
func WithAWS(fs *flag.FlagSet, cb config.Callback) pixbright.Option {
	var (
		awsRegion = fs.String("aws-region", "",
			"AWS Region. Required if using S3 Storage")
		awsAccessKeyId = fs.String("aws-access-key-id", "",
			"AWS Access Key ID. Falls back to the default credential chain if empty")
		awsSecretAccessKey = fs.String("aws-secret-access-key", "",
			"AWS Secret Access Key")
		awsSessionToken = fs.String("aws-session-token", "",
			"AWS Session Token. Optional temporary credentials")
		s3Endpoint = fs.String("s3-endpoint", "",
			"Optional S3 Endpoint to override default")
		s3ForcePathStyle = fs.Bool("s3-force-path-style", false,
			"S3 force the request to use path-style addressing s3.amazonaws.com/bucket/key, instead of bucket.s3.amazonaws.com/key")
		s3SafeChars = fs.String("s3-safe-chars", "",
			"S3 safe characters to be excluded from image key escape. Set -- for no-op")

		s3StorageBucket = fs.String("s3-storage-bucket", "",
			"S3 Bucket for S3 Storage. Enable S3 Storage only if this value present")
		s3StorageBaseDir = fs.String("s3-storage-base-dir", "",
			"Base directory for S3 Storage")
		s3StoragePathPrefix = fs.String("s3-storage-path-prefix", "",
			"Base path prefix for S3 Storage")
		s3StorageACL = fs.String("s3-storage-acl", "public-read",
			"Upload ACL for S3 Storage")
		s3StorageClass = fs.String("s3-storage-class", "",
			"Storage class for S3 Storage e.g. STANDARD_IA. Default bucket setting")
		s3StorageExpiration = fs.Duration("s3-storage-expiration", 0,
			"S3 Storage expiration duration e.g. 24h. Default no expiration")
		s3StorageBucketRouterConfig = fs.String("s3-storage-bucket-router-config", "",
			"YAML file routing S3 Storage keys to buckets by prefix")

		s3ResultStorageBucket = fs.String("s3-result-storage-bucket", "",
			"S3 Bucket for S3 Result Storage. Enable S3 Result Storage only if this value present")
		s3ResultStorageBaseDir = fs.String("s3-result-storage-base-dir", "",
			"Base directory for S3 Result Storage")
		s3ResultStoragePathPrefix = fs.String("s3-result-storage-path-prefix", "",
			"Base path prefix for S3 Result Storage")
		s3ResultStorageACL = fs.String("s3-result-storage-acl", "public-read",
			"Upload ACL for S3 Result Storage")
		s3ResultStorageClass = fs.String("s3-result-storage-class", "",
			"Storage class for S3 Result Storage e.g. STANDARD_IA. Default bucket setting")
		s3ResultStorageExpiration = fs.Duration("s3-result-storage-expiration", 0,
			"S3 Result Storage expiration duration e.g. 24h. Default no expiration")
		s3ResultStorageBucketRouterConfig = fs.String("s3-result-storage-bucket-router-config", "",
			"YAML file routing S3 Result Storage keys to buckets by prefix, e.g. by brightness")

		logger, _ = cb()
	)
	bucketRouter := func(path string) s3storage.BucketRouter {
		if path == "" {
			return nil
		}
		router, err := LoadBucketRouterFromYAML(path)
		if err != nil {
			logger.Fatal("s3-bucket-router-config", zap.String("path", path), zap.Error(err))
		}
		return router
	}
	return func(app *pixbright.App) {
		if *s3StorageBucket == "" && *s3ResultStorageBucket == "" {
			return
		}
		cfg, err := loadConfig(*awsRegion, *awsAccessKeyId, *awsSecretAccessKey, *awsSessionToken)
		if err != nil {
			panic(err)
		}
		if *s3StorageBucket != "" {
			// activate S3 Storage only if bucket config presents
			app.Storages = append(app.Storages,
				s3storage.New(cfg, *s3StorageBucket,
					s3storage.WithEndpoint(*s3Endpoint),
					s3storage.WithForcePathStyle(*s3ForcePathStyle),
					s3storage.WithPathPrefix(*s3StoragePathPrefix),
					s3storage.WithBaseDir(*s3StorageBaseDir),
					s3storage.WithACL(*s3StorageACL),
					s3storage.WithStorageClass(*s3StorageClass),
					s3storage.WithSafeChars(*s3SafeChars),
					s3storage.WithExpiration(*s3StorageExpiration),
					s3storage.WithBucketRouter(bucketRouter(*s3StorageBucketRouterConfig)),
				),
			)
		}
		if *s3ResultStorageBucket != "" {
			// activate S3 Result Storage only if bucket config presents
			app.ResultStorages = append(app.ResultStorages,
				s3storage.New(cfg, *s3ResultStorageBucket,
					s3storage.WithEndpoint(*s3Endpoint),
					s3storage.WithForcePathStyle(*s3ForcePathStyle),
					s3storage.WithPathPrefix(*s3ResultStoragePathPrefix),
					s3storage.WithBaseDir(*s3ResultStorageBaseDir),
					s3storage.WithACL(*s3ResultStorageACL),
					s3storage.WithStorageClass(*s3ResultStorageClass),
					s3storage.WithSafeChars(*s3SafeChars),
					s3storage.WithExpiration(*s3ResultStorageExpiration),
					s3storage.WithBucketRouter(bucketRouter(*s3ResultStorageBucketRouterConfig)),
				),
			)
		}
	}
}

// loadConfig loads the shared AWS config, static credentials take precedence
// over the default credential chain when both key id and secret are set
func loadConfig(region, accessKeyID, secretAccessKey, sessionToken string) (aws.Config, error) {
	var opts []func(*awscfg.LoadOptions) error
	if region != "" {
		opts = append(opts, awscfg.WithRegion(region))
	}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, sessionToken)))
	}
	return awscfg.LoadDefaultConfig(context.Background(), opts...)
}
