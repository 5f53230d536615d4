package s3storage

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cshum/pixbright/storage"
)

// Option S3Storage option
type Option func(s *S3Storage)

// enumSet collects the known values of an SDK string enum
func enumSet[T ~string](values []T) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[string(v)] = true
	}
	return set
}

var (
	cannedACLs     = enumSet(types.ObjectCannedACL("").Values())
	storageClasses = enumSet(types.StorageClass("").Values())
)

// WithBaseDir object key prefix inside the bucket
func WithBaseDir(baseDir string) Option {
	return func(s *S3Storage) {
		if baseDir != "" {
			s.BaseDir = storage.WithPrefix(baseDir)
		}
	}
}

// WithPathPrefix keys outside of prefix are passed to the next storage
func WithPathPrefix(prefix string) Option {
	return func(s *S3Storage) {
		if prefix != "" {
			s.PathPrefix = storage.WithPrefix(prefix)
		}
	}
}

// WithACL canned ACL of Put, unknown values keep public-read
// https://docs.aws.amazon.com/AmazonS3/latest/userguide/acl-overview.html#canned-acl
func WithACL(acl string) Option {
	return func(s *S3Storage) {
		if cannedACLs[acl] {
			s.ACL = acl
		}
	}
}

// WithStorageClass storage class of Put e.g. STANDARD_IA, empty for bucket default
func WithStorageClass(class string) Option {
	return func(s *S3Storage) {
		if storageClasses[class] {
			s.StorageClass = class
		}
	}
}

// WithSafeChars characters excluded from key escaping, "--" disables escaping
func WithSafeChars(chars string) Option {
	return func(s *S3Storage) {
		if chars != "" {
			s.SafeChars = chars
		}
	}
}

// WithExpiration treats objects modified longer than exp ago as expired
func WithExpiration(exp time.Duration) Option {
	return func(s *S3Storage) {
		if exp > 0 {
			s.Expiration = exp
		}
	}
}

// WithEndpoint S3 compatible endpoint e.g. MinIO
func WithEndpoint(endpoint string) Option {
	return func(s *S3Storage) {
		if endpoint != "" {
			s.Endpoint = endpoint
		}
	}
}

// WithForcePathStyle addresses buckets as endpoint/bucket/key
func WithForcePathStyle(enabled bool) Option {
	return func(s *S3Storage) {
		s.ForcePathStyle = enabled
	}
}

// WithBucketRouter routes object keys to buckets, keys routed nowhere use Bucket
func WithBucketRouter(router BucketRouter) Option {
	return func(s *S3Storage) {
		if router != nil {
			s.BucketRouter = router
		}
	}
}
