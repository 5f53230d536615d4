package s3storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cshum/pixbright"
	"github.com/cshum/pixbright/storage"
)

// S3Storage AWS S3 Storage implements pixbright.Storage interface
type S3Storage struct {
	Client *s3.Client
	Bucket string

	BaseDir        string
	PathPrefix     string
	ACL            string
	StorageClass   string
	SafeChars      string
	Expiration     time.Duration
	Endpoint       string
	ForcePathStyle bool
	BucketRouter   BucketRouter

	safeChars storage.SafeChars
}

// New creates S3Storage. A bucket of form "bucket/base/dir" also sets BaseDir.
func New(cfg aws.Config, bucket string, options ...Option) *S3Storage {
	baseDir := "/"
	if idx := strings.Index(bucket, "/"); idx > -1 {
		baseDir = bucket[idx:]
		bucket = bucket[:idx]
	}
	s := &S3Storage{
		Bucket:     bucket,
		BaseDir:    baseDir,
		PathPrefix: "/",
		ACL:        string(types.ObjectCannedACLPublicRead),
	}
	for _, option := range options {
		option(s)
	}
	s.Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
		}
		o.UsePathStyle = s.ForcePathStyle
	})
	// https://docs.aws.amazon.com/AmazonS3/latest/userguide/object-keys.html#object-key-guidelines-safe-characters
	s.safeChars = storage.NewSafeChars("!\"()*" + s.SafeChars)
	return s
}

// Path transforms and validates image key for object key
func (s *S3Storage) Path(key string) (string, bool) {
	key = "/" + storage.Normalize(key, s.safeChars)
	if !strings.HasPrefix(key, s.PathPrefix) {
		return "", false
	}
	return filepath.Join(s.BaseDir, strings.TrimPrefix(key, s.PathPrefix)), true
}

func (s *S3Storage) bucketFor(key string) string {
	if s.BucketRouter != nil {
		if bucket := s.BucketRouter.BucketFor(key); bucket != "" {
			return bucket
		}
	}
	return s.Bucket
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

// Get implements pixbright.Storage interface
func (s *S3Storage) Get(r *http.Request, key string) (*pixbright.Blob, error) {
	ctx := r.Context()
	key, ok := s.Path(key)
	if !ok {
		return nil, pixbright.ErrInvalid
	}
	bucket := s.bucketFor(key)
	var blob *pixbright.Blob
	blob = pixbright.NewBlob(func() (_ io.ReadCloser, _ int64, err error) {
		defer func(start time.Time) { storage.Observe("s3", "get", start, err) }(time.Now())
		out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if isNotFound(err) {
			return nil, 0, pixbright.ErrNotFound
		} else if err != nil {
			return nil, 0, err
		}
		if s.Expiration > 0 && out.LastModified != nil &&
			time.Since(*out.LastModified) > s.Expiration {
			_ = out.Body.Close()
			return nil, 0, pixbright.ErrExpired
		}
		size := aws.ToInt64(out.ContentLength)
		blob.SetContentType(aws.ToString(out.ContentType))
		blob.Stat = &pixbright.Stat{
			Size:         size,
			ETag:         aws.ToString(out.ETag),
			ModifiedTime: aws.ToTime(out.LastModified),
		}
		return out.Body, size, nil
	})
	return blob, nil
}

// Put implements pixbright.Storage interface
func (s *S3Storage) Put(ctx context.Context, key string, blob *pixbright.Blob) (err error) {
	defer func(start time.Time) { storage.Observe("s3", "put", start, err) }(time.Now())
	key, ok := s.Path(key)
	if !ok {
		return pixbright.ErrInvalid
	}
	buf, err := blob.ReadAll()
	if err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketFor(key)),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf),
		ContentLength: aws.Int64(int64(len(buf))),
		ContentType:   aws.String(blob.ContentType()),
	}
	if s.ACL != "" {
		input.ACL = types.ObjectCannedACL(s.ACL)
	}
	if s.StorageClass != "" {
		input.StorageClass = types.StorageClass(s.StorageClass)
	}
	_, err = s.Client.PutObject(ctx, input)
	return err
}

// Delete implements pixbright.Storage interface
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	key, ok := s.Path(key)
	if !ok {
		return pixbright.ErrInvalid
	}
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketFor(key)),
		Key:    aws.String(key),
	})
	return err
}

// Stat implements pixbright.Storage interface
func (s *S3Storage) Stat(ctx context.Context, key string) (*pixbright.Stat, error) {
	key, ok := s.Path(key)
	if !ok {
		return nil, pixbright.ErrInvalid
	}
	head, err := s.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketFor(key)),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return nil, pixbright.ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &pixbright.Stat{
		Size:         aws.ToInt64(head.ContentLength),
		ETag:         aws.ToString(head.ETag),
		ModifiedTime: aws.ToTime(head.LastModified),
	}, nil
}
