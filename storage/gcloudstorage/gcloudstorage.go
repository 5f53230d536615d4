package gcloudstorage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/cshum/pixbright"
	pixstorage "github.com/cshum/pixbright/storage"
)

// GCloudStorage Google Cloud Storage implements pixbright.Storage interface
type GCloudStorage struct {
	BaseDir    string
	PathPrefix string
	ACL        string
	SafeChars  string
	Expiration time.Duration
	Bucket     string

	client    *storage.Client
	safeChars pixstorage.SafeChars
}

// New creates GCloudStorage
func New(client *storage.Client, bucket string, options ...Option) *GCloudStorage {
	s := &GCloudStorage{client: client, Bucket: bucket, PathPrefix: "/"}
	for _, option := range options {
		option(s)
	}
	s.safeChars = pixstorage.NewSafeChars(s.SafeChars)
	return s
}

// Path transforms and validates image key for object name
func (s *GCloudStorage) Path(key string) (string, bool) {
	key = "/" + pixstorage.Normalize(key, s.safeChars)
	if !strings.HasPrefix(key, s.PathPrefix) {
		return "", false
	}
	joined := filepath.Join(s.BaseDir, strings.TrimPrefix(key, s.PathPrefix))
	// object names do not start with "/"
	return strings.Trim(joined, "/"), true
}

func (s *GCloudStorage) attrs(ctx context.Context, key string) (*storage.ObjectAttrs, error) {
	attrs, err := s.client.Bucket(s.Bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, pixbright.ErrNotFound
		}
		return nil, err
	}
	if s.Expiration > 0 && time.Since(attrs.Updated) > s.Expiration {
		return nil, pixbright.ErrExpired
	}
	return attrs, nil
}

// Get implements pixbright.Storage interface
func (s *GCloudStorage) Get(r *http.Request, key string) (blob *pixbright.Blob, err error) {
	defer func(start time.Time) { pixstorage.Observe("gcloud", "get", start, err) }(time.Now())
	key, ok := s.Path(key)
	if !ok {
		return nil, pixbright.ErrInvalid
	}
	ctx := r.Context()
	attrs, err := s.attrs(ctx, key)
	if err != nil {
		return nil, err
	}
	object := s.client.Bucket(s.Bucket).Object(key)
	blob = pixbright.NewBlob(func() (io.ReadCloser, int64, error) {
		reader, err := object.NewReader(ctx)
		return reader, attrs.Size, err
	})
	blob.SetContentType(attrs.ContentType)
	blob.Stat = &pixbright.Stat{
		Size:         attrs.Size,
		ETag:         attrs.Etag,
		ModifiedTime: attrs.Updated,
	}
	return blob, nil
}

// Put implements pixbright.Storage interface
func (s *GCloudStorage) Put(ctx context.Context, key string, blob *pixbright.Blob) (err error) {
	defer func(start time.Time) { pixstorage.Observe("gcloud", "put", start, err) }(time.Now())
	key, ok := s.Path(key)
	if !ok {
		return pixbright.ErrInvalid
	}
	reader, _, err := blob.NewReader()
	if err != nil {
		return err
	}
	defer func() {
		_ = reader.Close()
	}()
	writer := s.client.Bucket(s.Bucket).Object(key).NewWriter(ctx)
	if s.ACL != "" {
		writer.PredefinedACL = s.ACL
	}
	writer.ContentType = blob.ContentType()
	if _, err = io.Copy(writer, reader); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

// Delete implements pixbright.Storage interface
func (s *GCloudStorage) Delete(ctx context.Context, key string) error {
	key, ok := s.Path(key)
	if !ok {
		return pixbright.ErrInvalid
	}
	return s.client.Bucket(s.Bucket).Object(key).Delete(ctx)
}

// Stat implements pixbright.Storage interface
func (s *GCloudStorage) Stat(ctx context.Context, key string) (*pixbright.Stat, error) {
	key, ok := s.Path(key)
	if !ok {
		return nil, pixbright.ErrInvalid
	}
	attrs, err := s.attrs(ctx, key)
	if err != nil {
		return nil, err
	}
	return &pixbright.Stat{
		Size:         attrs.Size,
		ETag:         attrs.Etag,
		ModifiedTime: attrs.Updated,
	}, nil
}
