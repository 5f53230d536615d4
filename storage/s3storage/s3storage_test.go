package s3storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cshum/pixbright"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Storage_Path(t *testing.T) {
	tests := []struct {
		name           string
		bucket         string
		baseDir        string
		pathPrefix     string
		key            string
		safeChars      string
		expectedPath   string
		expectedBucket string
		expectedOk     bool
	}{
		{
			name:           "defaults ok",
			bucket:         "mybucket",
			key:            "/foo/bar",
			expectedBucket: "mybucket",
			expectedPath:   "/foo/bar",
			expectedOk:     true,
		},
		{
			name:           "escape unsafe chars",
			bucket:         "mybucket",
			key:            "/foo/b{:}ar",
			expectedBucket: "mybucket",
			expectedPath:   "/foo/b%7B%3A%7Dar",
			expectedOk:     true,
		},
		{
			name:           "escape safe chars",
			bucket:         "mybucket",
			key:            "/foo/b{:}\"ar",
			expectedBucket: "mybucket",
			expectedPath:   "/foo/b{%3A}\"ar",
			safeChars:      "{}",
			expectedOk:     true,
		},
		{
			name:           "path under with prefix",
			bucket:         "mybucket",
			baseDir:        "/home/pixbright",
			pathPrefix:     "/foo",
			key:            "/foo/bar",
			expectedBucket: "mybucket",
			expectedPath:   "/home/pixbright/bar",
			expectedOk:     true,
		},
		{
			name:           "path not under",
			bucket:         "mybucket",
			baseDir:        "/home/pixbright",
			pathPrefix:     "/foo",
			key:            "/fooo/bar",
			expectedBucket: "mybucket",
			expectedOk:     false,
		},
		{
			name:           "extract bucket base dir",
			bucket:         "mybucket/home/pixbright",
			pathPrefix:     "/foo",
			key:            "/foo/bar",
			expectedBucket: "mybucket",
			expectedPath:   "/home/pixbright/bar",
			expectedOk:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(aws.Config{Region: "us-east-1"}, tt.bucket,
				WithPathPrefix(tt.pathPrefix),
				WithBaseDir(tt.baseDir),
				WithSafeChars(tt.safeChars))
			res, ok := s.Path(tt.key)
			assert.Equal(t, tt.expectedOk, ok)
			assert.Equal(t, tt.expectedPath, res)
			assert.Equal(t, tt.expectedBucket, s.Bucket)
		})
	}
}

func TestOptions(t *testing.T) {
	s := New(aws.Config{Region: "us-east-1"}, "mybucket",
		WithACL("private"),
		WithStorageClass("STANDARD_IA"),
		WithExpiration(time.Hour),
		WithEndpoint("http://localhost:9000"),
		WithForcePathStyle(true),
	)
	assert.Equal(t, "private", s.ACL)
	assert.Equal(t, "STANDARD_IA", s.StorageClass)
	assert.Equal(t, time.Hour, s.Expiration)
	assert.Equal(t, "http://localhost:9000", s.Endpoint)
	assert.True(t, s.ForcePathStyle)

	s = New(aws.Config{Region: "us-east-1"}, "mybucket",
		WithACL("foo"), WithStorageClass("bar"))
	assert.Equal(t, "public-read", s.ACL)
	assert.Empty(t, s.StorageClass)
}

func fakeS3(t *testing.T, buckets ...string) (aws.Config, string) {
	ts := httptest.NewServer(gofakes3.New(s3mem.New()).Server())
	t.Cleanup(ts.Close)
	cfg := aws.Config{
		Region:      "eu-central-1",
		Credentials: credentials.NewStaticCredentialsProvider("YOUR-ACCESSKEYID", "YOUR-SECRETACCESSKEY", ""),
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(ts.URL)
		o.UsePathStyle = true
	})
	for _, bucket := range buckets {
		_, err := client.CreateBucket(context.Background(), &s3.CreateBucketInput{
			Bucket: aws.String(bucket),
		})
		require.NoError(t, err)
	}
	return cfg, ts.URL
}

func TestCRUD(t *testing.T) {
	cfg, endpoint := fakeS3(t, "test")
	ctx := context.Background()
	r := (&http.Request{}).WithContext(ctx)
	s := New(cfg, "test",
		WithEndpoint(endpoint), WithForcePathStyle(true),
		WithPathPrefix("/foo"), WithACL("public-read"))

	_, err := s.Get(r, "/bar/fooo/asdf")
	assert.Equal(t, pixbright.ErrInvalid, err)
	_, err = s.Stat(ctx, "/bar/fooo/asdf")
	assert.Equal(t, pixbright.ErrInvalid, err)
	assert.ErrorIs(t, s.Put(ctx, "/bar/fooo/asdf", pixbright.NewBlobFromBytes([]byte("bar"))), pixbright.ErrInvalid)
	assert.Equal(t, pixbright.ErrInvalid, s.Delete(ctx, "/bar/fooo/asdf"))

	b, err := s.Get(r, "/foo/fooo/asdf")
	require.NoError(t, err)
	_, err = b.ReadAll()
	assert.Equal(t, pixbright.ErrNotFound, err)

	require.NoError(t, s.Put(ctx, "/foo/fooo/asdf", pixbright.NewBlobFromBytes([]byte("bar"))))

	stat, err := s.Stat(ctx, "/foo/fooo/asdf")
	require.NoError(t, err)
	assert.True(t, stat.ModifiedTime.Before(time.Now()))
	assert.NotEmpty(t, stat.ETag)

	b, err = s.Get(r, "/foo/fooo/asdf")
	require.NoError(t, err)
	buf, err := b.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "bar", string(buf))
	require.NotNil(t, b.Stat)
	assert.Equal(t, stat.ModifiedTime, b.Stat.ModifiedTime)
	assert.Equal(t, stat.ETag, b.Stat.ETag)

	require.NoError(t, s.Delete(ctx, "/foo/fooo/asdf"))

	b, err = s.Get(r, "/foo/fooo/asdf")
	require.NoError(t, err)
	_, err = b.ReadAll()
	assert.Equal(t, pixbright.ErrNotFound, err)
	_, err = s.Stat(ctx, "/foo/fooo/asdf")
	assert.Equal(t, pixbright.ErrNotFound, err)
}

func TestBucketRouter(t *testing.T) {
	cfg, endpoint := fakeS3(t, "default", "dark")
	ctx := context.Background()
	s := New(cfg, "default",
		WithEndpoint(endpoint), WithForcePathStyle(true),
		WithBucketRouter(NewPrefixRouter([]PrefixRule{{Prefix: "-20/", Bucket: "dark"}}, "default")))

	require.NoError(t, s.Put(ctx, "-20/foo.png", pixbright.NewBlobFromBytes([]byte("dark"))))
	require.NoError(t, s.Put(ctx, "20/foo.png", pixbright.NewBlobFromBytes([]byte("bright"))))

	plain := New(cfg, "dark", WithEndpoint(endpoint), WithForcePathStyle(true))
	b, err := plain.Get(&http.Request{}, "-20/foo.png")
	require.NoError(t, err)
	buf, err := b.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "dark", string(buf))

	_, err = plain.Stat(ctx, "20/foo.png")
	assert.Equal(t, pixbright.ErrNotFound, err)
}

func TestExpiration(t *testing.T) {
	cfg, endpoint := fakeS3(t, "test")
	ctx := context.Background()
	s := New(cfg, "test", WithEndpoint(endpoint), WithForcePathStyle(true), WithExpiration(time.Second))

	require.NoError(t, s.Put(ctx, "/foo/bar/asdf", pixbright.NewBlobFromBytes([]byte("bar"))))
	b, err := s.Get(&http.Request{}, "/foo/bar/asdf")
	require.NoError(t, err)
	buf, err := b.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "bar", string(buf))

	time.Sleep(time.Second * 2)
	b, err = s.Get(&http.Request{}, "/foo/bar/asdf")
	require.NoError(t, err)
	_, err = b.ReadAll()
	assert.ErrorIs(t, err, pixbright.ErrExpired)
}
