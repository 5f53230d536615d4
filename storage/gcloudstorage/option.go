package gcloudstorage

import (
	"strings"
	"time"

	pixstorage "github.com/cshum/pixbright/storage"
)

// Option GCloudStorage option
type Option func(s *GCloudStorage)

// predefinedACLs accepted by objects.insert
// https://cloud.google.com/storage/docs/json_api/v1/objects/insert
var predefinedACLs = map[string]bool{
	"authenticatedRead":      true,
	"bucketOwnerFullControl": true,
	"bucketOwnerRead":        true,
	"private":                true,
	"projectPrivate":         true,
	"publicRead":             true,
}

// WithBaseDir object name prefix inside the bucket
func WithBaseDir(baseDir string) Option {
	return func(s *GCloudStorage) {
		if dir := strings.Trim(baseDir, "/"); dir != "" {
			s.BaseDir = dir
		}
	}
}

// WithPathPrefix keys outside of prefix are passed to the next storage
func WithPathPrefix(prefix string) Option {
	return func(s *GCloudStorage) {
		if prefix != "" {
			s.PathPrefix = pixstorage.WithPrefix(prefix)
		}
	}
}

// WithACL predefined ACL of Put e.g. publicRead, unknown values keep the bucket default
func WithACL(acl string) Option {
	return func(s *GCloudStorage) {
		if predefinedACLs[acl] {
			s.ACL = acl
		}
	}
}

// WithSafeChars characters excluded from key escaping, "--" disables escaping
func WithSafeChars(chars string) Option {
	return func(s *GCloudStorage) {
		if chars != "" {
			s.SafeChars = chars
		}
	}
}

// WithExpiration treats objects updated longer than exp ago as expired
func WithExpiration(exp time.Duration) Option {
	return func(s *GCloudStorage) {
		if exp > 0 {
			s.Expiration = exp
		}
	}
}
