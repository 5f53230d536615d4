package filestorage

import (
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/cshum/pixbright/storage"
)

// Option FileStorage option
type Option func(s *FileStorage)

// WithPathPrefix keys outside of prefix are passed to the next storage
func WithPathPrefix(prefix string) Option {
	return func(s *FileStorage) {
		if prefix != "" {
			s.PathPrefix = storage.WithPrefix(prefix)
		}
	}
}

// WithBlacklist rejects keys matching any of the patterns, in addition to dotfiles
func WithBlacklist(patterns ...*regexp.Regexp) Option {
	return func(s *FileStorage) {
		for _, p := range patterns {
			if p != nil {
				s.Blacklists = append(s.Blacklists, p)
			}
		}
	}
}

// parseFileMode parses octal strings such as 0755, ok false when empty or malformed
func parseFileMode(perm string) (os.FileMode, bool) {
	if perm == "" {
		return 0, false
	}
	mode, err := strconv.ParseUint(perm, 8, 32)
	if err != nil {
		return 0, false
	}
	return os.FileMode(mode), true
}

// WithMkdirPermission directory permission of Put, e.g. 0755
func WithMkdirPermission(perm string) Option {
	return func(s *FileStorage) {
		if mode, ok := parseFileMode(perm); ok {
			s.MkdirPermission = mode
		}
	}
}

// WithWritePermission file permission of Put, e.g. 0666
func WithWritePermission(perm string) Option {
	return func(s *FileStorage) {
		if mode, ok := parseFileMode(perm); ok {
			s.WritePermission = mode
		}
	}
}

// WithSaveErrIfExists makes Put fail on existing files instead of overwriting
func WithSaveErrIfExists(enabled bool) Option {
	return func(s *FileStorage) {
		s.SaveErrIfExists = enabled
	}
}

// WithSafeChars characters excluded from key escaping, "--" disables escaping
func WithSafeChars(chars string) Option {
	return func(s *FileStorage) {
		if chars != "" {
			s.SafeChars = chars
		}
	}
}

// WithExpiration treats files older than exp as expired
func WithExpiration(exp time.Duration) Option {
	return func(s *FileStorage) {
		if exp > 0 {
			s.Expiration = exp
		}
	}
}
