// Package storage holds the key normalization and instrumentation shared by
// the file, S3 and Google Cloud storages.
package storage

import (
	"path"
	"strings"
)

const upperhex = "0123456789ABCDEF"

// SafeChars decides whether a byte of an image key needs escaping
type SafeChars interface {
	ShouldEscape(c byte) bool
}

type safeChars struct {
	chars map[byte]bool
	noop  bool
}

// NewSafeChars creates SafeChars excluding chars from escape.
// "--" disables escaping altogether.
func NewSafeChars(chars string) SafeChars {
	s := &safeChars{chars: map[byte]bool{}}
	if chars == "--" {
		s.noop = true
		return s
	}
	for i := 0; i < len(chars); i++ {
		s.chars[chars[i]] = true
	}
	return s
}

func (s *safeChars) ShouldEscape(c byte) bool {
	if s.noop {
		return false
	}
	if !DefaultShouldEscape(c) {
		return false
	}
	return !s.chars[c]
}

// DefaultShouldEscape escapes everything but alphanumerics, '/' and url marks
func DefaultShouldEscape(c byte) bool {
	if 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' {
		return false
	}
	switch c {
	case '/', '-', '_', '.', '~':
		return false
	}
	return true
}

func escape(s string, shouldEscape func(c byte) bool) string {
	hexCount := 0
	for i := 0; i < len(s); i++ {
		if shouldEscape(s[i]) {
			hexCount++
		}
	}
	if hexCount == 0 {
		return s
	}
	t := make([]byte, 0, len(s)+2*hexCount)
	for i := 0; i < len(s); i++ {
		if c := s[i]; shouldEscape(c) {
			t = append(t, '%', upperhex[c>>4], upperhex[c&15])
		} else {
			t = append(t, c)
		}
	}
	return string(t)
}

// Normalize cleans an image key into a storage friendly path without
// leading or trailing slash. The key is rooted before cleaning so it can
// never climb above the base directory.
func Normalize(key string, safeChars SafeChars) string {
	key = strings.Trim(path.Clean("/"+key), "/")
	if safeChars == nil {
		return escape(key, DefaultShouldEscape)
	}
	return escape(key, safeChars.ShouldEscape)
}

// WithPrefix cleans a prefix or base dir into "/a/b/" form, "/" if empty
func WithPrefix(prefix string) string {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix != "/" {
		prefix += "/"
	}
	return prefix
}
