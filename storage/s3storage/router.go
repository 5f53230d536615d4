package s3storage

import (
	"slices"
	"strings"
)

// BucketRouter picks the bucket of an object key, empty for the storage Bucket
type BucketRouter interface {
	BucketFor(key string) string
}

// BucketRouterFunc adapts a func to BucketRouter
type BucketRouterFunc func(key string) string

// BucketFor implements BucketRouter
func (f BucketRouterFunc) BucketFor(key string) string {
	return f(key)
}

// PrefixRule routes keys starting with Prefix to Bucket
type PrefixRule struct {
	Prefix string
	Bucket string
}

// PrefixRouter matches the longest prefix first, ties keep their given order
type PrefixRouter struct {
	rules    []PrefixRule
	fallback string
}

// NewPrefixRouter creates PrefixRouter, rules is copied
func NewPrefixRouter(rules []PrefixRule, fallback string) *PrefixRouter {
	r := &PrefixRouter{rules: slices.Clone(rules), fallback: fallback}
	slices.SortStableFunc(r.rules, func(a, b PrefixRule) int {
		return len(b.Prefix) - len(a.Prefix)
	})
	return r
}

// BucketFor implements BucketRouter, leading slashes of key are ignored
func (r *PrefixRouter) BucketFor(key string) string {
	key = strings.TrimLeft(key, "/")
	if i := slices.IndexFunc(r.rules, func(rule PrefixRule) bool {
		return strings.HasPrefix(key, rule.Prefix)
	}); i >= 0 {
		return r.rules[i].Bucket
	}
	return r.fallback
}

// Fallback bucket of keys matching no rule
func (r *PrefixRouter) Fallback() string {
	return r.fallback
}
