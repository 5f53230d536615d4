package s3storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixRouter_BucketFor(t *testing.T) {
	tests := []struct {
		name           string
		rules          []PrefixRule
		key            string
		expectedBucket string
	}{
		{
			name:           "empty rules returns fallback",
			key:            "20/foo.png",
			expectedBucket: "default-bucket",
		},
		{
			name: "prefix match",
			rules: []PrefixRule{
				{Prefix: "20/", Bucket: "bright-bucket"},
				{Prefix: "-20/", Bucket: "dark-bucket"},
			},
			key:            "-20/foo.png",
			expectedBucket: "dark-bucket",
		},
		{
			name: "no match returns fallback",
			rules: []PrefixRule{
				{Prefix: "20/", Bucket: "bright-bucket"},
			},
			key:            "10/foo.png",
			expectedBucket: "default-bucket",
		},
		{
			name: "longest prefix wins",
			rules: []PrefixRule{
				{Prefix: "results/", Bucket: "results-bucket"},
				{Prefix: "results/20/", Bucket: "bright-bucket"},
			},
			key:            "results/20/foo.png",
			expectedBucket: "bright-bucket",
		},
		{
			name: "strips leading slashes",
			rules: []PrefixRule{
				{Prefix: "results/", Bucket: "results-bucket"},
			},
			key:            "///results/20/foo.png",
			expectedBucket: "results-bucket",
		},
		{
			name: "empty key returns fallback",
			rules: []PrefixRule{
				{Prefix: "results/", Bucket: "results-bucket"},
			},
			expectedBucket: "default-bucket",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewPrefixRouter(tt.rules, "default-bucket")
			assert.Equal(t, tt.expectedBucket, router.BucketFor(tt.key))
			assert.Equal(t, "default-bucket", router.Fallback())
		})
	}
}

func TestPrefixRouter_DoesNotMutateInput(t *testing.T) {
	rules := []PrefixRule{
		{Prefix: "b/", Bucket: "bucket-b"},
		{Prefix: "aa/", Bucket: "bucket-aa"},
	}
	NewPrefixRouter(rules, "default")
	assert.Equal(t, "b/", rules[0].Prefix)
}

func TestBucketRouterFunc(t *testing.T) {
	var router BucketRouter = BucketRouterFunc(func(key string) string {
		if len(key) > 0 && key[0] == '-' {
			return "dark"
		}
		return ""
	})
	assert.Equal(t, "dark", router.BucketFor("-10/foo.png"))
	assert.Empty(t, router.BucketFor("10/foo.png"))
}
