package awsconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/cshum/pixbright/storage/s3storage"
	"gopkg.in/yaml.v3"
)

// routerFile is the YAML layout of a bucket router:
//
//	default_bucket: results
//	rules:
//	  - prefix: "-50/"
//	    bucket: results-dark
type routerFile struct {
	DefaultBucket string       `yaml:"default_bucket"`
	Rules         []routerRule `yaml:"rules"`
}

type routerRule struct {
	Prefix string `yaml:"prefix"`
	Bucket string `yaml:"bucket"`
}

// LoadBucketRouterFromYAML reads a prefix router from path.
// Unknown fields and rules without a bucket are rejected.
func LoadBucketRouterFromYAML(path string) (*s3storage.PrefixRouter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var file routerFile
	if err = dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("bucket router %s: %w", path, err)
	}
	rules := make([]s3storage.PrefixRule, len(file.Rules))
	for i, rule := range file.Rules {
		if rule.Bucket == "" {
			return nil, fmt.Errorf("bucket router %s: rule %d has no bucket", path, i)
		}
		rules[i] = s3storage.PrefixRule{
			Prefix: strings.TrimLeft(rule.Prefix, "/"),
			Bucket: rule.Bucket,
		}
	}
	return s3storage.NewPrefixRouter(rules, file.DefaultBucket), nil
}
