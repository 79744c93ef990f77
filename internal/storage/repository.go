package storage

import (
	"fmt"
	"net/url"
	"strings"

	"artipub/internal/credentials"
)

const defaultEndpoint = "s3.amazonaws.com"

// Repository is a named remote S3 repository, as declared in a project file.
type Repository struct {
	Name        string               `json:"name" yaml:"name"`
	URL         string               `json:"url" yaml:"url"`
	Endpoint    string               `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Region      string               `json:"region,omitempty" yaml:"region,omitempty"`
	Profile     string               `json:"profile,omitempty" yaml:"profile,omitempty"`
	Credentials credentials.Explicit `json:"credentials,omitempty" yaml:"credentials,omitempty"`
}

// Location is the bucket and key prefix addressed by a repository URL.
type Location struct {
	Bucket string
	Prefix string
}

// ParseURL parses "s3://bucket/optional/prefix".
func ParseURL(raw string) (Location, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Location{}, fmt.Errorf("parse repository url %q: %w", raw, err)
	}
	if u.Scheme != "s3" {
		return Location{}, fmt.Errorf("repository url %q must use the s3:// scheme", raw)
	}
	if u.Host == "" {
		return Location{}, fmt.Errorf("repository url %q has no bucket", raw)
	}
	return Location{Bucket: u.Host, Prefix: strings.Trim(u.Path, "/")}, nil
}

// ResolveEndpoint returns the host[:port] to dial and whether TLS is used. An
// explicit http:// or https:// scheme wins; bare hosts use TLS.
func (r Repository) ResolveEndpoint() (host string, secure bool, err error) {
	raw := strings.TrimSpace(r.Endpoint)
	if raw == "" {
		return defaultEndpoint, true, nil
	}
	if !strings.Contains(raw, "://") {
		return strings.TrimRight(raw, "/"), true, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http":
		return u.Host, false, nil
	case "https":
		return u.Host, true, nil
	default:
		return "", false, fmt.Errorf("endpoint %q must use http or https", raw)
	}
}

func (r Repository) RegionOrDefault() string {
	if r.Region != "" {
		return r.Region
	}
	return "us-east-1"
}
