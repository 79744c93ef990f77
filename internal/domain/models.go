package domain

import (
	"fmt"
	"strings"
	"time"
)

type Coordinates struct {
	Group    string `json:"group" yaml:"group"`
	Artifact string `json:"artifact" yaml:"artifact"`
	Version  string `json:"version" yaml:"version"`
}

func (c Coordinates) String() string {
	return c.Group + ":" + c.Artifact + ":" + c.Version
}

func (c Coordinates) IsSnapshot() bool {
	return strings.HasSuffix(c.Version, "-SNAPSHOT")
}

// ParseCoordinates parses "group:artifact:version".
func ParseCoordinates(v string) (Coordinates, error) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) != 3 {
		return Coordinates{}, fmt.Errorf("%w: %q is not group:artifact:version", ErrInvalidCoordinates, v)
	}
	c := Coordinates{Group: parts[0], Artifact: parts[1], Version: parts[2]}
	if res := ValidateCoordinates(c); !ValidationPassed(res) {
		return Coordinates{}, fmt.Errorf("%w: %q fails %s", ErrInvalidCoordinates, v, strings.Join(res.FailedRules, ", "))
	}
	return c, nil
}

// Artifact is a local file published under the module's coordinates.
type Artifact struct {
	Classifier string `json:"classifier,omitempty" yaml:"classifier,omitempty"`
	Extension  string `json:"extension" yaml:"extension"`
	Path       string `json:"path" yaml:"path"`
}

type Dependency struct {
	Group    string          `json:"group" yaml:"group"`
	Artifact string          `json:"artifact" yaml:"artifact"`
	Version  string          `json:"version" yaml:"version"`
	Scope    DependencyScope `json:"scope,omitempty" yaml:"scope,omitempty"`
	Optional bool            `json:"optional,omitempty" yaml:"optional,omitempty"`
}

type License struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`
}

type Publication struct {
	Coordinates    Coordinates  `json:"coordinates"`
	Packaging      string       `json:"packaging,omitempty"`
	Name           string       `json:"name,omitempty"`
	Description    string       `json:"description,omitempty"`
	URL            string       `json:"url,omitempty"`
	Licenses       []License    `json:"licenses,omitempty"`
	Dependencies   []Dependency `json:"dependencies,omitempty"`
	Artifacts      []Artifact   `json:"artifacts"`
	ModuleMetadata bool         `json:"module_metadata"`
	// SHA1Only restricts sidecars to .sha1, the pre-1.0 behavior.
	SHA1Only bool `json:"sha1_only,omitempty"`
}

// PackagingOrDefault returns the POM packaging, "jar" when unset.
func (p Publication) PackagingOrDefault() string {
	if p.Packaging != "" {
		return p.Packaging
	}
	return "jar"
}

type PublishedFile struct {
	Key    string `json:"key"`
	Size   int64  `json:"size"`
	SHA1   string `json:"sha1,omitempty"`
	SHA256 string `json:"sha256,omitempty"`
	SHA512 string `json:"sha512,omitempty"`
	MD5    string `json:"md5,omitempty"`
}

type PublicationRecord struct {
	ID          string            `json:"id"`
	Coordinates Coordinates       `json:"coordinates"`
	Repository  string            `json:"repository"`
	Status      PublicationStatus `json:"status"`
	Files       []PublishedFile   `json:"files,omitempty"`
	Error       *string           `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type DeprecationRecord struct {
	PublicationID string    `json:"publication_id,omitempty"`
	Summary       string    `json:"summary"`
	Message       string    `json:"message"`
	Location      string    `json:"location,omitempty"`
	At            time.Time `json:"at"`
}

type ValidationResult struct {
	FailedRules []string `json:"failed_rules"`
}
