package maven

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"slices"
	"time"

	"artipub/internal/domain"
)

const lastUpdatedLayout = "20060102150405"

// Metadata is the artifact-level maven-metadata.xml.
type Metadata struct {
	XMLName      xml.Name   `xml:"metadata"`
	ModelVersion string     `xml:"modelVersion,attr,omitempty"`
	GroupID      string     `xml:"groupId"`
	ArtifactID   string     `xml:"artifactId"`
	Versioning   Versioning `xml:"versioning"`
}

type Versioning struct {
	Latest      string   `xml:"latest,omitempty"`
	Release     string   `xml:"release,omitempty"`
	Versions    []string `xml:"versions>version"`
	LastUpdated string   `xml:"lastUpdated,omitempty"`
}

// ErrMalformedMetadata marks a remote metadata file that cannot be merged into.
var ErrMalformedMetadata = errors.New("malformed " + MetadataFileName)

func NewMetadata(c domain.Coordinates) Metadata {
	return Metadata{ModelVersion: "1.1.0", GroupID: c.Group, ArtifactID: c.Artifact}
}

func ParseMetadata(data []byte) (Metadata, error) {
	var m Metadata
	if err := xml.Unmarshal(data, &m); err != nil {
		return Metadata{}, fmt.Errorf("%w: %w", ErrMalformedMetadata, err)
	}
	return m, nil
}

// Merge records c.Version as published at now. It is idempotent for the
// version list; latest always moves to c.Version and release only for
// non-snapshot versions.
func (m *Metadata) Merge(c domain.Coordinates, now time.Time) error {
	if m.GroupID == "" && m.ArtifactID == "" {
		m.GroupID, m.ArtifactID = c.Group, c.Artifact
	}
	if m.GroupID != c.Group || m.ArtifactID != c.Artifact {
		return fmt.Errorf("%w: describes %s:%s, not %s:%s", ErrMalformedMetadata, m.GroupID, m.ArtifactID, c.Group, c.Artifact)
	}
	if !slices.Contains(m.Versioning.Versions, c.Version) {
		m.Versioning.Versions = append(m.Versioning.Versions, c.Version)
	}
	m.Versioning.Latest = c.Version
	if !c.IsSnapshot() {
		m.Versioning.Release = c.Version
	}
	m.Versioning.LastUpdated = now.UTC().Format(lastUpdatedLayout)
	return nil
}

func (m Metadata) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	body, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", MetadataFileName, err)
	}
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
