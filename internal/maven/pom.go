package maven

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"artipub/internal/domain"
)

const (
	pomNamespace      = "http://maven.apache.org/POM/4.0.0"
	xsiNamespace      = "http://www.w3.org/2001/XMLSchema-instance"
	pomSchemaLocation = "http://maven.apache.org/POM/4.0.0 https://maven.apache.org/xsd/maven-4.0.0.xsd"

	// ModuleMetadataMarker tells consumers that a .module file sits next to the POM.
	ModuleMetadataMarker = "do_not_remove: published-with-module-metadata"
)

type POM struct {
	XMLName        xml.Name         `xml:"project"`
	Xmlns          string           `xml:"xmlns,attr"`
	XmlnsXsi       string           `xml:"xmlns:xsi,attr"`
	SchemaLocation string           `xml:"xsi:schemaLocation,attr"`
	ModelVersion   string           `xml:"modelVersion"`
	GroupID        string           `xml:"groupId"`
	ArtifactID     string           `xml:"artifactId"`
	Version        string           `xml:"version"`
	Packaging      string           `xml:"packaging,omitempty"`
	Name           string           `xml:"name,omitempty"`
	Description    string           `xml:"description,omitempty"`
	URL            string           `xml:"url,omitempty"`
	Licenses       *POMLicenses     `xml:"licenses,omitempty"`
	Dependencies   *POMDependencies `xml:"dependencies,omitempty"`
}

type POMLicenses struct {
	Licenses []POMLicense `xml:"license"`
}

type POMLicense struct {
	Name string `xml:"name"`
	URL  string `xml:"url,omitempty"`
}

type POMDependencies struct {
	Dependencies []POMDependency `xml:"dependency"`
}

type POMDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version,omitempty"`
	Scope      string `xml:"scope,omitempty"`
	Optional   bool   `xml:"optional,omitempty"`
}

func NewPOM(p domain.Publication) POM {
	pom := POM{
		Xmlns:          pomNamespace,
		XmlnsXsi:       xsiNamespace,
		SchemaLocation: pomSchemaLocation,
		ModelVersion:   "4.0.0",
		GroupID:        p.Coordinates.Group,
		ArtifactID:     p.Coordinates.Artifact,
		Version:        p.Coordinates.Version,
		Packaging:      p.PackagingOrDefault(),
		Name:           p.Name,
		Description:    p.Description,
		URL:            p.URL,
	}
	if len(p.Licenses) > 0 {
		pom.Licenses = &POMLicenses{}
		for _, l := range p.Licenses {
			pom.Licenses.Licenses = append(pom.Licenses.Licenses, POMLicense{Name: l.Name, URL: l.URL})
		}
	}
	if len(p.Dependencies) > 0 {
		pom.Dependencies = &POMDependencies{}
		for _, d := range p.Dependencies {
			scope := d.Scope
			if scope == "" {
				scope = domain.ScopeCompile
			}
			pom.Dependencies.Dependencies = append(pom.Dependencies.Dependencies, POMDependency{
				GroupID:    d.Group,
				ArtifactID: d.Artifact,
				Version:    d.Version,
				Scope:      string(scope),
				Optional:   d.Optional,
			})
		}
	}
	return pom
}

// Marshal renders the POM. withModuleMarker adds the comment that points
// consumers at the published module metadata.
func (p POM) Marshal(withModuleMarker bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if withModuleMarker {
		buf.WriteString("<!-- This module was also published with richer module metadata. -->\n")
		buf.WriteString("<!-- " + ModuleMetadataMarker + " -->\n")
	}
	body, err := xml.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal pom: %w", err)
	}
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func ParsePOM(data []byte) (POM, error) {
	var pom POM
	if err := xml.Unmarshal(data, &pom); err != nil {
		return POM{}, fmt.Errorf("parse pom: %w", err)
	}
	return pom, nil
}
