package maven

import (
	"encoding/json"
	"fmt"

	"artipub/internal/buildinfo"
	"artipub/internal/domain"
)

const ModuleFormatVersion = "1.1"

type ModuleMetadata struct {
	FormatVersion string                       `json:"formatVersion"`
	Component     ModuleComponent              `json:"component"`
	CreatedBy     map[string]map[string]string `json:"createdBy"`
	Variants      []ModuleVariant              `json:"variants"`
}

type ModuleComponent struct {
	Group      string            `json:"group"`
	Module     string            `json:"module"`
	Version    string            `json:"version"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type ModuleVariant struct {
	Name         string             `json:"name"`
	Attributes   map[string]string  `json:"attributes,omitempty"`
	Dependencies []ModuleDependency `json:"dependencies,omitempty"`
	Files        []ModuleFile       `json:"files"`
}

type ModuleDependency struct {
	Group   string            `json:"group"`
	Module  string            `json:"module"`
	Version map[string]string `json:"version,omitempty"`
}

type ModuleFile struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Size   int64  `json:"size"`
	SHA512 string `json:"sha512"`
	SHA256 string `json:"sha256"`
	SHA1   string `json:"sha1"`
	MD5    string `json:"md5"`
}

// NewModuleMetadata describes the publication's variants. files maps the
// artifact identity ("classifier.extension") to its published description.
func NewModuleMetadata(p domain.Publication, files map[string]domain.PublishedFile) ModuleMetadata {
	c := p.Coordinates
	status := "release"
	if c.IsSnapshot() {
		status = "integration"
	}
	meta := ModuleMetadata{
		FormatVersion: ModuleFormatVersion,
		Component: ModuleComponent{
			Group:      c.Group,
			Module:     c.Artifact,
			Version:    c.Version,
			Attributes: map[string]string{"org.gradle.status": status},
		},
		CreatedBy: map[string]map[string]string{
			buildinfo.ToolName: {"version": buildinfo.Version},
		},
	}

	var api, runtime []ModuleDependency
	for _, d := range p.Dependencies {
		dep := ModuleDependency{Group: d.Group, Module: d.Artifact}
		if d.Version != "" {
			dep.Version = map[string]string{"requires": d.Version}
		}
		switch d.Scope {
		case "", domain.ScopeCompile:
			api = append(api, dep)
			runtime = append(runtime, dep)
		case domain.ScopeRuntime:
			runtime = append(runtime, dep)
		}
	}

	for _, a := range p.Artifacts {
		published, ok := files[ArtifactID(a)]
		if !ok {
			continue
		}
		file := ModuleFile{
			Name:   FileName(c, a.Classifier, a.Extension),
			URL:    FileName(c, a.Classifier, a.Extension),
			Size:   published.Size,
			SHA512: published.SHA512,
			SHA256: published.SHA256,
			SHA1:   published.SHA1,
			MD5:    published.MD5,
		}
		if a.Classifier == "" {
			meta.Variants = append(meta.Variants,
				ModuleVariant{
					Name:         "apiElements",
					Attributes:   map[string]string{"org.gradle.usage": "java-api", "org.gradle.category": "library"},
					Dependencies: api,
					Files:        []ModuleFile{file},
				},
				ModuleVariant{
					Name:         "runtimeElements",
					Attributes:   map[string]string{"org.gradle.usage": "java-runtime", "org.gradle.category": "library"},
					Dependencies: runtime,
					Files:        []ModuleFile{file},
				},
			)
			continue
		}
		meta.Variants = append(meta.Variants, ModuleVariant{
			Name:       a.Classifier + "Elements",
			Attributes: map[string]string{"org.gradle.category": "documentation", "org.gradle.docstype": a.Classifier},
			Files:      []ModuleFile{file},
		})
	}
	return meta
}

// ArtifactID identifies an artifact within one publication.
func ArtifactID(a domain.Artifact) string {
	return a.Classifier + "." + a.Extension
}

func (m ModuleMetadata) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal module metadata: %w", err)
	}
	return append(data, '\n'), nil
}

func ParseModuleMetadata(data []byte) (ModuleMetadata, error) {
	var m ModuleMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return ModuleMetadata{}, fmt.Errorf("parse module metadata: %w", err)
	}
	return m, nil
}
