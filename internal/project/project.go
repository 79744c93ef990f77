// Package project loads the artipub.yaml project descriptor.
package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"artipub/internal/deprecation"
	"artipub/internal/domain"
	"artipub/internal/storage"
)

const DefaultFileName = "artipub.yaml"

var ErrUnknownRepository = errors.New("unknown repository")

// File mirrors the YAML document.
type File struct {
	Group          string               `yaml:"group"`
	Name           string               `yaml:"name"`
	Version        string               `yaml:"version"`
	Packaging      string               `yaml:"packaging,omitempty"`
	Description    string               `yaml:"description,omitempty"`
	URL            string               `yaml:"url,omitempty"`
	Licenses       []domain.License     `yaml:"licenses,omitempty"`
	Dependencies   []domain.Dependency  `yaml:"dependencies,omitempty"`
	Artifacts      []domain.Artifact    `yaml:"artifacts"`
	Repositories   []storage.Repository `yaml:"repositories"`
	ModuleMetadata *bool                `yaml:"moduleMetadata,omitempty"`
	SHA1Only       bool                 `yaml:"sha1Only,omitempty"`
	LegacyLayout   *bool                `yaml:"legacyLayout,omitempty"`
}

type Project struct {
	Path         string
	Publication  domain.Publication
	Repositories []storage.Repository
}

// Load reads path, applies overrides and resolves artifact paths against
// the directory holding the file.
func Load(ctx context.Context, path string, overrides map[string]string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project file: %w", err)
	}
	return Parse(ctx, data, filepath.Dir(path), path, overrides)
}

func Parse(ctx context.Context, data []byte, dir, name string, overrides map[string]string) (*Project, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if err := f.apply(overrides); err != nil {
		return nil, err
	}

	if f.LegacyLayout != nil {
		deprecation.NagUserWith(ctx, deprecation.SpecificThing("The 'legacyLayout' project key").
			WithContext("Repositories always use the Maven 2 layout and the key has no effect.").
			WithAdvice("Remove it from "+filepath.Base(name)+".").
			WithDocumentation("legacy_layout"))
	}

	moduleMetadata := true
	if f.ModuleMetadata != nil {
		moduleMetadata = *f.ModuleMetadata
	}

	artifacts := make([]domain.Artifact, 0, len(f.Artifacts))
	for _, a := range f.Artifacts {
		if a.Path != "" && !filepath.IsAbs(a.Path) {
			a.Path = filepath.Join(dir, a.Path)
		}
		artifacts = append(artifacts, a)
	}

	return &Project{
		Path: name,
		Publication: domain.Publication{
			Coordinates:    domain.Coordinates{Group: f.Group, Artifact: f.Name, Version: f.Version},
			Packaging:      f.Packaging,
			Name:           f.Name,
			Description:    f.Description,
			URL:            f.URL,
			Licenses:       f.Licenses,
			Dependencies:   f.Dependencies,
			Artifacts:      artifacts,
			ModuleMetadata: moduleMetadata,
			SHA1Only:       f.SHA1Only,
		},
		Repositories: f.Repositories,
	}, nil
}

// Repository picks a repository by name. An empty name is allowed when the
// project declares exactly one.
func (p *Project) Repository(name string) (storage.Repository, error) {
	if name == "" {
		if len(p.Repositories) == 1 {
			return p.Repositories[0], nil
		}
		return storage.Repository{}, fmt.Errorf("%d repositories declared, choose one with --repository", len(p.Repositories))
	}
	for _, r := range p.Repositories {
		if r.Name == name {
			return r, nil
		}
	}
	return storage.Repository{}, fmt.Errorf("%w '%s'", ErrUnknownRepository, name)
}

// ParseOverrides turns "key=value" pairs into a map. Later pairs win.
func ParseOverrides(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("property %q is not key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}

func (f *File) apply(overrides map[string]string) error {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := overrides[key]
		switch key {
		case "group":
			f.Group = value
		case "name":
			f.Name = value
		case "version":
			f.Version = value
		case "description":
			f.Description = value
		default:
			if err := f.applyRepository(key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyRepository handles repository.<name>.<field>, declaring the
// repository when the file does not.
func (f *File) applyRepository(key, value string) error {
	rest, ok := strings.CutPrefix(key, "repository.")
	if !ok {
		return fmt.Errorf("unknown property %q", key)
	}
	idx := strings.LastIndex(rest, ".")
	if idx <= 0 {
		return fmt.Errorf("unknown property %q", key)
	}
	name, field := rest[:idx], rest[idx+1:]

	repo := f.repository(name)
	switch field {
	case "url":
		repo.URL = value
	case "endpoint":
		repo.Endpoint = value
	case "region":
		repo.Region = value
	case "profile":
		repo.Profile = value
	default:
		return fmt.Errorf("unknown property %q", key)
	}
	return nil
}

func (f *File) repository(name string) *storage.Repository {
	for i := range f.Repositories {
		if f.Repositories[i].Name == name {
			return &f.Repositories[i]
		}
	}
	f.Repositories = append(f.Repositories, storage.Repository{Name: name})
	return &f.Repositories[len(f.Repositories)-1]
}
