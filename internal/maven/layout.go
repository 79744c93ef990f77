// Package maven renders the remote repository layout and the descriptor
// files published next to artifacts: the POM, module metadata and
// maven-metadata.xml.
package maven

import (
	"path"
	"strings"

	"artipub/internal/checksum"
	"artipub/internal/domain"
)

const MetadataFileName = "maven-metadata.xml"

// GroupPath turns "org.acme.tools" into "org/acme/tools".
func GroupPath(group string) string {
	return strings.ReplaceAll(group, ".", "/")
}

// Dir is the version directory of c, relative to the repository root.
func Dir(c domain.Coordinates) string {
	return path.Join(GroupPath(c.Group), c.Artifact, c.Version)
}

func FileName(c domain.Coordinates, classifier, extension string) string {
	name := c.Artifact + "-" + c.Version
	if classifier != "" {
		name += "-" + classifier
	}
	return name + "." + extension
}

// Layout resolves object keys below an optional repository prefix.
type Layout struct {
	Prefix string
}

func (l Layout) join(elem ...string) string {
	return path.Join(append([]string{strings.Trim(l.Prefix, "/")}, elem...)...)
}

func (l Layout) ArtifactKey(c domain.Coordinates, classifier, extension string) string {
	return l.join(Dir(c), FileName(c, classifier, extension))
}

func (l Layout) POMKey(c domain.Coordinates) string {
	return l.ArtifactKey(c, "", "pom")
}

func (l Layout) ModuleKey(c domain.Coordinates) string {
	return l.ArtifactKey(c, "", "module")
}

func (l Layout) MetadataKey(c domain.Coordinates) string {
	return l.join(GroupPath(c.Group), c.Artifact, MetadataFileName)
}

// ParsedKey is the result of mapping an object key back onto coordinates.
type ParsedKey struct {
	Coordinates domain.Coordinates
	Classifier  string
	Extension   string
	// Sidecar is set when the key is a checksum file; Extension then names
	// the artifact the checksum belongs to.
	Sidecar checksum.Algorithm
}

// ParseKey maps key back onto coordinates. It reports false for keys outside
// the prefix, metadata files and names that do not follow the layout.
func (l Layout) ParseKey(key string) (ParsedKey, bool) {
	key = strings.Trim(key, "/")
	if prefix := strings.Trim(l.Prefix, "/"); prefix != "" {
		if !strings.HasPrefix(key, prefix+"/") {
			return ParsedKey{}, false
		}
		key = strings.TrimPrefix(key, prefix+"/")
	}

	parts := strings.Split(key, "/")
	if len(parts) < 4 {
		return ParsedKey{}, false
	}
	file := parts[len(parts)-1]
	c := domain.Coordinates{
		Group:    strings.Join(parts[:len(parts)-3], "."),
		Artifact: parts[len(parts)-3],
		Version:  parts[len(parts)-2],
	}
	base := c.Artifact + "-" + c.Version
	if !strings.HasPrefix(file, base) {
		return ParsedKey{}, false
	}

	out := ParsedKey{Coordinates: c}
	rest := strings.TrimPrefix(file, base)
	for _, algo := range checksum.All {
		if strings.HasSuffix(rest, algo.Extension()) {
			out.Sidecar = algo
			rest = strings.TrimSuffix(rest, algo.Extension())
			break
		}
	}
	switch {
	case strings.HasPrefix(rest, "-"):
		classifier, ext, ok := strings.Cut(rest[1:], ".")
		if !ok || classifier == "" || ext == "" {
			return ParsedKey{}, false
		}
		out.Classifier, out.Extension = classifier, ext
	case strings.HasPrefix(rest, ".") && len(rest) > 1:
		out.Extension = rest[1:]
	default:
		return ParsedKey{}, false
	}
	return out, true
}
