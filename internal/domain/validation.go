package domain

import (
	"strings"
)

func ValidateCoordinates(c Coordinates) ValidationResult {
	failed := make([]string, 0)

	for _, part := range []struct {
		name  string
		value string
	}{
		{"group", c.Group},
		{"artifact", c.Artifact},
		{"version", c.Version},
	} {
		switch {
		case strings.TrimSpace(part.value) == "":
			failed = append(failed, "coordinates."+part.name+"_present")
		case strings.ContainsAny(part.value, " \t\n/\\:"):
			failed = append(failed, "coordinates."+part.name+"_no_separators")
		}
	}
	if strings.Contains(c.Group, "..") || strings.HasPrefix(c.Group, ".") || strings.HasSuffix(c.Group, ".") {
		failed = append(failed, "coordinates.group_segments_non_empty")
	}

	return ValidationResult{FailedRules: failed}
}

func ValidatePublication(p Publication) ValidationResult {
	failed := ValidateCoordinates(p.Coordinates).FailedRules

	if len(p.Artifacts) == 0 {
		failed = append(failed, "publication.artifacts_present")
	}
	seen := make(map[string]struct{}, len(p.Artifacts))
	for _, a := range p.Artifacts {
		if strings.TrimSpace(a.Extension) == "" {
			failed = append(failed, "publication.artifact_extension_present")
		}
		if strings.TrimSpace(a.Path) == "" {
			failed = append(failed, "publication.artifact_path_present")
		}
		// The POM and .module are generated under the unclassified key.
		if a.Classifier == "" && (a.Extension == "pom" || a.Extension == "module") {
			failed = append(failed, "publication.artifact_not_descriptor")
		}
		id := a.Classifier + "." + a.Extension
		if _, dup := seen[id]; dup {
			failed = append(failed, "publication.artifact_unique")
		}
		seen[id] = struct{}{}
	}
	for _, d := range p.Dependencies {
		if d.Group == "" || d.Artifact == "" {
			failed = append(failed, "publication.dependency_coordinates_present")
		}
		switch d.Scope {
		case "", ScopeCompile, ScopeRuntime, ScopeProvided, ScopeTest:
		default:
			failed = append(failed, "publication.dependency_scope_known")
		}
	}

	return ValidationResult{FailedRules: failed}
}

func ValidationPassed(r ValidationResult) bool {
	return len(r.FailedRules) == 0
}
