package events

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"artipub/internal/checksum"
	"artipub/internal/publish"
	"artipub/internal/storage"
)

// Outcome of checking one sidecar against the artifact it belongs to.
type Outcome string

const (
	OutcomeSkipped  Outcome = "skipped"
	OutcomeVerified Outcome = "verified"
	OutcomeMismatch Outcome = "mismatch"
	OutcomeMissing  Outcome = "missing"
)

// SidecarVerifier checks freshly written checksum files. Sidecars are
// uploaded after their artifact, so a sidecar event is the point at which
// both objects exist.
type SidecarVerifier struct {
	store  publish.ObjectReader
	logger zerolog.Logger
}

func NewSidecarVerifier(store publish.ObjectReader, logger zerolog.Logger) *SidecarVerifier {
	return &SidecarVerifier{store: store, logger: logger}
}

// Handle never fails on a bad checksum; it logs and moves on so one broken
// upload does not stop the stream. Only read errors are returned.
func (v *SidecarVerifier) Handle(ctx context.Context, event ArtifactEvent) error {
	_, err := v.Verify(ctx, event)
	return err
}

func (v *SidecarVerifier) Verify(ctx context.Context, event ArtifactEvent) (Outcome, error) {
	algo := event.Parsed.Sidecar
	if algo == "" {
		return OutcomeSkipped, nil
	}
	artifactKey := strings.TrimSuffix(event.ObjectKey, algo.Extension())

	content, err := v.store.GetObject(ctx, artifactKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		v.logger.Warn().
			Str("object_key", event.ObjectKey).
			Str("artifact_key", artifactKey).
			Msg("checksum file without artifact")
		return OutcomeMissing, nil
	}
	if err != nil {
		return "", err
	}

	sidecar, err := v.store.GetObject(ctx, event.ObjectKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return OutcomeMissing, nil
	}
	if err != nil {
		return "", err
	}

	if err := checksum.Verify(content, sidecar, algo); err != nil {
		v.logger.Error().
			Err(err).
			Str("artifact_key", artifactKey).
			Str("coordinates", event.Parsed.Coordinates.String()).
			Str("algorithm", string(algo)).
			Msg("checksum mismatch")
		return OutcomeMismatch, nil
	}

	v.logger.Debug().
		Str("artifact_key", artifactKey).
		Str("algorithm", string(algo)).
		Msg("checksum verified")
	return OutcomeVerified, nil
}
