package temporal

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"artipub/internal/checksum"
	"artipub/internal/credentials"
	"artipub/internal/domain"
	"artipub/internal/logging"
	"artipub/internal/maven"
	"artipub/internal/publish"
	"artipub/internal/storage"
)

const (
	errTypeCredentials        = "CredentialsNotFound"
	errTypeUnknownRepository  = "UnknownRepository"
	errTypeInvalid            = "InvalidPublication"
	errTypeArtifactUnreadable = "ArtifactUnreadable"
	errTypeMalformedMetadata  = "MalformedMetadata"
)

type Ledger interface {
	MarkUploading(ctx context.Context, id string) error
	MarkPublished(ctx context.Context, id string, files []domain.PublishedFile) error
	MarkFailed(ctx context.Context, id string, reason string) error
	InsertDeprecation(ctx context.Context, rec domain.DeprecationRecord) error
}

// StoreOpener connects to a repository with already resolved credentials.
type StoreOpener func(ctx context.Context, repo storage.Repository, creds credentials.Resolved) (publish.ObjectStore, storage.Location, error)

func OpenMinio(ctx context.Context, repo storage.Repository, creds credentials.Resolved) (publish.ObjectStore, storage.Location, error) {
	store, loc, err := storage.OpenRepository(ctx, repo, creds.Credentials(), nil)
	if err != nil {
		return nil, storage.Location{}, err
	}
	return store, loc, nil
}

type Activities struct {
	Ledger       Ledger
	Repositories []storage.Repository
	Open         StoreOpener
	Publish      []publish.Option
}

type ResolveCredentialsInput struct {
	PublicationID string
	Repository    string
	SHA1Only      bool
}

type ResolveCredentialsOutput struct {
	Source     string
	Algorithms []checksum.Algorithm
}

type UploadArtifactInput struct {
	Repository  string
	Coordinates domain.Coordinates
	Artifact    domain.Artifact
	Algorithms  []checksum.Algorithm
}

type UploadDescriptorsInput struct {
	Repository  string
	Publication domain.Publication
	Files       map[string]domain.PublishedFile
	Algorithms  []checksum.Algorithm
}

type UpdateMetadataInput struct {
	Repository  string
	Coordinates domain.Coordinates
	Algorithms  []checksum.Algorithm
}

type RecordResultInput struct {
	PublicationID string
	Files         []domain.PublishedFile
	Error         string
}

// ResolveCredentialsActivity fails fast, without retries, when the
// repository is unknown or no credential source yields keys.
func (a *Activities) ResolveCredentialsActivity(ctx context.Context, input ResolveCredentialsInput) (ResolveCredentialsOutput, error) {
	repo, err := a.repository(input.Repository)
	if err != nil {
		return ResolveCredentialsOutput{}, err
	}
	resolved, err := resolve(repo)
	if err != nil {
		return ResolveCredentialsOutput{}, err
	}

	if err := a.Ledger.MarkUploading(ctx, input.PublicationID); err != nil {
		return ResolveCredentialsOutput{}, err
	}

	algos := publish.SidecarAlgorithms(ctx, domain.Publication{SHA1Only: input.SHA1Only})
	if input.SHA1Only {
		msg := publish.SHA1OnlyDeprecation().Build()
		if err := a.Ledger.InsertDeprecation(ctx, domain.DeprecationRecord{
			PublicationID: input.PublicationID,
			Summary:       msg.Summary,
			Message:       msg.String(),
		}); err != nil {
			return ResolveCredentialsOutput{}, err
		}
	}

	log := logging.L()
	log.Info().
		Str("publication_id", input.PublicationID).
		Str("repository", repo.Name).
		Str("source", resolved.Source).
		Msg("credentials resolved")
	return ResolveCredentialsOutput{Source: resolved.Source, Algorithms: algos}, nil
}

func (a *Activities) UploadArtifactActivity(ctx context.Context, input UploadArtifactInput) (publish.Upload, error) {
	p, err := a.publisher(ctx, input.Repository)
	if err != nil {
		return publish.Upload{}, err
	}
	up, err := p.UploadArtifact(ctx, input.Coordinates, input.Artifact, input.Algorithms)
	return up, permanent(err)
}

func (a *Activities) UploadDescriptorsActivity(ctx context.Context, input UploadDescriptorsInput) (publish.Upload, error) {
	p, err := a.publisher(ctx, input.Repository)
	if err != nil {
		return publish.Upload{}, err
	}
	return p.UploadDescriptors(ctx, input.Publication, input.Files, input.Algorithms)
}

func (a *Activities) UpdateMetadataActivity(ctx context.Context, input UpdateMetadataInput) (publish.Upload, error) {
	p, err := a.publisher(ctx, input.Repository)
	if err != nil {
		return publish.Upload{}, err
	}
	up, err := p.UpdateMetadata(ctx, input.Coordinates, input.Algorithms)
	return up, permanent(err)
}

func (a *Activities) RecordResultActivity(ctx context.Context, input RecordResultInput) error {
	if input.Error != "" {
		return a.Ledger.MarkFailed(ctx, input.PublicationID, input.Error)
	}
	return a.Ledger.MarkPublished(ctx, input.PublicationID, input.Files)
}

func (a *Activities) repository(name string) (storage.Repository, error) {
	for _, r := range a.Repositories {
		if r.Name == name {
			return r, nil
		}
	}
	return storage.Repository{}, temporal.NewNonRetryableApplicationError(
		fmt.Sprintf("repository '%s' is not configured", name), errTypeUnknownRepository, nil)
}

func resolve(repo storage.Repository) (credentials.Resolved, error) {
	resolved, err := credentials.Resolve(credentials.Request{
		Repository: repo.Name,
		Explicit:   repo.Credentials,
		Profile:    repo.Profile,
	})
	var resolveErr *credentials.ResolveError
	if errors.As(err, &resolveErr) {
		return credentials.Resolved{}, temporal.NewNonRetryableApplicationError(resolveErr.Error(), errTypeCredentials, resolveErr)
	}
	return resolved, err
}

// permanent marks failures that another attempt cannot fix as non-retryable.
func permanent(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, publish.ErrUnreadableArtifact):
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypeArtifactUnreadable, err)
	case errors.Is(err, maven.ErrMalformedMetadata):
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypeMalformedMetadata, err)
	}
	return err
}

func (a *Activities) publisher(ctx context.Context, name string) (*publish.Publisher, error) {
	repo, err := a.repository(name)
	if err != nil {
		return nil, err
	}
	resolved, err := resolve(repo)
	if err != nil {
		return nil, err
	}
	open := a.Open
	if open == nil {
		open = OpenMinio
	}
	store, loc, err := open(ctx, repo, resolved)
	if err != nil {
		return nil, err
	}
	return publish.New(store, maven.Layout{Prefix: loc.Prefix}, a.Publish...), nil
}
