// Package publish uploads a publication to a Maven layout repository.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"artipub/internal/checksum"
	"artipub/internal/deprecation"
	"artipub/internal/domain"
	"artipub/internal/logging"
	"artipub/internal/maven"
	"artipub/internal/storage"
)

var (
	ErrInvalidPublication = errors.New("invalid publication")
	// ErrUnreadableArtifact wraps local read failures for an artifact file.
	ErrUnreadableArtifact = errors.New("read artifact")
)

// ObjectStore is the remote side of a repository. GetObject must wrap
// storage.ErrObjectNotFound for missing keys.
type ObjectStore interface {
	PutObject(ctx context.Context, objectKey string, content []byte, contentType string) error
	GetObject(ctx context.Context, objectKey string) ([]byte, error)
}

type Publisher struct {
	store  ObjectStore
	layout maven.Layout
	now    func() time.Time
	logger zerolog.Logger
}

type Option func(*Publisher)

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

func New(store ObjectStore, layout maven.Layout, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		layout: layout,
		now:    time.Now,
		logger: logging.L().With().Str("component", "publisher").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Upload is the outcome of one or more publishing steps.
type Upload struct {
	// Keys lists every object written, sidecars included, in upload order.
	Keys []string `json:"keys"`
	// Files describes the primary objects with their digests.
	Files []domain.PublishedFile `json:"files"`
}

func (u *Upload) add(other Upload) {
	u.Keys = append(u.Keys, other.Keys...)
	u.Files = append(u.Files, other.Files...)
}

type Result struct {
	Coordinates domain.Coordinates `json:"coordinates"`
	Upload
}

// Publish validates pub and uploads its artifacts, POM, optional module
// metadata and the merged maven-metadata.xml, each followed by its sidecars.
func (p *Publisher) Publish(ctx context.Context, pub domain.Publication) (Result, error) {
	if err := Validate(pub); err != nil {
		return Result{}, err
	}
	algos := SidecarAlgorithms(ctx, pub)

	res := Result{Coordinates: pub.Coordinates}
	byID := make(map[string]domain.PublishedFile, len(pub.Artifacts))
	for _, a := range pub.Artifacts {
		up, err := p.UploadArtifact(ctx, pub.Coordinates, a, algos)
		if err != nil {
			return res, err
		}
		res.add(up)
		byID[maven.ArtifactID(a)] = up.Files[0]
	}

	up, err := p.UploadDescriptors(ctx, pub, byID, algos)
	if err != nil {
		return res, err
	}
	res.add(up)

	up, err = p.UpdateMetadata(ctx, pub.Coordinates, algos)
	if err != nil {
		return res, err
	}
	res.add(up)

	p.logger.Info().
		Str("coordinates", pub.Coordinates.String()).
		Int("objects", len(res.Keys)).
		Msg("publication uploaded")
	return res, nil
}

// Validate applies the domain rules and folds failures into one error.
func Validate(pub domain.Publication) error {
	result := domain.ValidatePublication(pub)
	if domain.ValidationPassed(result) {
		return nil
	}
	return fmt.Errorf("%w %s: %s", ErrInvalidPublication, pub.Coordinates, strings.Join(result.FailedRules, ", "))
}

// SidecarAlgorithms returns the checksum files to publish, nagging when the
// legacy SHA-1 only mode is requested.
func SidecarAlgorithms(ctx context.Context, pub domain.Publication) []checksum.Algorithm {
	if !pub.SHA1Only {
		return checksum.All
	}
	deprecation.NagUserWith(ctx, SHA1OnlyDeprecation())
	return []checksum.Algorithm{checksum.SHA1}
}

func SHA1OnlyDeprecation() *deprecation.MessageBuilder {
	return deprecation.Behaviour("Publishing only SHA-1 checksum files.").
		WithAdvice("Remove 'sha1Only' from the project file to publish SHA-256, SHA-512 and MD5 files as well.").
		WithDocumentation("sha1_only")
}

func (p *Publisher) UploadArtifact(ctx context.Context, c domain.Coordinates, a domain.Artifact, algos []checksum.Algorithm) (Upload, error) {
	content, err := os.ReadFile(a.Path)
	if err != nil {
		return Upload{}, fmt.Errorf("%w %s: %w", ErrUnreadableArtifact, a.Path, err)
	}
	return p.put(ctx, p.layout.ArtifactKey(c, a.Classifier, a.Extension), content, ContentType(a.Extension), algos)
}

// UploadDescriptors writes the POM and, when enabled, the module metadata.
// files maps maven.ArtifactID to the already uploaded artifacts.
func (p *Publisher) UploadDescriptors(ctx context.Context, pub domain.Publication, files map[string]domain.PublishedFile, algos []checksum.Algorithm) (Upload, error) {
	var out Upload

	pom, err := maven.NewPOM(pub).Marshal(pub.ModuleMetadata)
	if err != nil {
		return out, err
	}
	up, err := p.put(ctx, p.layout.POMKey(pub.Coordinates), pom, ContentType("pom"), algos)
	if err != nil {
		return out, err
	}
	out.add(up)

	if !pub.ModuleMetadata {
		return out, nil
	}
	module, err := maven.NewModuleMetadata(pub, files).Marshal()
	if err != nil {
		return out, err
	}
	up, err = p.put(ctx, p.layout.ModuleKey(pub.Coordinates), module, ContentType("module"), algos)
	if err != nil {
		return out, err
	}
	out.add(up)
	return out, nil
}

// UpdateMetadata merges c.Version into the remote maven-metadata.xml. A
// missing file starts a fresh one.
func (p *Publisher) UpdateMetadata(ctx context.Context, c domain.Coordinates, algos []checksum.Algorithm) (Upload, error) {
	key := p.layout.MetadataKey(c)
	meta := maven.NewMetadata(c)

	existing, err := p.store.GetObject(ctx, key)
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		p.logger.Debug().Str("key", key).Msg("no existing metadata")
	case err != nil:
		return Upload{}, fmt.Errorf("fetch %s: %w", key, err)
	default:
		if meta, err = maven.ParseMetadata(existing); err != nil {
			return Upload{}, err
		}
	}

	if err := meta.Merge(c, p.now()); err != nil {
		return Upload{}, err
	}
	body, err := meta.Marshal()
	if err != nil {
		return Upload{}, err
	}
	return p.put(ctx, key, body, ContentType("xml"), algos)
}

func (p *Publisher) put(ctx context.Context, key string, content []byte, contentType string, algos []checksum.Algorithm) (Upload, error) {
	sums := checksum.ComputeBytes(content)
	if err := p.store.PutObject(ctx, key, content, contentType); err != nil {
		return Upload{}, err
	}
	p.logger.Debug().Str("key", key).Int("size", len(content)).Msg("uploaded")

	up := Upload{
		Keys: []string{key},
		Files: []domain.PublishedFile{{
			Key:    key,
			Size:   int64(len(content)),
			SHA1:   sums[checksum.SHA1],
			SHA256: sums[checksum.SHA256],
			SHA512: sums[checksum.SHA512],
			MD5:    sums[checksum.MD5],
		}},
	}
	for _, sc := range checksum.Sidecars(key, sums, algos...) {
		if err := p.store.PutObject(ctx, sc.Key, sc.Body, "text/plain"); err != nil {
			return up, err
		}
		up.Keys = append(up.Keys, sc.Key)
	}
	return up, nil
}

// ContentType maps a file extension to the Content-Type sent on upload.
func ContentType(extension string) string {
	switch strings.TrimPrefix(path.Ext("."+extension), ".") {
	case "jar", "war", "ear":
		return "application/java-archive"
	case "pom", "xml":
		return "application/xml"
	case "module", "json":
		return "application/json"
	case "zip":
		return "application/zip"
	case "sha1", "sha256", "sha512", "md5", "asc", "txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
