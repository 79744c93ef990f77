package temporal

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"artipub/internal/credentials"
	"artipub/internal/domain"
	"artipub/internal/publish"
	"artipub/internal/storage"
)

type fakeLedger struct {
	mu           sync.Mutex
	statuses     map[string][]domain.PublicationStatus
	files        map[string][]domain.PublishedFile
	reasons      map[string]string
	deprecations []domain.DeprecationRecord
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		statuses: make(map[string][]domain.PublicationStatus),
		files:    make(map[string][]domain.PublishedFile),
		reasons:  make(map[string]string),
	}
}

func (f *fakeLedger) MarkUploading(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = append(f.statuses[id], domain.StatusUploading)
	return nil
}

func (f *fakeLedger) MarkPublished(_ context.Context, id string, files []domain.PublishedFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = append(f.statuses[id], domain.StatusPublished)
	f.files[id] = files
	return nil
}

func (f *fakeLedger) MarkFailed(_ context.Context, id string, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = append(f.statuses[id], domain.StatusFailed)
	f.reasons[id] = reason
	return nil
}

func (f *fakeLedger) InsertDeprecation(_ context.Context, rec domain.DeprecationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deprecations = append(f.deprecations, rec)
	return nil
}

func (f *fakeLedger) history(id string) []domain.PublicationStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.PublicationStatus(nil), f.statuses[id]...)
}

// memoryOpener hands every activity the same in-memory bucket.
func memoryOpener(store *publish.MemoryStore) StoreOpener {
	return func(_ context.Context, repo storage.Repository, _ credentials.Resolved) (publish.ObjectStore, storage.Location, error) {
		loc, err := storage.ParseURL(repo.URL)
		if err != nil {
			return nil, storage.Location{}, err
		}
		return store, loc, nil
	}
}

func releases() storage.Repository {
	return storage.Repository{
		Name: "releases",
		URL:  "s3://acme-maven/releases",
		Credentials: credentials.Explicit{
			AccessKey: "AKIAEXAMPLE",
			SecretKey: "secret",
		},
	}
}

func samplePublication(dir string) (domain.Publication, error) {
	jar := filepath.Join(dir, "lib.jar")
	if err := os.WriteFile(jar, []byte("jar-bytes"), 0o644); err != nil {
		return domain.Publication{}, err
	}
	sources := filepath.Join(dir, "lib-sources.jar")
	if err := os.WriteFile(sources, []byte("source-bytes"), 0o644); err != nil {
		return domain.Publication{}, err
	}
	return domain.Publication{
		Coordinates: domain.Coordinates{Group: "org.acme", Artifact: "lib", Version: "1.0"},
		Name:        "lib",
		Artifacts: []domain.Artifact{
			{Extension: "jar", Path: jar},
			{Classifier: "sources", Extension: "jar", Path: sources},
		},
		ModuleMetadata: true,
	}, nil
}

func mustPublication(t *testing.T) domain.Publication {
	t.Helper()
	pub, err := samplePublication(t.TempDir())
	require.NoError(t, err)
	return pub
}
