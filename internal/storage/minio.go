package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrObjectNotFound = errors.New("object not found")

type MinioOptions struct {
	Endpoint     string
	Secure       bool
	Region       string
	Bucket       string
	Creds        *credentials.Credentials
	CreateBucket bool
	Transport    http.RoundTripper
}

type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(ctx context.Context, opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:        opts.Creds,
		Secure:       opts.Secure,
		Region:       opts.Region,
		BucketLookup: minio.BucketLookupPath,
		Transport:    opts.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client for %s: %w", opts.Endpoint, err)
	}

	if opts.CreateBucket {
		exists, err := client.BucketExists(ctx, opts.Bucket)
		if err != nil {
			return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
				return nil, fmt.Errorf("create bucket %s: %w", opts.Bucket, err)
			}
		}
	}

	return &MinioStore{client: client, bucket: opts.Bucket}, nil
}

// OpenRepository dials the repository's endpoint with resolved credentials.
func OpenRepository(ctx context.Context, repo Repository, creds *credentials.Credentials, transport http.RoundTripper) (*MinioStore, Location, error) {
	loc, err := ParseURL(repo.URL)
	if err != nil {
		return nil, Location{}, err
	}
	host, secure, err := repo.ResolveEndpoint()
	if err != nil {
		return nil, Location{}, err
	}
	store, err := NewMinioStore(ctx, MinioOptions{
		Endpoint:  host,
		Secure:    secure,
		Region:    repo.RegionOrDefault(),
		Bucket:    loc.Bucket,
		Creds:     creds,
		Transport: transport,
	})
	if err != nil {
		return nil, Location{}, err
	}
	return store, loc, nil
}

func (m *MinioStore) Client() *minio.Client {
	return m.client
}

func (m *MinioStore) Bucket() string {
	return m.bucket
}

func (m *MinioStore) PutObject(ctx context.Context, objectKey string, content []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := m.client.PutObject(ctx, m.bucket, objectKey, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType:          contentType,
		SendContentMd5:       true,
		DisableContentSha256: true,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", objectKey, err)
	}
	return nil
}

func (m *MinioStore) GetObject(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapNotFound(objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapNotFound(objectKey, err)
	}
	return data, nil
}

func mapNotFound(objectKey string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", objectKey, ErrObjectNotFound)
	}
	return fmt.Errorf("read %s: %w", objectKey, err)
}
