package events

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"

	"artipub/internal/maven"
)

const objectCreatedEvent = "s3:ObjectCreated:*"

// ArtifactEvent is an object-created notification for a key that follows the
// repository layout. Metadata files and foreign keys never become events.
type ArtifactEvent struct {
	ObjectKey string
	EventName string
	Parsed    maven.ParsedKey
}

type ArtifactEventSource interface {
	Run(ctx context.Context, handler func(context.Context, ArtifactEvent) error) error
}

type MinioArtifactEventSource struct {
	client *minio.Client
	bucket string
	layout maven.Layout
}

func NewMinioArtifactEventSource(client *minio.Client, bucket string, layout maven.Layout) *MinioArtifactEventSource {
	return &MinioArtifactEventSource{
		client: client,
		bucket: bucket,
		layout: layout,
	}
}

func (s *MinioArtifactEventSource) Run(ctx context.Context, handler func(context.Context, ArtifactEvent) error) error {
	prefix := strings.Trim(s.layout.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	notificationCh := s.client.ListenBucketNotification(ctx, s.bucket, prefix, "", []string{objectCreatedEvent})
	for {
		select {
		case <-ctx.Done():
			return nil
		case info, ok := <-notificationCh:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("minio notification stream closed")
			}
			if info.Err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("minio notification stream error: %w", info.Err)
			}
			for _, record := range info.Records {
				event, ok := s.toEvent(record.S3.Object.Key, record.EventName)
				if !ok {
					continue
				}
				if err := handler(ctx, event); err != nil {
					return err
				}
			}
		}
	}
}

func (s *MinioArtifactEventSource) toEvent(encodedKey, eventName string) (ArtifactEvent, bool) {
	objectKey, err := decodeObjectKey(encodedKey)
	if err != nil {
		return ArtifactEvent{}, false
	}
	parsed, ok := s.layout.ParseKey(objectKey)
	if !ok {
		return ArtifactEvent{}, false
	}
	return ArtifactEvent{ObjectKey: objectKey, EventName: eventName, Parsed: parsed}, true
}

func decodeObjectKey(encoded string) (string, error) {
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		return "", err
	}
	decoded = strings.TrimSpace(decoded)
	if decoded == "" {
		return "", fmt.Errorf("object key is empty")
	}
	return decoded, nil
}
