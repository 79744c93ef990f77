package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"artipub/internal/domain"
)

var ErrPublicationNotFound = errors.New("publication not found")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) RecordPublication(ctx context.Context, id string, c domain.Coordinates, repository string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO publications (id, group_id, artifact_id, version, repository, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, id, c.Group, c.Artifact, c.Version, repository, domain.StatusPending)
	return err
}

func (s *PostgresStore) MarkUploading(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, domain.StatusUploading, nil)
}

// MarkPublished stores the uploaded files and flips the publication to
// PUBLISHED in one transaction.
func (s *PostgresStore) MarkPublished(ctx context.Context, id string, files []domain.PublishedFile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for i, f := range files {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO published_files (publication_id, position, object_key, size, sha1, sha256, sha512, md5)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''))
			ON CONFLICT (publication_id, object_key) DO UPDATE SET
				position = EXCLUDED.position,
				size = EXCLUDED.size,
				sha1 = EXCLUDED.sha1,
				sha256 = EXCLUDED.sha256,
				sha512 = EXCLUDED.sha512,
				md5 = EXCLUDED.md5
		`, id, i, f.Key, f.Size, f.SHA1, f.SHA256, f.SHA512, f.MD5)
		if err != nil {
			return fmt.Errorf("record file %s: %w", f.Key, err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE publications
		SET status = $2, error = NULL, updated_at = NOW()
		WHERE id = $1
	`, id, domain.StatusPublished)
	if err != nil {
		return err
	}
	if err := requireRow(res, id); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *PostgresStore) MarkFailed(ctx context.Context, id string, reason string) error {
	return s.setStatus(ctx, id, domain.StatusFailed, &reason)
}

func (s *PostgresStore) setStatus(ctx context.Context, id string, status domain.PublicationStatus, reason *string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE publications
		SET status = $2, error = $3, updated_at = NOW()
		WHERE id = $1
	`, id, status, reason)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrPublicationNotFound)
	}
	return nil
}

func (s *PostgresStore) GetPublication(ctx context.Context, id string) (domain.PublicationRecord, error) {
	var rec domain.PublicationRecord
	var reason sql.NullString
	row := s.db.QueryRowContext(ctx, `
		SELECT id, group_id, artifact_id, version, repository, status, error, created_at, updated_at
		FROM publications
		WHERE id = $1
	`, id)
	if err := row.Scan(
		&rec.ID,
		&rec.Coordinates.Group,
		&rec.Coordinates.Artifact,
		&rec.Coordinates.Version,
		&rec.Repository,
		&rec.Status,
		&reason,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PublicationRecord{}, fmt.Errorf("%s: %w", id, ErrPublicationNotFound)
		}
		return domain.PublicationRecord{}, err
	}
	if reason.Valid {
		rec.Error = &reason.String
	}

	files, err := s.ListFiles(ctx, id)
	if err != nil {
		return domain.PublicationRecord{}, err
	}
	rec.Files = files
	return rec, nil
}

func (s *PostgresStore) ListFiles(ctx context.Context, id string) ([]domain.PublishedFile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT object_key, size, COALESCE(sha1, ''), COALESCE(sha256, ''), COALESCE(sha512, ''), COALESCE(md5, '')
		FROM published_files
		WHERE publication_id = $1
		ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := make([]domain.PublishedFile, 0)
	for rows.Next() {
		var f domain.PublishedFile
		if err := rows.Scan(&f.Key, &f.Size, &f.SHA1, &f.SHA256, &f.SHA512, &f.MD5); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return files, nil
}

// FindPublications lists publication IDs in the given statuses, newest first.
func (s *PostgresStore) FindPublications(ctx context.Context, c domain.Coordinates, statuses ...domain.PublicationStatus) ([]string, error) {
	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		names = append(names, string(st))
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id
		FROM publications
		WHERE group_id = $1 AND artifact_id = $2 AND version = $3
		  AND (cardinality($4::text[]) = 0 OR status = ANY($4))
		ORDER BY created_at DESC
	`, c.Group, c.Artifact, c.Version, pq.Array(names))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) InsertDeprecation(ctx context.Context, rec domain.DeprecationRecord) error {
	var publicationID *string
	if rec.PublicationID != "" {
		publicationID = &rec.PublicationID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deprecations (publication_id, summary, message, location)
		VALUES ($1, $2, $3, NULLIF($4, ''))
	`, publicationID, rec.Summary, rec.Message, rec.Location)
	return err
}
