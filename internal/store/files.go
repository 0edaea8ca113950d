package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const fileColumns = "id, project_id, user_id, filename, content_type, size, storage_path, uploaded_at"

func scanFile(row interface{ Scan(...any) error }) (*ProjectFile, error) {
	var f ProjectFile
	if err := row.Scan(&f.ID, &f.ProjectID, &f.UserID, &f.Filename, &f.ContentType, &f.Size, &f.StoragePath, &f.UploadedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateProjectFile records an uploaded file and bumps the project's file count.
func (s *Store) CreateProjectFile(ctx context.Context, f *ProjectFile, now time.Time) (*ProjectFile, error) {
	f.UploadedAt = now
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.rebind("UPDATE projects SET files = files + 1 WHERE id = ?"), f.ProjectID)
		if err != nil {
			return fmt.Errorf("failed to update project file count: %w", err)
		}
		if err := checkAffected(res); err != nil {
			return err
		}
		err = tx.QueryRowContext(ctx, s.rebind(`
            INSERT INTO project_files (project_id, user_id, filename, content_type, size, storage_path, uploaded_at)
            VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			f.ProjectID, f.UserID, f.Filename, f.ContentType, f.Size, f.StoragePath, f.UploadedAt,
		).Scan(&f.ID)
		if err != nil {
			return fmt.Errorf("failed to insert project file: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Store) ListProjectFiles(ctx context.Context, projectID int64) ([]ProjectFile, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT "+fileColumns+" FROM project_files WHERE project_id = ? ORDER BY uploaded_at ASC, id ASC"), projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query project files: %w", err)
	}
	defer rows.Close()

	files := []ProjectFile{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project file row: %w", err)
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

func (s *Store) GetProjectFile(ctx context.Context, id int64) (*ProjectFile, error) {
	return s.getFile(ctx, s.db, id)
}

func (s *Store) getFile(ctx context.Context, q querier, id int64) (*ProjectFile, error) {
	f, err := scanFile(q.QueryRowContext(ctx, s.rebind("SELECT "+fileColumns+" FROM project_files WHERE id = ?"), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project file: %w", err)
	}
	return f, nil
}

// DeleteProjectFile removes the record, decrements the project's file count
// and returns the removed record so the caller can drop the blob.
func (s *Store) DeleteProjectFile(ctx context.Context, id int64) (*ProjectFile, error) {
	var f *ProjectFile
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		f, err = s.getFile(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM project_files WHERE id = ?"), id); err != nil {
			return fmt.Errorf("failed to delete project file: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			s.rebind("UPDATE projects SET files = CASE WHEN files > 0 THEN files - 1 ELSE 0 END WHERE id = ?"), f.ProjectID)
		if err != nil {
			return fmt.Errorf("failed to update project file count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}
