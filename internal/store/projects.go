package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const projectColumns = "id, name, description, type, user_id, status, progress, deadline, ai_assistance_enabled, created_at, color_code, icon, files, time_logged"

func scanProject(row interface{ Scan(...any) error }) (*Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Type, &p.UserID, &p.Status, &p.Progress,
		&p.Deadline, &p.AIAssistanceEnabled, &p.CreatedAt, &p.ColorCode, &p.Icon, &p.Files, &p.TimeLogged)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context, userID int64) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT "+projectColumns+" FROM projects WHERE user_id = ? ORDER BY id ASC"), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (s *Store) GetProject(ctx context.Context, id int64) (*Project, error) {
	return s.getProject(ctx, s.db, id)
}

func (s *Store) getProject(ctx context.Context, q querier, id int64) (*Project, error) {
	p, err := scanProject(q.QueryRowContext(ctx, s.rebind("SELECT "+projectColumns+" FROM projects WHERE id = ?"), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// CreateProject inserts p with a fresh status, progress, file count and time log.
func (s *Store) CreateProject(ctx context.Context, p *Project, now time.Time) (*Project, error) {
	if p.Status == "" {
		p.Status = ProjectStatusActive
	}
	p.CreatedAt = now
	err := s.db.QueryRowContext(ctx, s.rebind(`
        INSERT INTO projects (name, description, type, user_id, status, progress, deadline,
            ai_assistance_enabled, created_at, color_code, icon, files, time_logged)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		p.Name, p.Description, p.Type, p.UserID, p.Status, p.Progress, p.Deadline,
		p.AIAssistanceEnabled, p.CreatedAt, p.ColorCode, p.Icon, p.Files, p.TimeLogged,
	).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert project: %w", err)
	}
	return p, nil
}

func (s *Store) UpdateProject(ctx context.Context, id int64, patch ProjectPatch) (*Project, error) {
	var sets []string
	var args []any
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Type != nil {
		add("type", *patch.Type)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Progress != nil {
		add("progress", *patch.Progress)
	}
	if patch.Deadline != nil {
		add("deadline", *patch.Deadline)
	}
	if patch.AIAssistanceEnabled != nil {
		add("ai_assistance_enabled", *patch.AIAssistanceEnabled)
	}
	if patch.ColorCode != nil {
		add("color_code", *patch.ColorCode)
	}
	if patch.Icon != nil {
		add("icon", *patch.Icon)
	}
	if len(sets) == 0 {
		return s.GetProject(ctx, id)
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx, s.rebind("UPDATE projects SET "+strings.Join(sets, ", ")+" WHERE id = ?"), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return nil, err
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes the project together with its file records and
// returns the storage paths of the removed files so the caller can drop the blobs.
func (s *Store) DeleteProject(ctx context.Context, id int64) ([]string, error) {
	var paths []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, s.rebind("SELECT storage_path FROM project_files WHERE project_id = ?"), id)
		if err != nil {
			return fmt.Errorf("failed to query project files: %w", err)
		}
		for rows.Next() {
			var p string
			if err := rows.Scan(&p); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan project file path: %w", err)
			}
			paths = append(paths, p)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("failed to read project file paths: %w", err)
		}
		rows.Close()

		res, err := tx.ExecContext(ctx, s.rebind("DELETE FROM projects WHERE id = ?"), id)
		if err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		if err := checkAffected(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM project_files WHERE project_id = ?"), id); err != nil {
			return fmt.Errorf("failed to delete project files: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}
