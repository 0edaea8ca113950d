package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *Store) ListTemplates(ctx context.Context) ([]ProjectTemplate, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, type, sections FROM project_templates ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query project templates: %w", err)
	}
	defer rows.Close()

	templates := []ProjectTemplate{}
	for rows.Next() {
		var t ProjectTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Type, &t.Sections); err != nil {
			return nil, fmt.Errorf("failed to scan project template row: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (s *Store) GetTemplate(ctx context.Context, id int64) (*ProjectTemplate, error) {
	return s.getTemplate(ctx, "id", id)
}

// GetTemplateByType returns the first template seeded for projectType.
func (s *Store) GetTemplateByType(ctx context.Context, projectType string) (*ProjectTemplate, error) {
	return s.getTemplate(ctx, "type", projectType)
}

func (s *Store) getTemplate(ctx context.Context, column string, value any) (*ProjectTemplate, error) {
	var t ProjectTemplate
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT id, name, type, sections FROM project_templates WHERE "+column+" = ? ORDER BY id ASC LIMIT 1"), value,
	).Scan(&t.ID, &t.Name, &t.Type, &t.Sections)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project template: %w", err)
	}
	return &t, nil
}

func (s *Store) CreateTemplate(ctx context.Context, t *ProjectTemplate) (*ProjectTemplate, error) {
	if t.Sections == nil {
		t.Sections = TemplateSections{}
	}
	err := s.db.QueryRowContext(ctx,
		s.rebind("INSERT INTO project_templates (name, type, sections) VALUES (?, ?, ?) RETURNING id"),
		t.Name, t.Type, t.Sections,
	).Scan(&t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert project template: %w", err)
	}
	return t, nil
}
