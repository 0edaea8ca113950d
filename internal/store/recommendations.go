package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const recommendationColumns = "id, user_id, type, title, description, icon, action_text, secondary_action_text, is_completed, created_at"

func scanRecommendation(row interface{ Scan(...any) error }) (*Recommendation, error) {
	var r Recommendation
	err := row.Scan(&r.ID, &r.UserID, &r.Type, &r.Title, &r.Description, &r.Icon, &r.ActionText, &r.SecondaryActionText, &r.IsCompleted, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRecommendations returns the user's recommendations, newest first.
func (s *Store) ListRecommendations(ctx context.Context, userID int64) ([]Recommendation, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT "+recommendationColumns+" FROM recommendations WHERE user_id = ? ORDER BY created_at DESC, id DESC"), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	recs := []Recommendation{}
	for rows.Next() {
		r, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation row: %w", err)
		}
		recs = append(recs, *r)
	}
	return recs, rows.Err()
}

func (s *Store) GetRecommendation(ctx context.Context, id int64) (*Recommendation, error) {
	r, err := scanRecommendation(s.db.QueryRowContext(ctx, s.rebind("SELECT "+recommendationColumns+" FROM recommendations WHERE id = ?"), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get recommendation: %w", err)
	}
	return r, nil
}

func (s *Store) CreateRecommendation(ctx context.Context, r *Recommendation, now time.Time) (*Recommendation, error) {
	r.IsCompleted = false
	r.CreatedAt = now
	err := s.db.QueryRowContext(ctx, s.rebind(`
        INSERT INTO recommendations (user_id, type, title, description, icon, action_text, secondary_action_text, is_completed, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		r.UserID, r.Type, r.Title, r.Description, r.Icon, r.ActionText, r.SecondaryActionText, r.IsCompleted, r.CreatedAt,
	).Scan(&r.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert recommendation: %w", err)
	}
	return r, nil
}

func (s *Store) UpdateRecommendation(ctx context.Context, id int64, isCompleted bool) (*Recommendation, error) {
	res, err := s.db.ExecContext(ctx, s.rebind("UPDATE recommendations SET is_completed = ? WHERE id = ?"), isCompleted, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update recommendation: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return nil, err
	}
	return s.GetRecommendation(ctx, id)
}
