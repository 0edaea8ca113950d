package store

import (
	"context"
	"fmt"
)

// UpsertDailyAnalytics creates or replaces the row for (a.UserID, a.Date).
func (s *Store) UpsertDailyAnalytics(ctx context.Context, a *DailyAnalytics) (*DailyAnalytics, error) {
	err := s.db.QueryRowContext(ctx, s.rebind(`
        INSERT INTO daily_analytics (user_id, date, focus_time, flow_states, productivity)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (user_id, date) DO UPDATE SET
            focus_time = excluded.focus_time,
            flow_states = excluded.flow_states,
            productivity = excluded.productivity
        RETURNING id`),
		a.UserID, a.Date, a.FocusTime, a.FlowStates, a.Productivity,
	).Scan(&a.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert daily analytics: %w", err)
	}
	return a, nil
}

// ListDailyAnalytics returns rows dated on or after since (YYYY-MM-DD), oldest first.
func (s *Store) ListDailyAnalytics(ctx context.Context, userID int64, since string) ([]DailyAnalytics, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
        SELECT id, user_id, date, focus_time, flow_states, productivity
        FROM daily_analytics
        WHERE user_id = ? AND date >= ?
        ORDER BY date ASC`), userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily analytics: %w", err)
	}
	defer rows.Close()

	days := []DailyAnalytics{}
	for rows.Next() {
		var a DailyAnalytics
		if err := rows.Scan(&a.ID, &a.UserID, &a.Date, &a.FocusTime, &a.FlowStates, &a.Productivity); err != nil {
			return nil, fmt.Errorf("failed to scan daily analytics row: %w", err)
		}
		days = append(days, a)
	}
	return days, rows.Err()
}
