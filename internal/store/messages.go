package store

import (
	"context"
	"fmt"
	"time"
)

func (s *Store) CreateAssistantMessage(ctx context.Context, msg *AssistantMessage, now time.Time) (*AssistantMessage, error) {
	msg.Timestamp = now
	err := s.db.QueryRowContext(ctx, s.rebind(`
        INSERT INTO assistant_messages (user_id, project_id, content, sender, provider, timestamp)
        VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		msg.UserID, msg.ProjectID, msg.Content, msg.Sender, msg.Provider, msg.Timestamp,
	).Scan(&msg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert assistant message: %w", err)
	}
	return msg, nil
}

// ListAssistantMessages returns the user's messages in timestamp order.
// A nil projectID returns every conversation the user has.
func (s *Store) ListAssistantMessages(ctx context.Context, userID int64, projectID *int64) ([]AssistantMessage, error) {
	query := "SELECT id, user_id, project_id, content, sender, provider, timestamp FROM assistant_messages WHERE user_id = ?"
	args := []any{userID}
	if projectID != nil {
		query += " AND project_id = ?"
		args = append(args, *projectID)
	}
	query += " ORDER BY timestamp ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assistant messages: %w", err)
	}
	defer rows.Close()

	messages := []AssistantMessage{}
	for rows.Next() {
		var m AssistantMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.ProjectID, &m.Content, &m.Sender, &m.Provider, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan assistant message row: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
