package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"
)

const (
	sessionColumns   = "id, user_id, project_id, start_time, end_time, duration, type, notes, is_flow_state"
	maxStartAttempts = 3
)

// errSessionRace means another transaction ended the session first.
var errSessionRace = errors.New("work session ended concurrently")

func scanSession(row interface{ Scan(...any) error }) (*WorkSession, error) {
	var ws WorkSession
	err := row.Scan(&ws.ID, &ws.UserID, &ws.ProjectID, &ws.StartTime, &ws.EndTime, &ws.Duration, &ws.Type, &ws.Notes, &ws.IsFlowState)
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

func (s *Store) listSessions(ctx context.Context, where string, arg any) ([]WorkSession, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT "+sessionColumns+" FROM work_sessions WHERE "+where+" = ? ORDER BY start_time DESC, id DESC"), arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query work sessions: %w", err)
	}
	defer rows.Close()

	sessions := []WorkSession{}
	for rows.Next() {
		ws, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work session row: %w", err)
		}
		sessions = append(sessions, *ws)
	}
	return sessions, rows.Err()
}

// ListWorkSessions returns the user's sessions, newest first.
func (s *Store) ListWorkSessions(ctx context.Context, userID int64) ([]WorkSession, error) {
	return s.listSessions(ctx, "user_id", userID)
}

func (s *Store) ListWorkSessionsByProject(ctx context.Context, projectID int64) ([]WorkSession, error) {
	return s.listSessions(ctx, "project_id", projectID)
}

func (s *Store) GetWorkSession(ctx context.Context, id int64) (*WorkSession, error) {
	return s.getSession(ctx, s.db, "id = ?", id)
}

// GetCurrentWorkSession returns the user's active session or ErrNotFound.
func (s *Store) GetCurrentWorkSession(ctx context.Context, userID int64) (*WorkSession, error) {
	return s.getSession(ctx, s.db, "user_id = ? AND end_time IS NULL", userID)
}

func (s *Store) getSession(ctx context.Context, q querier, where string, arg any) (*WorkSession, error) {
	ws, err := scanSession(q.QueryRowContext(ctx, s.rebind("SELECT "+sessionColumns+" FROM work_sessions WHERE "+where), arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get work session: %w", err)
	}
	return ws, nil
}

// StartWorkSession opens a new active session for the user. Any session the
// user still has open is ended first, inside the same transaction. It returns
// the new session and the one that was ended, if any.
//
// Two concurrent starts for one user collide on the active-session unique
// index; the loser retries and then ends the winner's session.
func (s *Store) StartWorkSession(ctx context.Context, userID int64, projectID *int64, sessionType string, now time.Time) (*WorkSession, *WorkSession, error) {
	var lastErr error
	for attempt := 1; attempt <= maxStartAttempts; attempt++ {
		started, ended, err := s.startWorkSession(ctx, userID, projectID, sessionType, now)
		if err == nil {
			return started, ended, nil
		}
		if !isUniqueViolation(err) && !errors.Is(err, errSessionRace) {
			return nil, nil, err
		}
		log.Printf("Concurrent work session start for user %d (attempt %d): %v", userID, attempt, err)
		lastErr = err
	}
	return nil, nil, fmt.Errorf("failed to start work session after %d attempts: %v: %w", maxStartAttempts, lastErr, ErrConflict)
}

func (s *Store) startWorkSession(ctx context.Context, userID int64, projectID *int64, sessionType string, now time.Time) (*WorkSession, *WorkSession, error) {
	var started, ended *WorkSession
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		active, err := s.getSession(ctx, tx, "user_id = ? AND end_time IS NULL", userID)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		default:
			if err := s.endSession(ctx, tx, active, now); err != nil {
				return err
			}
			ended = active
		}

		ws := &WorkSession{UserID: userID, ProjectID: projectID, StartTime: now, Type: sessionType}
		err = tx.QueryRowContext(ctx,
			s.rebind("INSERT INTO work_sessions (user_id, project_id, start_time, type, is_flow_state) VALUES (?, ?, ?, ?, ?) RETURNING id"),
			ws.UserID, ws.ProjectID, ws.StartTime, ws.Type, false,
		).Scan(&ws.ID)
		if err != nil {
			return fmt.Errorf("failed to insert work session: %w", err)
		}
		started = ws
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return started, ended, nil
}

// EndWorkSession closes the session with floored-minute duration and credits
// that duration to the owning project.
func (s *Store) EndWorkSession(ctx context.Context, id int64, now time.Time) (*WorkSession, error) {
	var ws *WorkSession
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		ws, err = s.getSession(ctx, tx, "id = ?", id)
		if err != nil {
			return err
		}
		if !ws.Active() {
			return ErrSessionEnded
		}
		if err := s.endSession(ctx, tx, ws, now); err != nil {
			if errors.Is(err, errSessionRace) {
				return ErrSessionEnded
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// endSession marks ws ended in tx and increments the project's time log.
// ws is updated in place.
func (s *Store) endSession(ctx context.Context, tx *sql.Tx, ws *WorkSession, now time.Time) error {
	duration := sessionMinutes(ws.StartTime, now)
	res, err := tx.ExecContext(ctx,
		s.rebind("UPDATE work_sessions SET end_time = ?, duration = ? WHERE id = ? AND end_time IS NULL"),
		now, duration, ws.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to end work session: %w", err)
	}
	if err := checkAffected(res); err != nil {
		if errors.Is(err, ErrNotFound) {
			return errSessionRace
		}
		return err
	}

	if ws.ProjectID != nil {
		_, err := tx.ExecContext(ctx,
			s.rebind("UPDATE projects SET time_logged = time_logged + ? WHERE id = ?"),
			duration, *ws.ProjectID,
		)
		if err != nil {
			return fmt.Errorf("failed to update project time: %w", err)
		}
	}

	ws.EndTime = &now
	ws.Duration = &duration
	return nil
}

// sessionMinutes is the whole number of minutes between start and end.
func sessionMinutes(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// UpdateWorkSession sets notes and the flow-state flag. Nil fields are left alone.
func (s *Store) UpdateWorkSession(ctx context.Context, id int64, notes *string, isFlowState *bool) (*WorkSession, error) {
	res, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE work_sessions SET notes = COALESCE(?, notes), is_flow_state = COALESCE(?, is_flow_state) WHERE id = ?"),
		notes, isFlowState, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update work session: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return nil, err
	}
	return s.GetWorkSession(ctx, id)
}
