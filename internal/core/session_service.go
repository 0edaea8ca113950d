package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"windryft.app/pocket-windryft/internal/store"
)

type SessionStore interface {
	StartWorkSession(ctx context.Context, userID int64, projectID *int64, sessionType string, now time.Time) (*store.WorkSession, *store.WorkSession, error)
	EndWorkSession(ctx context.Context, id int64, now time.Time) (*store.WorkSession, error)
	GetCurrentWorkSession(ctx context.Context, userID int64) (*store.WorkSession, error)
}

// SessionService drives the idle/active work-session state for each user.
type SessionService struct {
	store SessionStore
	now   func() time.Time
}

func NewSessionService(st SessionStore) *SessionService {
	return &SessionService{store: st, now: utcNow}
}

var ErrInvalidSessionType = errors.New("invalid session type")

var sessionTypes = map[string]bool{
	store.SessionFocus:   true,
	store.SessionBreak:   true,
	store.SessionMeeting: true,
}

// Start opens a session, ending the user's active one first if there is one.
func (s *SessionService) Start(ctx context.Context, userID int64, projectID *int64, sessionType string) (*store.WorkSession, error) {
	if sessionType == "" {
		sessionType = store.SessionFocus
	}
	if !sessionTypes[sessionType] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionType, sessionType)
	}

	started, ended, err := s.store.StartWorkSession(ctx, userID, projectID, sessionType, s.now())
	if err != nil {
		return nil, err
	}
	if ended != nil {
		log.Printf("Auto-ended work session %d for user %d after %d minutes", ended.ID, userID, *ended.Duration)
	}
	return started, nil
}

func (s *SessionService) End(ctx context.Context, sessionID int64) (*store.WorkSession, error) {
	return s.store.EndWorkSession(ctx, sessionID, s.now())
}

func (s *SessionService) Current(ctx context.Context, userID int64) (*store.WorkSession, error) {
	return s.store.GetCurrentWorkSession(ctx, userID)
}
