package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"windryft.app/pocket-windryft/internal/llm"
	"windryft.app/pocket-windryft/internal/store"
)

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions []*store.WorkSession
	logged   map[int64]int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{logged: map[int64]int{}}
}

func (f *fakeSessionStore) StartWorkSession(ctx context.Context, userID int64, projectID *int64, sessionType string, now time.Time) (*store.WorkSession, *store.WorkSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ended *store.WorkSession
	for _, ws := range f.sessions {
		if ws.UserID == userID && ws.Active() {
			f.end(ws, now)
			ended = ws
		}
	}
	ws := &store.WorkSession{ID: int64(len(f.sessions) + 1), UserID: userID, ProjectID: projectID, Type: sessionType, StartTime: now}
	f.sessions = append(f.sessions, ws)
	return ws, ended, nil
}

func (f *fakeSessionStore) EndWorkSession(ctx context.Context, id int64, now time.Time) (*store.WorkSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ws := range f.sessions {
		if ws.ID == id {
			if !ws.Active() {
				return nil, store.ErrSessionEnded
			}
			f.end(ws, now)
			return ws, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeSessionStore) GetCurrentWorkSession(ctx context.Context, userID int64) (*store.WorkSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ws := range f.sessions {
		if ws.UserID == userID && ws.Active() {
			return ws, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeSessionStore) end(ws *store.WorkSession, now time.Time) {
	d := int(now.Sub(ws.StartTime) / time.Minute)
	ws.EndTime = &now
	ws.Duration = &d
	if ws.ProjectID != nil {
		f.logged[*ws.ProjectID] += d
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func int64Ptr(v int64) *int64 { return &v }

func TestSessionStartEndsPrevious(t *testing.T) {
	st := newFakeSessionStore()
	clock := &fakeClock{t: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}
	svc := NewSessionService(st)
	svc.now = clock.now
	ctx := context.Background()

	first, err := svc.Start(ctx, 1, int64Ptr(5), "focus")
	require.NoError(t, err)
	assert.Nil(t, first.EndTime)

	clock.advance(42*time.Minute + 30*time.Second)
	second, err := svc.Start(ctx, 1, int64Ptr(7), "focus")
	require.NoError(t, err)

	require.NotNil(t, first.EndTime)
	assert.Equal(t, 42, *first.Duration)
	assert.Equal(t, 42, st.logged[5])
	assert.Equal(t, int64(7), *second.ProjectID)

	current, err := svc.Current(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)
	assert.Nil(t, current.EndTime)
}

func TestSessionStartValidatesType(t *testing.T) {
	svc := NewSessionService(newFakeSessionStore())

	ws, err := svc.Start(context.Background(), 1, nil, "")
	require.NoError(t, err)
	assert.Equal(t, store.SessionFocus, ws.Type)

	_, err = svc.Start(context.Background(), 1, nil, "siesta")
	assert.ErrorIs(t, err, ErrInvalidSessionType)
}

func TestSessionEndTwice(t *testing.T) {
	st := newFakeSessionStore()
	svc := NewSessionService(st)
	ctx := context.Background()

	ws, err := svc.Start(ctx, 1, nil, store.SessionMeeting)
	require.NoError(t, err)
	_, err = svc.End(ctx, ws.ID)
	require.NoError(t, err)
	_, err = svc.End(ctx, ws.ID)
	assert.ErrorIs(t, err, store.ErrSessionEnded)

	_, err = svc.Current(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

type fakeMessageStore struct {
	messages []store.AssistantMessage
	projects map[int64]*store.Project
	failOn   int
}

func (f *fakeMessageStore) CreateAssistantMessage(ctx context.Context, msg *store.AssistantMessage, now time.Time) (*store.AssistantMessage, error) {
	if f.failOn > 0 && len(f.messages)+1 == f.failOn {
		return nil, errors.New("disk full")
	}
	msg.ID = int64(len(f.messages) + 1)
	msg.Timestamp = now
	f.messages = append(f.messages, *msg)
	return msg, nil
}

func (f *fakeMessageStore) ListAssistantMessages(ctx context.Context, userID int64, projectID *int64) ([]store.AssistantMessage, error) {
	var out []store.AssistantMessage
	for _, m := range f.messages {
		if m.UserID != userID {
			continue
		}
		if projectID != nil && (m.ProjectID == nil || *m.ProjectID != *projectID) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeMessageStore) GetProject(ctx context.Context, id int64) (*store.Project, error) {
	if p, ok := f.projects[id]; ok {
		return p, nil
	}
	return nil, store.ErrNotFound
}

type recordingAssistant struct {
	message, projectContext string
	provider                llm.Provider
}

func (a *recordingAssistant) GenerateAssistantResponse(ctx context.Context, message, projectContext string, provider llm.Provider) llm.Completion {
	a.message, a.projectContext, a.provider = message, projectContext, provider
	return llm.Completion{Content: "Try time-boxing the outline.", Provider: llm.ProviderGemini}
}

func TestChatPostUserMessage(t *testing.T) {
	desc := "Cognitive techniques research"
	st := &fakeMessageStore{projects: map[int64]*store.Project{
		3: {ID: 3, Name: "Focus Enhancement", Type: "research", Description: &desc},
	}}
	assistant := &recordingAssistant{}
	svc := NewChatService(st, assistant)

	ex, err := svc.PostMessage(context.Background(), NewMessage{
		UserID: 1, ProjectID: int64Ptr(3), Content: "How should I start?", Sender: store.SenderUser, Provider: llm.ProviderAuto,
	})
	require.NoError(t, err)

	assert.Equal(t, "How should I start?", assistant.message)
	assert.Equal(t, "Project: Focus Enhancement, Type: research, Description: Cognitive techniques research", assistant.projectContext)
	assert.Equal(t, store.SenderUser, ex.UserMessage.Sender)
	assert.Nil(t, ex.UserMessage.Provider)
	assert.Equal(t, store.SenderAssistant, ex.AssistantMessage.Sender)
	require.NotNil(t, ex.AssistantMessage.Provider)
	assert.Equal(t, "gemini", *ex.AssistantMessage.Provider)

	msgs, err := svc.Messages(context.Background(), 1, int64Ptr(3))
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestChatMissingProjectHasNoContext(t *testing.T) {
	assistant := &recordingAssistant{}
	svc := NewChatService(&fakeMessageStore{}, assistant)

	_, err := svc.PostMessage(context.Background(), NewMessage{UserID: 1, ProjectID: int64Ptr(99), Content: "hi", Sender: store.SenderUser})
	require.NoError(t, err)
	assert.Empty(t, assistant.projectContext)
}

func TestChatPostAssistantMessage(t *testing.T) {
	assistant := &recordingAssistant{}
	st := &fakeMessageStore{}
	svc := NewChatService(st, assistant)

	ex, err := svc.PostMessage(context.Background(), NewMessage{UserID: 1, Content: "Welcome!", Sender: store.SenderAssistant})
	require.NoError(t, err)
	assert.Nil(t, ex.UserMessage)
	assert.Equal(t, "Welcome!", ex.AssistantMessage.Content)
	assert.Empty(t, assistant.message, "assistant messages are stored without a model call")
	assert.Len(t, st.messages, 1)
}

func TestChatStoreFailure(t *testing.T) {
	svc := NewChatService(&fakeMessageStore{failOn: 2}, &recordingAssistant{})
	_, err := svc.PostMessage(context.Background(), NewMessage{UserID: 1, Content: "hi", Sender: store.SenderUser})
	assert.ErrorContains(t, err, "disk full")
}

type fakeRecommendationStore struct {
	saved []store.Recommendation
}

func (f *fakeRecommendationStore) CreateRecommendation(ctx context.Context, r *store.Recommendation, now time.Time) (*store.Recommendation, error) {
	r.ID = int64(len(f.saved) + 1)
	r.CreatedAt = now
	f.saved = append(f.saved, *r)
	return r, nil
}

type cannedRecommender struct {
	workData any
	recs     []llm.Recommendation
}

func (c *cannedRecommender) GenerateProductivityRecommendations(ctx context.Context, workData any, provider llm.Provider) ([]llm.Recommendation, llm.Provider) {
	c.workData = workData
	return c.recs, llm.ProviderMock
}

func TestRecommendationGenerateAppends(t *testing.T) {
	st := &fakeRecommendationStore{}
	rec := &cannedRecommender{recs: []llm.Recommendation{
		{Type: "break", Title: "Stretch", Icon: "fitness_center", ActionText: "Start", SecondaryActionText: "Later"},
		{Type: "hydration", Title: "Drink water", Icon: "local_drink", ActionText: "Log"},
	}}
	svc := NewRecommendationService(st, rec)

	for i := 0; i < 2; i++ {
		out, err := svc.Generate(context.Background(), 4, nil, llm.ProviderAuto)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, int64(4), out[0].UserID)
		assert.False(t, out[0].IsCompleted)
		require.NotNil(t, out[0].SecondaryActionText)
		assert.Equal(t, "Later", *out[0].SecondaryActionText)
		assert.Nil(t, out[1].SecondaryActionText)
	}
	assert.Len(t, st.saved, 4)
	assert.Equal(t, map[string]any{}, rec.workData)
}

func TestContentSummarizeFormats(t *testing.T) {
	svc := NewContentService(llm.New(time.Second))
	ctx := context.Background()

	prose := svc.Summarize(ctx, SummarizeRequest{Content: "Long notes"})
	points := svc.Summarize(ctx, SummarizeRequest{Content: "Long notes", Format: FormatKeyPoints, MaxPoints: 3})
	assert.NotEmpty(t, prose)
	assert.NotEmpty(t, points)

	analysis := svc.Analyze(ctx, "Plan", llm.ProviderAuto)
	assert.NotEmpty(t, analysis.KeyPoints)

	suggestions := svc.ProjectSuggestions(ctx, "podcast", "Focus Hour", "", llm.ProviderAuto)
	assert.NotEmpty(t, suggestions.Sections)
}
