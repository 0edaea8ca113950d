package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"windryft.app/pocket-windryft/internal/auth"
	"windryft.app/pocket-windryft/internal/filestore"
	"windryft.app/pocket-windryft/internal/llm"
	"windryft.app/pocket-windryft/internal/store"
)

type testServer struct {
	handler http.Handler
	store   *store.Store
	tokens  *auth.TokenIssuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.SeedTemplates(context.Background()))

	files, err := filestore.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	h := NewAPIHandler(Deps{
		Store:          st,
		Gateway:        llm.New(time.Second),
		Files:          files,
		Tokens:         tokens,
		MaxUploadBytes: 1 << 20,
	})
	return &testServer{handler: NewRouter(h, []string{"*"}), store: st, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) register(t *testing.T, username string) int64 {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"username": username, "password": "secret1", "email": username + "@example.com", "name": "Test User",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[authResponse](t, rec).ID
}

func (s *testServer) createProject(t *testing.T, userID int64, name string) store.Project {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/projects", map[string]any{
		"name": name, "type": "research", "userId": userID, "colorCode": "#4F46E5",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[store.Project](t, rec)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","providers":[]}`, rec.Body.String())
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "ada")

	t.Run("duplicate username", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/auth/register", map[string]any{
			"username": "ada", "password": "secret1", "email": "other@example.com", "name": "Other",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("validation errors list fields", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/auth/register", map[string]any{"username": "bob"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeBody[errorResponse](t, rec)
		var fields []string
		for _, fe := range resp.Errors {
			fields = append(fields, fe.Field)
		}
		assert.ElementsMatch(t, []string{"password", "email", "name"}, fields)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/auth/login", map[string]any{"username": "ada", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/auth/login", map[string]any{"username": "ghost", "password": "secret1"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("success omits password", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/auth/login", map[string]any{"username": "ada", "password": "secret1"})
		require.Equal(t, http.StatusOK, rec.Code)
		var raw map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
		assert.Equal(t, "ada", raw["username"])
		assert.NotContains(t, raw, "password")
		assert.NotEmpty(t, raw["token"])

		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+raw["token"].(string))
		me := httptest.NewRecorder()
		s.handler.ServeHTTP(me, req)
		assert.Equal(t, http.StatusOK, me.Code)
		assert.Equal(t, "ada", decodeBody[store.User](t, me).Username)
	})

	t.Run("me without token", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/auth/me", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestProjectRoutes(t *testing.T) {
	s := newTestServer(t)
	userID := s.register(t, "ada")
	p := s.createProject(t, userID, "Thesis")
	assert.Equal(t, "active", p.Status)
	assert.True(t, p.AIAssistanceEnabled)

	rec := s.do(t, http.MethodGet, "/api/projects?userId="+strconv.FormatInt(userID, 10), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]store.Project](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/api/projects", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/project/"+strconv.FormatInt(p.ID, 10), map[string]any{"progress": 40})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody[store.Project](t, rec)
	assert.Equal(t, 40, updated.Progress)
	assert.Equal(t, "Thesis", updated.Name)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPut, "/api/project/999", map[string]any{"progress": 1}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/project/abc", nil).Code)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/project/"+strconv.FormatInt(p.ID, 10), nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/project/"+strconv.FormatInt(p.ID, 10), nil).Code)
}

func TestTemplateRoutes(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/project-templates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody[[]store.ProjectTemplate](t, rec))

	rec = s.do(t, http.MethodGet, "/api/project-template/type/research", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "research", decodeBody[store.ProjectTemplate](t, rec).Type)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/project-template/type/nope", nil).Code)
}

func TestWorkSessionRoutes(t *testing.T) {
	s := newTestServer(t)
	userID := s.register(t, "ada")
	p5 := s.createProject(t, userID, "Five")
	p7 := s.createProject(t, userID, "Seven")

	rec := s.do(t, http.MethodGet, "/api/work-session/current/"+strconv.FormatInt(userID, 10), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/work-sessions", map[string]any{"userId": userID, "projectId": p5.ID, "type": "focus"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decodeBody[store.WorkSession](t, rec)
	assert.Nil(t, first.EndTime)

	rec = s.do(t, http.MethodPost, "/api/work-sessions", map[string]any{"userId": userID, "projectId": p7.ID, "type": "focus"})
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decodeBody[store.WorkSession](t, rec)

	ended, err := s.store.GetWorkSession(context.Background(), first.ID)
	require.NoError(t, err)
	assert.NotNil(t, ended.EndTime)
	assert.NotNil(t, ended.Duration)

	rec = s.do(t, http.MethodGet, "/api/work-session/current/"+strconv.FormatInt(userID, 10), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, second.ID, decodeBody[store.WorkSession](t, rec).ID)

	rec = s.do(t, http.MethodPost, "/api/work-session/"+strconv.FormatInt(second.ID, 10)+"/end", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decodeBody[store.WorkSession](t, rec).EndTime)

	rec = s.do(t, http.MethodPost, "/api/work-session/"+strconv.FormatInt(second.ID, 10)+"/end", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/work-session/999/end", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/work-sessions", map[string]any{"userId": userID, "type": "nap"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/work-sessions/"+strconv.FormatInt(userID, 10), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]store.WorkSession](t, rec), 2)
}

func TestSummarizeWithoutCredentials(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/summarize", map[string]any{"content": "A long article about deep work."})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody[map[string]string](t, rec)["summary"])

	rec = s.do(t, http.MethodPost, "/api/summarize", map[string]any{"content": "Notes", "format": "key_points", "maxPoints": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody[map[string]string](t, rec)["summary"])

	rec = s.do(t, http.MethodPost, "/api/summarize", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeAndSuggestions(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/analyze-content", map[string]any{"content": "Plan"})
	require.Equal(t, http.StatusOK, rec.Code)
	analysis := decodeBody[llm.ContentAnalysis](t, rec)
	assert.NotEmpty(t, analysis.Summary)
	assert.NotEmpty(t, analysis.KeyPoints)

	rec = s.do(t, http.MethodPost, "/api/project-suggestions", map[string]any{"projectType": "podcast"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/project-suggestions", map[string]any{"projectType": "podcast", "projectName": "Focus Hour"})
	require.Equal(t, http.StatusOK, rec.Code)
	suggestions := decodeBody[llm.ProjectSuggestions](t, rec)
	assert.NotEmpty(t, suggestions.Sections)
	assert.NotEmpty(t, suggestions.Tasks)
}

func TestAssistantMessages(t *testing.T) {
	s := newTestServer(t)
	userID := s.register(t, "ada")
	p := s.createProject(t, userID, "Thesis")

	rec := s.do(t, http.MethodPost, "/api/assistant-messages", map[string]any{
		"userId": userID, "projectId": p.ID, "content": "hi", "sender": "user",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var exchange struct {
		UserMessage      store.AssistantMessage `json:"userMessage"`
		AssistantMessage store.AssistantMessage `json:"assistantMessage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exchange))
	assert.Equal(t, store.SenderUser, exchange.UserMessage.Sender)
	assert.Equal(t, store.SenderAssistant, exchange.AssistantMessage.Sender)
	require.NotNil(t, exchange.AssistantMessage.Provider)
	assert.Equal(t, "mock", *exchange.AssistantMessage.Provider)
	assert.NotEmpty(t, exchange.AssistantMessage.Content)

	rec = s.do(t, http.MethodPost, "/api/assistant-messages", map[string]any{
		"userId": userID, "content": "Welcome back", "sender": "assistant",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Welcome back", decodeBody[store.AssistantMessage](t, rec).Content)

	rec = s.do(t, http.MethodGet, "/api/assistant-messages/"+strconv.FormatInt(userID, 10)+"?projectId="+strconv.FormatInt(p.ID, 10), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	scoped := decodeBody[[]store.AssistantMessage](t, rec)
	require.Len(t, scoped, 2)
	assert.Equal(t, store.SenderUser, scoped[0].Sender)

	rec = s.do(t, http.MethodGet, "/api/assistant-messages/"+strconv.FormatInt(userID, 10), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]store.AssistantMessage](t, rec), 3)

	rec = s.do(t, http.MethodPost, "/api/assistant-messages", map[string]any{"userId": userID, "content": "x", "sender": "robot"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecommendationRoutes(t *testing.T) {
	s := newTestServer(t)
	userID := s.register(t, "ada")
	path := strconv.FormatInt(userID, 10)

	rec := s.do(t, http.MethodPost, "/api/recommendations/generate/"+path, map[string]any{
		"workData": map[string]any{"focusMinutes": 120, "productivityScore": 70},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	generated := decodeBody[[]store.Recommendation](t, rec)
	require.NotEmpty(t, generated)
	assert.LessOrEqual(t, len(generated), llm.MaxRecommendations)
	for _, r := range generated {
		assert.False(t, r.IsCompleted)
	}

	rec = s.do(t, http.MethodPut, "/api/recommendation/"+strconv.FormatInt(generated[0].ID, 10), map[string]any{"isCompleted": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[store.Recommendation](t, rec).IsCompleted)

	rec = s.do(t, http.MethodGet, "/api/recommendations/"+path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]store.Recommendation](t, rec), len(generated))
}

func TestAnalyticsRoutes(t *testing.T) {
	s := newTestServer(t)
	userID := s.register(t, "ada")
	path := "/api/analytics/" + strconv.FormatInt(userID, 10)
	day := time.Now().UTC().Format(store.DateLayout)

	for _, focus := range []int{60, 90} {
		rec := s.do(t, http.MethodPut, path, map[string]any{"date": day, "focusTime": focus, "flowStates": 1, "productivity": 80})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := s.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeBody[[]store.DailyAnalytics](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, 90, rows[0].FocusTime)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/analytics/abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, path, map[string]any{"date": "yesterday"}).Code)
}

func TestProjectFiles(t *testing.T) {
	s := newTestServer(t)
	userID := s.register(t, "ada")
	p := s.createProject(t, userID, "Thesis")
	projectPath := "/api/project/" + strconv.FormatInt(p.ID, 10)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("deep work notes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, projectPath+"/files", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	file := decodeBody[store.ProjectFile](t, rec)
	assert.Equal(t, "notes.txt", file.Filename)

	rec = s.do(t, http.MethodGet, projectPath, nil)
	assert.Equal(t, 1, decodeBody[store.Project](t, rec).Files)

	rec = s.do(t, http.MethodGet, "/api/project-file/"+strconv.FormatInt(file.ID, 10), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "deep work notes", rec.Body.String())

	rec = s.do(t, http.MethodGet, projectPath+"/files", nil)
	assert.Len(t, decodeBody[[]store.ProjectFile](t, rec), 1)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/project-file/"+strconv.FormatInt(file.ID, 10), nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/project-file/"+strconv.FormatInt(file.ID, 10), nil).Code)

	rec = s.do(t, http.MethodGet, projectPath, nil)
	assert.Equal(t, 0, decodeBody[store.Project](t, rec).Files)
}
