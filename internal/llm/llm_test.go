package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVendor struct {
	name  Provider
	reply string
	err   error
	block bool
	calls atomic.Int32
	last  []Message
	json  bool
}

func (f *fakeVendor) Name() Provider { return f.name }

func (f *fakeVendor) Complete(ctx context.Context, messages []Message, jsonFormat bool) (string, error) {
	f.calls.Add(1)
	f.last = messages
	f.json = jsonFormat
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

func TestParseProvider(t *testing.T) {
	assert.Equal(t, ProviderGemini, ParseProvider("Gemini"))
	assert.Equal(t, ProviderDeepSeek, ParseProvider(" deepseek "))
	assert.Equal(t, ProviderAuto, ParseProvider(""))
	assert.Equal(t, ProviderAuto, ParseProvider("openai"))
	assert.Equal(t, ProviderAuto, ParseProvider("mock"))
}

func TestResolve(t *testing.T) {
	none := New(0)
	assert.Equal(t, ProviderMock, none.Resolve(ProviderAuto))
	assert.Equal(t, ProviderMock, none.Resolve(ProviderGemini))

	g := New(0, &fakeVendor{name: ProviderDeepSeek}, &fakeVendor{name: ProviderAnthropic})
	assert.Equal(t, ProviderAnthropic, g.Resolve(ProviderAuto))
	assert.Equal(t, ProviderDeepSeek, g.Resolve(ProviderDeepSeek))
	assert.Equal(t, ProviderAnthropic, g.Resolve(ProviderGemini), "unconfigured vendor re-resolves as auto")
	assert.Equal(t, []Provider{ProviderAnthropic, ProviderDeepSeek}, g.Configured())

	all := New(0, &fakeVendor{name: ProviderDeepSeek}, &fakeVendor{name: ProviderAnthropic}, &fakeVendor{name: ProviderGemini})
	assert.Equal(t, ProviderGemini, all.Resolve(ProviderAuto))
}

func TestCompleteWithoutCredentials(t *testing.T) {
	g := New(0)
	ctx := context.Background()

	text := g.Complete(ctx, []Message{{Role: RoleUser, Content: "hi"}}, false, ProviderAuto)
	assert.Equal(t, ProviderMock, text.Provider)
	assert.Equal(t, demoModeText, text.Content)

	for _, system := range []string{"productivity recommendations", "content analysis", "project management", "anything else"} {
		c := g.Complete(ctx, []Message{{Role: RoleSystem, Content: system}, {Role: RoleUser, Content: "x"}}, true, ProviderAuto)
		assert.True(t, json.Valid([]byte(c.Content)), "fallback for %q must be valid JSON", system)
	}
}

func TestFallbackTextFollowsIntent(t *testing.T) {
	user := func(s string) []Message { return []Message{{Role: RoleUser, Content: s}} }
	assert.Equal(t, analysisText, fallbackContent(user("please summarize this"), false))
	assert.Equal(t, projectHelpText, fallbackContent(user("help me with my project"), false))
	assert.Equal(t, ideasText, fallbackContent(user("any idea?"), false))
	assert.Equal(t, demoModeText, fallbackContent(user("hello"), false))
	assert.Equal(t, demoModeText, fallbackContent(nil, false))
}

func TestCompleteUsesVendor(t *testing.T) {
	v := &fakeVendor{name: ProviderAnthropic, reply: "real answer"}
	g := New(0, v)

	c := g.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, true, ProviderAuto)
	assert.Equal(t, "real answer", c.Content)
	assert.Equal(t, ProviderAnthropic, c.Provider)
	assert.True(t, v.json)
	assert.EqualValues(t, 1, v.calls.Load())
}

func TestCompleteFallsBackOnVendorError(t *testing.T) {
	v := &fakeVendor{name: ProviderDeepSeek, err: errors.New("402 payment required")}
	g := New(0, v)

	c := g.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, false, ProviderDeepSeek)
	assert.Equal(t, ProviderMock, c.Provider)
	assert.NotEmpty(t, c.Content)

	empty := New(0, &fakeVendor{name: ProviderGemini, reply: "   "})
	c = empty.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, false, ProviderAuto)
	assert.Equal(t, ProviderMock, c.Provider)
}

func TestCompleteTimesOut(t *testing.T) {
	g := New(20*time.Millisecond, &fakeVendor{name: ProviderGemini, block: true})

	start := time.Now()
	c := g.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, false, ProviderAuto)
	assert.Equal(t, ProviderMock, c.Provider)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDecodeOr(t *testing.T) {
	got := decodeOr("```json\n{\"summary\":\"s\",\"keyPoints\":[\"a\"]}\n```", defaultAnalysis)
	assert.Equal(t, "s", got.Summary)
	assert.Equal(t, []string{"a"}, got.KeyPoints)

	assert.Equal(t, defaultAnalysis, decodeOr("not json at all", defaultAnalysis))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
}

func TestDecodeRecommendations(t *testing.T) {
	many := `[{"title":"a","icon":"schedule"},{"title":"b","icon":"unknown"},{"title":""},{"title":"c"},{"title":"d"}]`
	recs := decodeRecommendations(many)
	require.Len(t, recs, MaxRecommendations)
	assert.Equal(t, "a", recs[0].Title)
	assert.Equal(t, "tips_and_updates", recs[1].Icon)
	assert.Equal(t, "c", recs[2].Title)
	assert.Equal(t, "focus", recs[2].Type)

	wrapped := decodeRecommendations(`{"recommendations":[{"type":"break","title":"Pause","icon":"hotel"}]}`)
	require.Len(t, wrapped, 1)
	assert.Equal(t, "hotel", wrapped[0].Icon)

	otherKey := decodeRecommendations(`{"items":[{"type":"break","title":"Walk","icon":"directions_walk"},{"title":"Stretch"}]}`)
	require.Len(t, otherKey, 2)
	assert.Equal(t, "Walk", otherKey[0].Title)
	assert.Equal(t, "Stretch", otherKey[1].Title)

	single := decodeRecommendations(`{"type":"break","title":"Walk","description":"Ten minutes outside","icon":"schedule","actionText":"Go"}`)
	require.Len(t, single, 1)
	assert.Equal(t, "Walk", single[0].Title)
	assert.Equal(t, "schedule", single[0].Icon)

	assert.Equal(t, defaultRecommendations, decodeRecommendations(`{"status":"ok"}`))
	assert.Equal(t, defaultRecommendations, decodeRecommendations("garbage"))
	assert.Equal(t, defaultRecommendations, decodeRecommendations("[]"))
}

func TestOperationsWithoutCredentials(t *testing.T) {
	g := New(0)
	ctx := context.Background()

	recs, p := g.GenerateProductivityRecommendations(ctx, map[string]any{"focusMinutes": 90}, ProviderAuto)
	assert.Equal(t, ProviderMock, p)
	assert.NotEmpty(t, recs)
	assert.LessOrEqual(t, len(recs), MaxRecommendations)

	analysis, _ := g.AnalyzeContent(ctx, "text", ProviderAuto)
	assert.Len(t, analysis.KeyPoints, 3)

	suggestions, _ := g.GenerateProjectSuggestions(ctx, "video", "Doc", "", ProviderAuto)
	assert.Contains(t, suggestions.Sections, "Research")
	assert.NotEmpty(t, suggestions.Tasks)

	summary := g.Summarize(ctx, "long text", 0, ProviderAuto)
	assert.Equal(t, analysisText, summary.Content)
}

func TestAssistantResponseCarriesProjectContext(t *testing.T) {
	v := &fakeVendor{name: ProviderGemini, reply: "ok"}
	g := New(0, v)

	c := g.GenerateAssistantResponse(context.Background(), "hi", "Project: Doc, Type: video", ProviderAuto)
	assert.Equal(t, ProviderGemini, c.Provider)
	require.Len(t, v.last, 2)
	assert.Contains(t, v.last[0].Content, "Project: Doc, Type: video")
	assert.Equal(t, "hi", v.last[1].Content)
}

func TestAnthropicVendor(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		System    []struct {
			Text string `json:"text"`
		} `json:"system"`
		Messages []struct {
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-7-sonnet-20250219",
			"content":[{"type":"text","text":"hello "},{"type":"text","text":"there"}],
			"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":2}}`)
	}))
	defer srv.Close()

	v := NewAnthropicVendor("key", DefaultAnthropicModel, srv.URL+"/", srv.Client())
	out, err := v.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "again"},
	}, true)
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)

	assert.Equal(t, DefaultAnthropicModel, got.Model)
	assert.Equal(t, anthropicMaxTokens, got.MaxTokens)
	require.Len(t, got.System, 1)
	assert.True(t, strings.HasPrefix(got.System[0].Text, "be brief"))
	assert.Contains(t, got.System[0].Text, jsonInstruction)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, RoleUser, got.Messages[0].Role)
	assert.Equal(t, RoleAssistant, got.Messages[1].Role)
	require.Len(t, got.Messages[2].Content, 1)
	assert.Equal(t, "again", got.Messages[2].Content[0].Text)
}

func TestAnthropicVendorError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer srv.Close()

	v := NewAnthropicVendor("key", DefaultAnthropicModel, srv.URL, srv.Client())
	_, err := v.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
	assert.EqualValues(t, 1, calls.Load(), "no SDK retries")

	g := New(0, v)
	c := g.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, false, ProviderAnthropic)
	assert.Equal(t, ProviderMock, c.Provider)
}

func TestDeepSeekVendor(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"1","object":"chat.completion","created":1,"model":"deepseek-chat",
			"choices":[{"index":0,"message":{"role":"assistant","content":"{\"ok\":true}"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	v := NewDeepSeekVendor("key", DefaultDeepSeekModel, srv.URL+"/v1", srv.Client())
	out, err := v.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, true)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, "deepseek-chat", body["model"])
	format, ok := body["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
}

func TestDeepSeekRecommendationsKeepModelOutput(t *testing.T) {
	var system string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		for _, m := range body.Messages {
			if m.Role == RoleSystem {
				system += m.Content
			}
		}
		content, _ := json.Marshal(`{"recommendations":[{"type":"break","title":"Walk around the block","icon":"directions_walk","actionText":"Start"}]}`)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"1","object":"chat.completion","created":1,"model":"deepseek-chat",
			"choices":[{"index":0,"message":{"role":"assistant","content":`+string(content)+`},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	g := New(0, NewDeepSeekVendor("key", DefaultDeepSeekModel, srv.URL+"/v1", srv.Client()))
	recs, p := g.GenerateProductivityRecommendations(context.Background(), map[string]any{"focusMinutes": 120}, ProviderDeepSeek)
	assert.Equal(t, ProviderDeepSeek, p)
	require.Len(t, recs, 1)
	assert.Equal(t, "Walk around the block", recs[0].Title)
	assert.Contains(t, system, `{"recommendations": [`)
}

func TestDeepSeekPaymentRequiredFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		io.WriteString(w, `{"error":{"message":"Insufficient Balance","type":"unknown_error"}}`)
	}))
	defer srv.Close()

	g := New(0, NewDeepSeekVendor("key", DefaultDeepSeekModel, srv.URL+"/v1", srv.Client()))
	c := g.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hello"}}, false, ProviderAuto)
	assert.Equal(t, ProviderMock, c.Provider)
	assert.Equal(t, demoModeText, c.Content)
}

func TestNewFromConfigWithoutKeys(t *testing.T) {
	g, err := NewFromConfig(context.Background(), Config{})
	require.NoError(t, err)
	assert.Empty(t, g.Configured())
	assert.Equal(t, ProviderMock, g.Resolve(ProviderAuto))
	g.Close()
}
