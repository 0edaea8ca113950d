package llm

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"
)

type Provider string

const (
	ProviderAuto      Provider = "auto"
	ProviderGemini    Provider = "gemini"
	ProviderAnthropic Provider = "anthropic"
	ProviderDeepSeek  Provider = "deepseek"
	// ProviderMock identifies locally generated fallback content.
	ProviderMock Provider = "mock"
)

// preference is the order auto resolution walks.
var preference = []Provider{ProviderGemini, ProviderAnthropic, ProviderDeepSeek}

// ParseProvider maps a request value to a Provider. Empty and unknown values mean auto.
func ParseProvider(s string) Provider {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderGemini, ProviderAnthropic, ProviderDeepSeek:
		return p
	default:
		return ProviderAuto
	}
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Vendor is one language-model backend.
type Vendor interface {
	Name() Provider
	Complete(ctx context.Context, messages []Message, jsonFormat bool) (string, error)
}

type Completion struct {
	Content  string
	Provider Provider
}

const DefaultTimeout = 30 * time.Second

// Gateway picks a configured vendor for each request and substitutes
// placeholder content when none is configured or the call fails.
type Gateway struct {
	vendors map[Provider]Vendor
	timeout time.Duration
	debug   bool
}

func New(timeout time.Duration, vendors ...Vendor) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	g := &Gateway{vendors: make(map[Provider]Vendor), timeout: timeout}
	for _, v := range vendors {
		if v != nil {
			g.vendors[v.Name()] = v
		}
	}
	return g
}

// SetDebug enables per-call tracing.
func (g *Gateway) SetDebug(on bool) {
	g.debug = on
}

// Configured lists the vendors with credentials, in preference order.
func (g *Gateway) Configured() []Provider {
	out := []Provider{}
	for _, p := range preference {
		if _, ok := g.vendors[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Resolve maps a requested provider onto a configured vendor, or ProviderMock.
func (g *Gateway) Resolve(requested Provider) Provider {
	if requested != ProviderAuto && requested != "" {
		if _, ok := g.vendors[requested]; ok {
			return requested
		}
		if requested != ProviderMock {
			log.Printf("AI provider %q requested but not configured, falling back to auto selection", requested)
		}
	}
	for _, p := range preference {
		if _, ok := g.vendors[p]; ok {
			return p
		}
	}
	return ProviderMock
}

// Complete never fails: vendor errors and missing credentials both yield
// fallback content attributed to ProviderMock.
func (g *Gateway) Complete(ctx context.Context, messages []Message, jsonFormat bool, requested Provider) Completion {
	provider := g.Resolve(requested)
	if provider == ProviderMock {
		return Completion{Content: fallbackContent(messages, jsonFormat), Provider: ProviderMock}
	}

	if g.debug {
		log.Printf("AI request via %s: %d messages, %d chars, json=%t", provider, len(messages), promptSize(messages), jsonFormat)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	content, err := g.vendors[provider].Complete(callCtx, messages, jsonFormat)
	if err == nil && strings.TrimSpace(content) == "" {
		err = fmt.Errorf("%s returned an empty response", provider)
	}
	if err != nil {
		log.Printf("AI call to %s failed after %s, using fallback: %v", provider, time.Since(start).Round(time.Millisecond), err)
		return Completion{Content: fallbackContent(messages, jsonFormat), Provider: ProviderMock}
	}
	if g.debug {
		log.Printf("AI response from %s in %s: %d chars", provider, time.Since(start).Round(time.Millisecond), len(content))
	}
	return Completion{Content: content, Provider: provider}
}

// Close releases vendor clients that hold connections.
func (g *Gateway) Close() {
	for name, v := range g.vendors {
		if c, ok := v.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Printf("Error closing %s client: %v", name, err)
			}
		}
	}
}

func promptSize(messages []Message) int {
	n := 0
	for _, m := range messages {
		n += len(m.Content)
	}
	return n
}

// splitSystem separates system instructions from the conversation turns.
func splitSystem(messages []Message) (string, []Message) {
	var system []string
	var turns []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	return strings.Join(system, "\n\n"), turns
}

const jsonInstruction = "Respond only with valid JSON. Do not wrap the JSON in Markdown code fences."
