package llm

import (
	"context"
	"fmt"
	"log"
	"time"
)

const (
	DefaultGeminiModel      = "gemini-1.5-flash-latest"
	DefaultAnthropicModel   = "claude-3-7-sonnet-20250219"
	DefaultAnthropicBaseURL = "https://api.anthropic.com"
	DefaultDeepSeekModel    = "deepseek-chat"
	DefaultDeepSeekBaseURL  = "https://api.deepseek.com/v1"
)

// Config holds vendor credentials. A vendor with an empty key is not configured.
type Config struct {
	GeminiAPIKey string
	GeminiModel  string

	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string

	DeepSeekAPIKey  string
	DeepSeekModel   string
	DeepSeekBaseURL string

	Timeout time.Duration
	Debug   bool
}

// NewFromConfig builds a Gateway with one vendor per configured credential.
func NewFromConfig(ctx context.Context, cfg Config) (*Gateway, error) {
	var vendors []Vendor

	if cfg.GeminiAPIKey != "" {
		gv, err := NewGeminiVendor(ctx, cfg.GeminiAPIKey, orDefault(cfg.GeminiModel, DefaultGeminiModel))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		vendors = append(vendors, gv)
	}
	if cfg.AnthropicAPIKey != "" {
		vendors = append(vendors, NewAnthropicVendor(
			cfg.AnthropicAPIKey,
			orDefault(cfg.AnthropicModel, DefaultAnthropicModel),
			orDefault(cfg.AnthropicBaseURL, DefaultAnthropicBaseURL),
			nil,
		))
	}
	if cfg.DeepSeekAPIKey != "" {
		vendors = append(vendors, NewDeepSeekVendor(
			cfg.DeepSeekAPIKey,
			orDefault(cfg.DeepSeekModel, DefaultDeepSeekModel),
			orDefault(cfg.DeepSeekBaseURL, DefaultDeepSeekBaseURL),
			nil,
		))
	}

	g := New(cfg.Timeout, vendors...)
	g.SetDebug(cfg.Debug)
	if len(vendors) == 0 {
		log.Println("No AI provider credentials configured, assistant features run in demo mode")
	} else {
		log.Printf("AI providers configured: %v", g.Configured())
	}
	return g, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
