package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 1000

type AnthropicVendor struct {
	client anthropic.Client
	model  string
}

// NewAnthropicVendor talks to the Messages API at baseURL. A nil httpClient uses the SDK default.
// Retries are left to the gateway fallback.
func NewAnthropicVendor(apiKey, model, baseURL string, httpClient *http.Client) *AnthropicVendor {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &AnthropicVendor{client: anthropic.NewClient(opts...), model: model}
}

func (v *AnthropicVendor) Name() Provider { return ProviderAnthropic }

func (v *AnthropicVendor) Complete(ctx context.Context, messages []Message, jsonFormat bool) (string, error) {
	system, turns := splitSystem(messages)
	if jsonFormat {
		system = strings.TrimSpace(system + "\n\n" + jsonInstruction)
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(v.model),
		MaxTokens:   anthropicMaxTokens,
		Temperature: anthropic.Float(0.7),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, m := range turns {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}
	if len(params.Messages) == 0 {
		return "", fmt.Errorf("no user message to send to anthropic")
	}

	msg, err := v.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			switch apiErr.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				log.Printf("Anthropic API rejected the key (status %d), check ANTHROPIC_API_KEY", apiErr.StatusCode)
			case http.StatusTooManyRequests:
				log.Printf("Anthropic API rate limit reached")
			case 529:
				log.Printf("Anthropic API is overloaded")
			}
			return "", fmt.Errorf("anthropic API returned status %d: %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}
