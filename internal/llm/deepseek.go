package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// DeepSeekVendor uses DeepSeek's OpenAI-compatible chat completions endpoint.
type DeepSeekVendor struct {
	client *openai.Client
	model  string
}

// NewDeepSeekVendor points an OpenAI client at baseURL. A nil httpClient uses the library default.
func NewDeepSeekVendor(apiKey, model, baseURL string, httpClient *http.Client) *DeepSeekVendor {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &DeepSeekVendor{client: openai.NewClientWithConfig(cfg), model: model}
}

func (v *DeepSeekVendor) Name() Provider { return ProviderDeepSeek }

func (v *DeepSeekVendor) Complete(ctx context.Context, messages []Message, jsonFormat bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       v.model,
		Temperature: 0.7,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	if jsonFormat {
		// json_object mode requires the prompt itself to ask for JSON.
		req.Messages = append([]openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: jsonInstruction}}, req.Messages...)
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := v.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusPaymentRequired {
			log.Printf("DeepSeek API subscription issue: payment required, the API key may have billing issues")
		}
		return "", fmt.Errorf("deepseek chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("deepseek response had no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
