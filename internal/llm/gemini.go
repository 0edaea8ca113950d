package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type GeminiVendor struct {
	client *genai.Client
	model  string
}

func NewGeminiVendor(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*GeminiVendor, error) {
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &GeminiVendor{client: client, model: model}, nil
}

func (v *GeminiVendor) Name() Provider { return ProviderGemini }

func (v *GeminiVendor) Close() error {
	return v.client.Close()
}

func (v *GeminiVendor) Complete(ctx context.Context, messages []Message, jsonFormat bool) (string, error) {
	model := v.client.GenerativeModel(v.model)
	model.SetTemperature(0.7)

	system, history := geminiContents(messages)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if jsonFormat {
		model.ResponseMIMEType = "application/json"
	}

	if len(history) == 0 {
		return "", fmt.Errorf("no user message to send to gemini")
	}
	last := history[len(history)-1]
	if last.Role != "user" {
		return "", fmt.Errorf("last message in history is not from 'user', cannot proceed with chat completion")
	}

	chat := model.StartChat()
	chat.History = history[:len(history)-1]

	resp, err := chat.SendMessage(ctx, last.Parts...)
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			log.Printf("Gemini API error %d: %s", gerr.Code, gerr.Message)
		}
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini response had no candidates")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		} else {
			log.Printf("Gemini response part was not text: %T", part)
		}
	}
	return text.String(), nil
}

// geminiContents maps the generic roles onto Gemini's user/model turns and
// lifts system messages into the system instruction.
func geminiContents(messages []Message) (string, []*genai.Content) {
	system, turns := splitSystem(messages)
	history := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return system, history
}
