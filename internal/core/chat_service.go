package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"windryft.app/pocket-windryft/internal/llm"
	"windryft.app/pocket-windryft/internal/store"
)

type MessageStore interface {
	CreateAssistantMessage(ctx context.Context, msg *store.AssistantMessage, now time.Time) (*store.AssistantMessage, error)
	ListAssistantMessages(ctx context.Context, userID int64, projectID *int64) ([]store.AssistantMessage, error)
	GetProject(ctx context.Context, id int64) (*store.Project, error)
}

type Assistant interface {
	GenerateAssistantResponse(ctx context.Context, message, projectContext string, provider llm.Provider) llm.Completion
}

type ChatService struct {
	store     MessageStore
	assistant Assistant
	now       func() time.Time
}

func NewChatService(st MessageStore, assistant Assistant) *ChatService {
	return &ChatService{store: st, assistant: assistant, now: utcNow}
}

type NewMessage struct {
	UserID    int64
	ProjectID *int64
	Content   string
	Sender    string
	Provider  llm.Provider
}

// Exchange is the result of posting a message. A user message is answered,
// so both halves are set; a posted assistant message only fills AssistantMessage.
type Exchange struct {
	UserMessage      *store.AssistantMessage `json:"userMessage,omitempty"`
	AssistantMessage *store.AssistantMessage `json:"assistantMessage"`
}

func (s *ChatService) Messages(ctx context.Context, userID int64, projectID *int64) ([]store.AssistantMessage, error) {
	return s.store.ListAssistantMessages(ctx, userID, projectID)
}

// PostMessage stores the message and, when the user sent it, stores the assistant's reply too.
func (s *ChatService) PostMessage(ctx context.Context, in NewMessage) (*Exchange, error) {
	if in.Sender == store.SenderAssistant {
		msg := &store.AssistantMessage{UserID: in.UserID, ProjectID: in.ProjectID, Content: in.Content, Sender: store.SenderAssistant}
		if in.Provider != "" && in.Provider != llm.ProviderAuto {
			p := string(in.Provider)
			msg.Provider = &p
		}
		saved, err := s.store.CreateAssistantMessage(ctx, msg, s.now())
		if err != nil {
			return nil, fmt.Errorf("failed to store assistant message: %w", err)
		}
		return &Exchange{AssistantMessage: saved}, nil
	}

	userMsg, err := s.store.CreateAssistantMessage(ctx, &store.AssistantMessage{
		UserID:    in.UserID,
		ProjectID: in.ProjectID,
		Content:   in.Content,
		Sender:    store.SenderUser,
	}, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}

	reply := s.assistant.GenerateAssistantResponse(ctx, in.Content, s.projectContext(ctx, in.ProjectID), in.Provider)

	provider := string(reply.Provider)
	assistantMsg, err := s.store.CreateAssistantMessage(ctx, &store.AssistantMessage{
		UserID:    in.UserID,
		ProjectID: in.ProjectID,
		Content:   reply.Content,
		Sender:    store.SenderAssistant,
		Provider:  &provider,
	}, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to store assistant reply: %w", err)
	}
	return &Exchange{UserMessage: userMsg, AssistantMessage: assistantMsg}, nil
}

func (s *ChatService) projectContext(ctx context.Context, projectID *int64) string {
	if projectID == nil {
		return ""
	}
	p, err := s.store.GetProject(ctx, *projectID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Error loading project %d for assistant context: %v", *projectID, err)
		}
		return ""
	}
	return ProjectContext(p)
}

// ProjectContext renders the project summary handed to the assistant.
func ProjectContext(p *store.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s, Type: %s", p.Name, p.Type)
	if p.Description != nil && *p.Description != "" {
		fmt.Fprintf(&b, ", Description: %s", *p.Description)
	}
	return b.String()
}

func utcNow() time.Time {
	return time.Now().UTC()
}
