package api

import (
	"net/http"
	"strconv"

	"windryft.app/pocket-windryft/internal/core"
	"windryft.app/pocket-windryft/internal/llm"
	"windryft.app/pocket-windryft/internal/store"
)

func (h *APIHandler) ListRecommendationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId", "user ID")
	if !ok {
		return
	}
	recs, err := h.store.ListRecommendations(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to list recommendations")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

type UpdateRecommendationRequest struct {
	IsCompleted *bool `json:"isCompleted" validate:"required"`
}

func (h *APIHandler) UpdateRecommendationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "recommendation ID")
	if !ok {
		return
	}
	var req UpdateRecommendationRequest
	if !h.decode(w, r, &req, "Invalid recommendation data") {
		return
	}
	rec, err := h.store.UpdateRecommendation(r.Context(), id, *req.IsCompleted)
	if err != nil {
		writeError(w, err, "Failed to update recommendation")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type GenerateRecommendationsRequest struct {
	WorkData map[string]any `json:"workData"`
	Provider string         `json:"provider"`
}

func (h *APIHandler) GenerateRecommendationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId", "user ID")
	if !ok {
		return
	}
	var req GenerateRecommendationsRequest
	if !h.decode(w, r, &req, "Invalid recommendation request") {
		return
	}
	recs, err := h.recommendations.Generate(r.Context(), userID, req.WorkData, llm.ParseProvider(req.Provider))
	if err != nil {
		writeError(w, err, "Failed to generate recommendations")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *APIHandler) ListAssistantMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId", "user ID")
	if !ok {
		return
	}
	var projectID *int64
	if raw := r.URL.Query().Get("projectId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid project ID")
			return
		}
		projectID = &id
	}
	messages, err := h.chat.Messages(r.Context(), userID, projectID)
	if err != nil {
		writeError(w, err, "Failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

type PostMessageRequest struct {
	UserID    int64  `json:"userId" validate:"required"`
	ProjectID *int64 `json:"projectId"`
	Content   string `json:"content" validate:"required"`
	Sender    string `json:"sender" validate:"required,oneof=user assistant"`
	Provider  string `json:"provider"`
}

// PostMessageHandler stores a message. A user message is answered by the
// assistant and both halves of the exchange are returned.
func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if !h.decode(w, r, &req, "Invalid message data") {
		return
	}

	provider := llm.ParseProvider(req.Provider)
	if req.Sender == store.SenderAssistant && req.Provider == string(llm.ProviderMock) {
		provider = llm.ProviderMock
	}

	exchange, err := h.chat.PostMessage(r.Context(), core.NewMessage{
		UserID:    req.UserID,
		ProjectID: req.ProjectID,
		Content:   req.Content,
		Sender:    req.Sender,
		Provider:  provider,
	})
	if err != nil {
		writeError(w, err, "Failed to create message")
		return
	}
	if exchange.UserMessage == nil {
		writeJSON(w, http.StatusCreated, exchange.AssistantMessage)
		return
	}
	writeJSON(w, http.StatusCreated, exchange)
}

type SummarizeRequest struct {
	Content   string `json:"content" validate:"required"`
	MaxLength int    `json:"maxLength" validate:"omitempty,min=1"`
	Format    string `json:"format"`
	MaxPoints int    `json:"maxPoints" validate:"omitempty,min=1,max=50"`
	Provider  string `json:"provider"`
}

func (h *APIHandler) SummarizeHandler(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if !h.decode(w, r, &req, "Content is required") {
		return
	}
	summary := h.content.Summarize(r.Context(), core.SummarizeRequest{
		Content:   req.Content,
		MaxLength: req.MaxLength,
		Format:    req.Format,
		MaxPoints: req.MaxPoints,
		Provider:  llm.ParseProvider(req.Provider),
	})
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

type AnalyzeContentRequest struct {
	Content  string `json:"content" validate:"required"`
	Provider string `json:"provider"`
}

func (h *APIHandler) AnalyzeContentHandler(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeContentRequest
	if !h.decode(w, r, &req, "Content is required") {
		return
	}
	writeJSON(w, http.StatusOK, h.content.Analyze(r.Context(), req.Content, llm.ParseProvider(req.Provider)))
}

type ProjectSuggestionsRequest struct {
	ProjectType        string `json:"projectType" validate:"required"`
	ProjectName        string `json:"projectName" validate:"required"`
	ProjectDescription string `json:"projectDescription"`
	Provider           string `json:"provider"`
}

func (h *APIHandler) ProjectSuggestionsHandler(w http.ResponseWriter, r *http.Request) {
	var req ProjectSuggestionsRequest
	if !h.decode(w, r, &req, "Project type and name are required") {
		return
	}
	suggestions := h.content.ProjectSuggestions(r.Context(), req.ProjectType, req.ProjectName, req.ProjectDescription, llm.ParseProvider(req.Provider))
	writeJSON(w, http.StatusOK, suggestions)
}
