package api

import (
	"errors"
	"net/http"

	"windryft.app/pocket-windryft/internal/store"
)

func (h *APIHandler) ListWorkSessionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId", "user ID")
	if !ok {
		return
	}
	sessions, err := h.store.ListWorkSessions(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to list work sessions")
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *APIHandler) ListProjectWorkSessionsHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectId", "project ID")
	if !ok {
		return
	}
	sessions, err := h.store.ListWorkSessionsByProject(r.Context(), projectID)
	if err != nil {
		writeError(w, err, "Failed to list work sessions")
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *APIHandler) CurrentWorkSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId", "user ID")
	if !ok {
		return
	}
	ws, err := h.sessions.Current(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "No active work session")
			return
		}
		writeError(w, err, "Failed to load current work session")
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

type StartWorkSessionRequest struct {
	UserID    int64  `json:"userId" validate:"required"`
	ProjectID *int64 `json:"projectId"`
	Type      string `json:"type"`
}

// StartWorkSessionHandler ends any session the user still has open before
// starting the new one.
func (h *APIHandler) StartWorkSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req StartWorkSessionRequest
	if !h.decode(w, r, &req, "Invalid work session data") {
		return
	}
	ws, err := h.sessions.Start(r.Context(), req.UserID, req.ProjectID, req.Type)
	if err != nil {
		writeError(w, err, "Failed to create work session")
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

type UpdateWorkSessionRequest struct {
	Notes       *string `json:"notes"`
	IsFlowState *bool   `json:"isFlowState"`
}

func (h *APIHandler) UpdateWorkSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "session ID")
	if !ok {
		return
	}
	var req UpdateWorkSessionRequest
	if !h.decode(w, r, &req, "Invalid work session data") {
		return
	}
	ws, err := h.store.UpdateWorkSession(r.Context(), id, req.Notes, req.IsFlowState)
	if err != nil {
		writeError(w, err, "Failed to update work session")
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (h *APIHandler) EndWorkSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "session ID")
	if !ok {
		return
	}
	ws, err := h.sessions.End(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to end work session")
		return
	}
	writeJSON(w, http.StatusOK, ws)
}
