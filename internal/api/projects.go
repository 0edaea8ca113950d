package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"windryft.app/pocket-windryft/internal/store"
)

func (h *APIHandler) ListProjectsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Valid user ID query parameter is required")
		return
	}
	projects, err := h.store.ListProjects(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to list projects")
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *APIHandler) GetProjectHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "project ID")
	if !ok {
		return
	}
	project, err := h.store.GetProject(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Project not found")
			return
		}
		writeError(w, err, "Failed to load project")
		return
	}
	writeJSON(w, http.StatusOK, project)
}

type CreateProjectRequest struct {
	Name                string  `json:"name" validate:"required"`
	Type                string  `json:"type" validate:"required"`
	UserID              int64   `json:"userId" validate:"required"`
	Description         *string `json:"description"`
	Deadline            *string `json:"deadline"`
	AIAssistanceEnabled *bool   `json:"aiAssistanceEnabled"`
	ColorCode           string  `json:"colorCode" validate:"required"`
	Icon                *string `json:"icon"`
}

func (h *APIHandler) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !h.decode(w, r, &req, "Invalid project data") {
		return
	}

	p := &store.Project{
		Name:                req.Name,
		Type:                req.Type,
		UserID:              req.UserID,
		Description:         req.Description,
		Deadline:            req.Deadline,
		AIAssistanceEnabled: true,
		ColorCode:           req.ColorCode,
		Icon:                req.Icon,
	}
	if req.AIAssistanceEnabled != nil {
		p.AIAssistanceEnabled = *req.AIAssistanceEnabled
	}

	project, err := h.store.CreateProject(r.Context(), p, h.now())
	if err != nil {
		writeError(w, err, "Failed to create project")
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

type UpdateProjectRequest struct {
	Name                *string `json:"name" validate:"omitempty,min=1"`
	Description         *string `json:"description"`
	Type                *string `json:"type" validate:"omitempty,min=1"`
	Status              *string `json:"status"`
	Progress            *int    `json:"progress" validate:"omitempty,min=0,max=100"`
	Deadline            *string `json:"deadline"`
	AIAssistanceEnabled *bool   `json:"aiAssistanceEnabled"`
	ColorCode           *string `json:"colorCode"`
	Icon                *string `json:"icon"`
}

func (h *APIHandler) UpdateProjectHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "project ID")
	if !ok {
		return
	}
	var req UpdateProjectRequest
	if !h.decode(w, r, &req, "Invalid project data") {
		return
	}

	project, err := h.store.UpdateProject(r.Context(), id, store.ProjectPatch{
		Name:                req.Name,
		Description:         req.Description,
		Type:                req.Type,
		Status:              req.Status,
		Progress:            req.Progress,
		Deadline:            req.Deadline,
		AIAssistanceEnabled: req.AIAssistanceEnabled,
		ColorCode:           req.ColorCode,
		Icon:                req.Icon,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Project not found")
			return
		}
		writeError(w, err, "Failed to update project")
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *APIHandler) DeleteProjectHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "project ID")
	if !ok {
		return
	}
	paths, err := h.store.DeleteProject(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Project not found")
			return
		}
		writeError(w, err, "Failed to delete project")
		return
	}
	h.removeBlobs(r, paths...)
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ListTemplatesHandler(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.ListTemplates(r.Context())
	if err != nil {
		writeError(w, err, "Failed to list project templates")
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *APIHandler) GetTemplateHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "template ID")
	if !ok {
		return
	}
	h.writeTemplate(w, func() (*store.ProjectTemplate, error) { return h.store.GetTemplate(r.Context(), id) })
}

func (h *APIHandler) GetTemplateByTypeHandler(w http.ResponseWriter, r *http.Request) {
	projectType := chi.URLParam(r, "type")
	h.writeTemplate(w, func() (*store.ProjectTemplate, error) { return h.store.GetTemplateByType(r.Context(), projectType) })
}

func (h *APIHandler) writeTemplate(w http.ResponseWriter, get func() (*store.ProjectTemplate, error)) {
	t, err := get()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Project template not found")
			return
		}
		writeError(w, err, "Failed to load project template")
		return
	}
	writeJSON(w, http.StatusOK, t)
}
