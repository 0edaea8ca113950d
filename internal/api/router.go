package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(h *APIHandler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)

		r.Post("/auth/login", h.LoginHandler)
		r.Post("/auth/register", h.RegisterHandler)
		r.With(h.JWTAuthMiddleware).Get("/auth/me", h.MeHandler)
		r.Get("/user/{id}", h.GetUserHandler)

		r.Get("/projects", h.ListProjectsHandler)
		r.Post("/projects", h.CreateProjectHandler)
		r.Get("/project/{id}", h.GetProjectHandler)
		r.Put("/project/{id}", h.UpdateProjectHandler)
		r.Delete("/project/{id}", h.DeleteProjectHandler)
		r.Post("/project/{id}/files", h.UploadFileHandler)
		r.Get("/project/{id}/files", h.ListFilesHandler)
		r.Get("/project-file/{id}", h.DownloadFileHandler)
		r.Delete("/project-file/{id}", h.DeleteFileHandler)

		r.Get("/project-templates", h.ListTemplatesHandler)
		r.Get("/project-template/{id}", h.GetTemplateHandler)
		r.Get("/project-template/type/{type}", h.GetTemplateByTypeHandler)

		r.Get("/work-sessions/{userId}", h.ListWorkSessionsHandler)
		r.Get("/work-sessions/project/{projectId}", h.ListProjectWorkSessionsHandler)
		r.Post("/work-sessions", h.StartWorkSessionHandler)
		r.Get("/work-session/current/{userId}", h.CurrentWorkSessionHandler)
		r.Put("/work-session/{id}", h.UpdateWorkSessionHandler)
		r.Post("/work-session/{id}/end", h.EndWorkSessionHandler)

		r.Get("/recommendations/{userId}", h.ListRecommendationsHandler)
		r.Put("/recommendation/{id}", h.UpdateRecommendationHandler)
		r.Post("/recommendations/generate/{userId}", h.GenerateRecommendationsHandler)

		r.Get("/assistant-messages/{userId}", h.ListAssistantMessagesHandler)
		r.Post("/assistant-messages", h.PostMessageHandler)

		r.Get("/analytics/{userId}", h.AnalyticsHandler)
		r.Put("/analytics/{userId}", h.UpsertAnalyticsHandler)

		r.Post("/summarize", h.SummarizeHandler)
		r.Post("/analyze-content", h.AnalyzeContentHandler)
		r.Post("/project-suggestions", h.ProjectSuggestionsHandler)
	})

	return r
}
