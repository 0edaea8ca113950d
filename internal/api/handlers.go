package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"windryft.app/pocket-windryft/internal/auth"
	"windryft.app/pocket-windryft/internal/core"
	"windryft.app/pocket-windryft/internal/filestore"
	"windryft.app/pocket-windryft/internal/llm"
	"windryft.app/pocket-windryft/internal/store"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// Deps are the collaborators the handlers are built from.
type Deps struct {
	Store          *store.Store
	Gateway        *llm.Gateway
	Files          filestore.Storage
	Tokens         *auth.TokenIssuer
	MaxUploadBytes int64
}

type APIHandler struct {
	store          *store.Store
	gateway        *llm.Gateway
	files          filestore.Storage
	tokens         *auth.TokenIssuer
	maxUploadBytes int64

	sessions        *core.SessionService
	chat            *core.ChatService
	recommendations *core.RecommendationService
	content         *core.ContentService

	validate *validator.Validate
	now      func() time.Time
}

func NewAPIHandler(d Deps) *APIHandler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	maxUpload := d.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}

	return &APIHandler{
		store:           d.Store,
		gateway:         d.Gateway,
		files:           d.Files,
		tokens:          d.Tokens,
		maxUploadBytes:  maxUpload,
		sessions:        core.NewSessionService(d.Store),
		chat:            core.NewChatService(d.Store, d.Gateway),
		recommendations: core.NewRecommendationService(d.Store, d.Gateway),
		content:         core.NewContentService(d.Gateway),
		validate:        v,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorResponse struct {
	Message string       `json:"message"`
	Errors  []fieldError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

// writeError maps store and service errors to status codes. Anything
// unrecognised is logged and reported as a 500 with the given message.
func writeError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, filestore.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Not found")
	case errors.Is(err, store.ErrConflict):
		writeMessage(w, http.StatusConflict, "Conflict")
	case errors.Is(err, store.ErrSessionEnded):
		writeMessage(w, http.StatusConflict, "Work session already ended")
	case errors.Is(err, core.ErrInvalidSessionType):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Message: "Invalid work session data",
			Errors:  []fieldError{{Field: "type", Message: "must be one of focus, break, meeting"}},
		})
	default:
		log.Printf("%s: %v", message, err)
		writeMessage(w, http.StatusInternalServerError, message)
	}
}

// decode reads a JSON body into dst and runs its validate tags. An empty body
// decodes as the zero value. On failure it writes the 400 response and returns false.
func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, dst any, invalidMessage string) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeMessage(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeMessage(w, http.StatusBadRequest, invalidMessage)
			return false
		}
		resp := errorResponse{Message: invalidMessage}
		for _, fe := range verrs {
			resp.Errors = append(resp.Errors, fieldError{Field: fe.Field(), Message: validationMessage(fe)})
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// pathID parses the named URL parameter, writing a 400 when it is not an integer.
func pathID(w http.ResponseWriter, r *http.Request, name, label string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid "+label)
		return 0, false
	}
	return id, true
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeMessage(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := h.tokens.Validate(tokenString)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type authResponse struct {
	*store.User
	Token string `json:"token"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req, "Username and password are required") {
		return
	}

	user, err := h.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, err, "Failed to log in")
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.Password) {
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.writeAuth(w, http.StatusOK, user)
}

type RegisterRequest struct {
	Username string  `json:"username" validate:"required,min=3,max=64"`
	Password string  `json:"password" validate:"required,min=6"`
	Email    string  `json:"email" validate:"required,email"`
	Name     string  `json:"name" validate:"required"`
	Avatar   *string `json:"avatar"`
}

func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req, "Invalid user data") {
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, err, "Failed to process password")
		return
	}

	user, err := h.store.CreateUser(r.Context(), &store.User{
		Username: req.Username,
		Password: hashedPassword,
		Email:    req.Email,
		Name:     req.Name,
		Avatar:   req.Avatar,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeMessage(w, http.StatusConflict, "Username already exists")
			return
		}
		writeError(w, err, "Failed to create user")
		return
	}

	h.writeAuth(w, http.StatusCreated, user)
}

func (h *APIHandler) writeAuth(w http.ResponseWriter, status int, user *store.User) {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, err, "Failed to generate token")
		return
	}
	writeJSON(w, status, authResponse{User: user, Token: token})
}

func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(userIDKey).(int64)
	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusUnauthorized, "User not found")
			return
		}
		writeError(w, err, "Failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *APIHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "user ID")
	if !ok {
		return
	}
	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, err, "Failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	providers := h.gateway.Configured()
	if err := h.store.Ping(ctx); err != nil {
		log.Printf("Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "providers": providers})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "providers": providers})
}
