package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"

	SessionFocus   = "focus"
	SessionBreak   = "break"
	SessionMeeting = "meeting"

	ProjectStatusActive = "active"
)

type User struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Password string  `json:"-"` // bcrypt hash, never serialized
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	Avatar   *string `json:"avatar"`
}

type Project struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Description         *string   `json:"description"`
	Type                string    `json:"type"`
	UserID              int64     `json:"userId"`
	Status              string    `json:"status"`
	Progress            int       `json:"progress"`
	Deadline            *string   `json:"deadline"`
	AIAssistanceEnabled bool      `json:"aiAssistanceEnabled"`
	CreatedAt           time.Time `json:"createdAt"`
	ColorCode           string    `json:"colorCode"`
	Icon                *string   `json:"icon"`
	Files               int       `json:"files"`
	TimeLogged          int       `json:"timeLogged"` // minutes
}

// ProjectPatch carries a partial project update. Nil fields are left untouched.
type ProjectPatch struct {
	Name                *string
	Description         *string
	Type                *string
	Status              *string
	Progress            *int
	Deadline            *string
	AIAssistanceEnabled *bool
	ColorCode           *string
	Icon                *string
}

type TemplateSection struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Tasks       []string `json:"tasks,omitempty"`
}

// TemplateSections is stored as a JSON document in a text column.
type TemplateSections []TemplateSection

func (t TemplateSections) Value() (driver.Value, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *TemplateSections) Scan(value interface{}) error {
	if value == nil {
		*t = TemplateSections{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported sections column type %T", value)
	}
	return json.Unmarshal(raw, t)
}

type ProjectTemplate struct {
	ID       int64            `json:"id"`
	Name     string           `json:"name"`
	Type     string           `json:"type"`
	Sections TemplateSections `json:"sections"`
}

type WorkSession struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"userId"`
	ProjectID   *int64     `json:"projectId"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`  // nil while the session is active
	Duration    *int       `json:"duration"` // minutes, set on end
	Type        string     `json:"type"`
	Notes       *string    `json:"notes"`
	IsFlowState bool       `json:"isFlowState"`
}

func (w *WorkSession) Active() bool {
	return w.EndTime == nil
}

type Recommendation struct {
	ID                  int64     `json:"id"`
	UserID              int64     `json:"userId"`
	Type                string    `json:"type"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	Icon                string    `json:"icon"`
	ActionText          string    `json:"actionText"`
	SecondaryActionText *string   `json:"secondaryActionText"`
	IsCompleted         bool      `json:"isCompleted"`
	CreatedAt           time.Time `json:"createdAt"`
}

type AssistantMessage struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	ProjectID *int64    `json:"projectId"` // nil for the general conversation
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Provider  *string   `json:"provider"`
	Timestamp time.Time `json:"timestamp"`
}

type DailyAnalytics struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"userId"`
	Date         string `json:"date"` // YYYY-MM-DD
	FocusTime    int    `json:"focusTime"`
	FlowStates   int    `json:"flowStates"`
	Productivity int    `json:"productivity"`
}

type ProjectFile struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"projectId"`
	UserID      int64     `json:"userId"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	StoragePath string    `json:"-"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// DateLayout is the calendar-day format used for analytics rows.
const DateLayout = "2006-01-02"
