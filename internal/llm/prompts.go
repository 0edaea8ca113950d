package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
)

const (
	DefaultSummaryLength = 500
	DefaultKeyPoints     = 5
	MaxRecommendations   = 3
)

// AllowedIcons are the icon names the dashboard can render.
var AllowedIcons = []string{
	"tips_and_updates", "local_drink", "fitness_center", "psychology",
	"hotel", "visibility", "schedule", "brightness_5",
}

type Recommendation struct {
	Type                string `json:"type"`
	Title               string `json:"title"`
	Description         string `json:"description"`
	Icon                string `json:"icon"`
	ActionText          string `json:"actionText"`
	SecondaryActionText string `json:"secondaryActionText"`
}

type ContentAnalysis struct {
	Summary     string   `json:"summary"`
	KeyPoints   []string `json:"keyPoints"`
	Suggestions []string `json:"suggestions"`
}

type SuggestedTask struct {
	Name     string `json:"name"`
	Section  string `json:"section"`
	Priority string `json:"priority"`
}

type ProjectSuggestions struct {
	Sections  []string        `json:"sections"`
	Tasks     []SuggestedTask `json:"tasks"`
	Resources []string        `json:"resources"`
}

var (
	defaultRecommendations = []Recommendation{
		{
			Type:                "break",
			Title:               "Schedule strategic breaks",
			Description:         "Taking short breaks every 50-90 minutes can help maintain optimal focus and cognitive function throughout your workday.",
			Icon:                "schedule",
			ActionText:          "Set break timer",
			SecondaryActionText: "Learn more",
		},
		{
			Type:                "focus",
			Title:               "Morning sunlight exposure",
			Description:         "Getting 10-30 minutes of morning sunlight exposure can help regulate your circadian rhythm and improve focus during the day.",
			Icon:                "brightness_5",
			ActionText:          "Set reminder",
			SecondaryActionText: "Read research",
		},
	}

	defaultAnalysis = ContentAnalysis{
		Summary:     "Analysis completed, but encountered an error formatting the results",
		Suggestions: []string{"Try providing more detailed content for better analysis"},
		KeyPoints:   []string{"Unable to extract key points from the provided content"},
	}

	defaultSuggestions = ProjectSuggestions{
		Sections: []string{"Research", "Planning", "Implementation", "Review"},
		Tasks: []SuggestedTask{
			{Name: "Define project scope", Section: "Planning", Priority: "High"},
			{Name: "Gather materials", Section: "Research", Priority: "Medium"},
			{Name: "Create outline", Section: "Planning", Priority: "Medium"},
		},
		Resources: []string{"Productivity books", "Online tutorials", "Research podcasts"},
	}
)

func (g *Gateway) Summarize(ctx context.Context, content string, maxLength int, provider Provider) Completion {
	if maxLength <= 0 {
		maxLength = DefaultSummaryLength
	}
	return g.Complete(ctx, []Message{
		{Role: RoleSystem, Content: fmt.Sprintf("You are an AI assistant specialized in summarizing content. "+
			"Create a concise summary of the provided content within approximately %d characters. "+
			"The summary should be clear, readable, and capture the main points.", maxLength)},
		{Role: RoleUser, Content: content},
	}, false, provider)
}

func (g *Gateway) ExtractKeyPoints(ctx context.Context, content string, maxPoints int, provider Provider) Completion {
	if maxPoints <= 0 {
		maxPoints = DefaultKeyPoints
	}
	return g.Complete(ctx, []Message{
		{Role: RoleSystem, Content: fmt.Sprintf("You are an AI assistant specialized in extracting key actionable points from content. "+
			"Extract exactly %d important points from the provided content. "+
			"Each point should be concise, clear, and focus on actionable information. "+
			"Format as a numbered list with one key point per line.", maxPoints)},
		{Role: RoleUser, Content: content},
	}, false, provider)
}

func (g *Gateway) AnalyzeContent(ctx context.Context, content string, provider Provider) (ContentAnalysis, Provider) {
	c := g.Complete(ctx, []Message{
		{Role: RoleSystem, Content: "You are an AI assistant specialized in content analysis. " +
			"Analyze the provided content and provide insights in JSON format with the keys summary, keyPoints and suggestions."},
		{Role: RoleUser, Content: content},
	}, true, provider)
	return decodeOr(c.Content, defaultAnalysis), c.Provider
}

// GenerateAssistantResponse answers a chat message. projectContext describes
// the project the conversation belongs to, or is empty for general chat.
func (g *Gateway) GenerateAssistantResponse(ctx context.Context, message, projectContext string, provider Provider) Completion {
	system := "You are an AI assistant in a productivity app called Pocket WinDryft Pro. " +
		"You help users with their projects by providing suggestions, organizing information, and answering questions."
	if projectContext != "" {
		system += "\nContext about the current project: " + projectContext
	}
	return g.Complete(ctx, []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: message},
	}, false, provider)
}

// GenerateProductivityRecommendations returns between one and MaxRecommendations items.
func (g *Gateway) GenerateProductivityRecommendations(ctx context.Context, workData any, provider Provider) ([]Recommendation, Provider) {
	data, err := json.Marshal(workData)
	if err != nil {
		data = []byte("{}")
	}
	c := g.Complete(ctx, []Message{
		{Role: RoleSystem, Content: "You are an AI assistant in a productivity app called Pocket WinDryft Pro. " +
			"Generate 1-3 personalized productivity recommendations based on the user's work data. " +
			"Respond with a JSON object in the format: " +
			`{"recommendations": [{ "type": string, "title": string, "description": string, "icon": string, "actionText": string, "secondaryActionText": string }]} ` +
			"For icon, use one of: " + strings.Join(AllowedIcons, ", ") + ". " +
			"Keep recommendations brief, practical and science-based (focused on high-performance productivity techniques)."},
		{Role: RoleUser, Content: "Generate productivity recommendations based on this work data: " + string(data)},
	}, true, provider)
	return decodeRecommendations(c.Content), c.Provider
}

func (g *Gateway) GenerateProjectSuggestions(ctx context.Context, projectType, projectName, projectDescription string, provider Provider) (ProjectSuggestions, Provider) {
	c := g.Complete(ctx, []Message{
		{Role: RoleSystem, Content: "You are an AI assistant specialized in project management. " +
			"Generate helpful suggestions for organizing a new project. " +
			`Provide suggestions in JSON format with sections (list of strings), tasks (list of {"name", "section", "priority"}), and resources (list of strings).`},
		{Role: RoleUser, Content: fmt.Sprintf("I'm creating a new %s project called %q. Description: %q. Please provide suggestions for organizing this project.",
			projectType, projectName, projectDescription)},
	}, true, provider)
	return decodeOr(c.Content, defaultSuggestions), c.Provider
}

// decodeOr parses raw as JSON into T, returning fallback when it does not parse.
func decodeOr[T any](raw string, fallback T) T {
	var out T
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &out); err != nil {
		log.Printf("Could not parse AI JSON response as %T, using default: %v", out, err)
		return fallback
	}
	return out
}

func decodeRecommendations(raw string) []Recommendation {
	recs := parseRecommendations(stripCodeFence(raw))

	out := make([]Recommendation, 0, MaxRecommendations)
	for _, r := range recs {
		if strings.TrimSpace(r.Title) == "" {
			continue
		}
		if !allowedIcon(r.Icon) {
			r.Icon = "tips_and_updates"
		}
		if r.Type == "" {
			r.Type = "focus"
		}
		out = append(out, r)
		if len(out) == MaxRecommendations {
			break
		}
	}
	if len(out) == 0 {
		return append(out, defaultRecommendations...)
	}
	return out
}

// parseRecommendations accepts a bare list, a list wrapped in an object under
// any key, or a single recommendation object.
func parseRecommendations(cleaned string) []Recommendation {
	var list []Recommendation
	if err := json.Unmarshal([]byte(cleaned), &list); err == nil {
		return list
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		log.Printf("Could not parse AI recommendations, using defaults: %v", err)
		return nil
	}
	if _, ok := obj["title"]; ok {
		var single Recommendation
		if err := json.Unmarshal([]byte(cleaned), &single); err == nil {
			return []Recommendation{single}
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		if k != "recommendations" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	keys = append([]string{"recommendations"}, keys...)
	for _, k := range keys {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		var wrapped []Recommendation
		if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped) > 0 {
			return wrapped
		}
	}
	log.Printf("AI recommendations object held no recommendation list, using defaults")
	return nil
}

func allowedIcon(icon string) bool {
	for _, a := range AllowedIcons {
		if a == icon {
			return true
		}
	}
	return false
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
