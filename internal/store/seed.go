package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

const DemoUsername = "demo"

var defaultTemplates = []ProjectTemplate{
	{Name: "Video Production", Type: "video", Sections: TemplateSections{
		{Name: "Research", Description: "Collect background information and source material"},
		{Name: "Script Drafts", Description: "Write and refine script versions"},
		{Name: "Media Clips", Description: "Organize visual and audio elements"},
		{Name: "Storyboard", Description: "Plan visual sequences and transitions"},
		{Name: "Notes", Description: "General notes and ideas"},
	}},
	{Name: "Research Paper", Type: "research", Sections: TemplateSections{
		{Name: "Literature Review", Description: "Analysis of existing research"},
		{Name: "Methodology", Description: "Research approach and methods"},
		{Name: "Data Collection", Description: "Raw data and observations"},
		{Name: "Analysis", Description: "Data processing and findings"},
		{Name: "Conclusions", Description: "Insights and implications"},
	}},
	{Name: "Practical Guide", Type: "guide", Sections: TemplateSections{
		{Name: "Background", Description: "Context and foundational information"},
		{Name: "Protocol", Description: "Step-by-step instructions"},
		{Name: "Resources", Description: "Supporting materials and references"},
		{Name: "FAQ", Description: "Common questions and answers"},
		{Name: "Case Studies", Description: "Real-world applications and examples"},
	}},
	{Name: "Podcast Episode", Type: "podcast", Sections: TemplateSections{
		{Name: "Topic Research", Description: "Background information on the subject"},
		{Name: "Guest Info", Description: "Notes on interview subjects"},
		{Name: "Questions", Description: "Prepared interview questions"},
		{Name: "Show Notes", Description: "Summary and reference points"},
		{Name: "Follow-up", Description: "Post-recording action items"},
	}},
}

// SeedTemplates inserts the default project templates when none exist.
func (s *Store) SeedTemplates(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM project_templates").Scan(&count); err != nil {
		return fmt.Errorf("failed to count project templates: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, t := range defaultTemplates {
		if _, err := s.CreateTemplate(ctx, &t); err != nil {
			return err
		}
	}
	log.Printf("Seeded %d project templates", len(defaultTemplates))
	return nil
}

// SeedDemoData creates the demo user and a week of sample activity.
// passwordHash is the already-hashed demo password. It is a no-op when the
// demo user exists.
func (s *Store) SeedDemoData(ctx context.Context, passwordHash string, now time.Time) (*User, error) {
	if u, err := s.GetUserByUsername(ctx, DemoUsername); err == nil {
		log.Printf("Demo user already present (id %d), skipping seed", u.ID)
		return u, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := s.SeedTemplates(ctx); err != nil {
		return nil, err
	}

	avatar := "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=32&h=32&fit=crop&crop=faces"
	user, err := s.CreateUser(ctx, &User{
		Username: DemoUsername,
		Password: passwordHash,
		Name:     "Tadeáš Novák",
		Avatar:   &avatar,
	})
	if err != nil {
		return nil, err
	}

	projects := []Project{
		{Name: "McMillions Video", Description: ptr("Documentary style video explainer"), Type: "video",
			Progress: 72, Deadline: ptr("2023-06-30"), ColorCode: "#10B981", Icon: ptr("videocam"), Files: 12, TimeLogged: 495},
		{Name: "Sleep Protocol Guide", Description: ptr("Research-based sleep improvement plan"), Type: "guide",
			Progress: 45, Deadline: ptr("2023-07-03"), ColorCode: "#8B5CF6", Icon: ptr("menu_book"), Files: 8, TimeLogged: 330},
		{Name: "Focus Enhancement", Description: ptr("Cognitive techniques research"), Type: "research",
			Progress: 60, Deadline: ptr("2023-07-06"), ColorCode: "#3B82F6", Icon: ptr("psychology"), Files: 15, TimeLogged: 465},
	}
	var firstProject int64
	for i := range projects {
		p := projects[i]
		p.UserID = user.ID
		p.AIAssistanceEnabled = true
		created, err := s.CreateProject(ctx, &p, now)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			firstProject = created.ID
		}
	}

	recs := []Recommendation{
		{Type: "nsdr", Title: "NSDR Break Recommended", Icon: "tips_and_updates", ActionText: "Start NSDR Session", SecondaryActionText: ptr("Remind Later"),
			Description: "You've been working intensely for 2h 35m. A 10-minute Non-Sleep Deep Rest session now can help consolidate learning and restore focus."},
		{Type: "hydration", Title: "Hydration Check", Icon: "local_drink", ActionText: "Log Hydration", SecondaryActionText: ptr(""),
			Description: "You haven't logged hydration in 2 hours. Maintaining hydration is critical for cognitive performance and focus."},
		{Type: "exercise", Title: "Movement Break Due", Icon: "fitness_center", ActionText: "Start Exercise Timer", SecondaryActionText: ptr("Skip"),
			Description: "Based on your preferences, it's time for a 5-minute exercise break. Brief movement can increase BDNF and boost creativity."},
	}
	for i := range recs {
		r := recs[i]
		r.UserID = user.ID
		if _, err := s.CreateRecommendation(ctx, &r, now); err != nil {
			return nil, err
		}
	}

	conversation := []struct{ sender, content string }{
		{SenderAssistant, "I've analyzed your McMillions video project. Would you like me to help organize research materials or suggest a script outline?"},
		{SenderUser, "I need help organizing the research materials. Can you categorize them by topic?"},
		{SenderAssistant, "I've analyzed your 15 research files and categorized them into: Historical Context (4), Key Characters (5), Legal Proceedings (3), and Impact Analysis (3). Would you like me to create labeled folders?"},
	}
	for i, m := range conversation {
		msg := &AssistantMessage{UserID: user.ID, ProjectID: &firstProject, Content: m.content, Sender: m.sender}
		if _, err := s.CreateAssistantMessage(ctx, msg, now.Add(time.Duration(i)*time.Second)); err != nil {
			return nil, err
		}
	}

	week := []struct{ focus, flow, productivity int }{
		{375, 3, 85}, {480, 4, 95}, {330, 2, 70}, {420, 3, 88}, {390, 3, 82}, {180, 1, 65}, {384, 0, 92},
	}
	for i, d := range week {
		day := now.AddDate(0, 0, i-(len(week)-1)).Format(DateLayout)
		a := &DailyAnalytics{UserID: user.ID, Date: day, FocusTime: d.focus, FlowStates: d.flow, Productivity: d.productivity}
		if _, err := s.UpsertDailyAnalytics(ctx, a); err != nil {
			return nil, err
		}
	}

	if _, _, err := s.StartWorkSession(ctx, user.ID, &firstProject, SessionFocus, now); err != nil {
		return nil, err
	}

	log.Printf("Seeded demo data for user %d", user.ID)
	return user, nil
}

func ptr[T any](v T) *T {
	return &v
}
