package core

import (
	"context"

	"windryft.app/pocket-windryft/internal/llm"
)

type ContentGateway interface {
	Summarize(ctx context.Context, content string, maxLength int, provider llm.Provider) llm.Completion
	ExtractKeyPoints(ctx context.Context, content string, maxPoints int, provider llm.Provider) llm.Completion
	AnalyzeContent(ctx context.Context, content string, provider llm.Provider) (llm.ContentAnalysis, llm.Provider)
	GenerateProjectSuggestions(ctx context.Context, projectType, projectName, projectDescription string, provider llm.Provider) (llm.ProjectSuggestions, llm.Provider)
}

const FormatKeyPoints = "key_points"

type ContentService struct {
	gateway ContentGateway
}

func NewContentService(g ContentGateway) *ContentService {
	return &ContentService{gateway: g}
}

type SummarizeRequest struct {
	Content   string
	MaxLength int
	Format    string
	MaxPoints int
	Provider  llm.Provider
}

// Summarize produces prose, or a numbered list when Format is key_points.
func (s *ContentService) Summarize(ctx context.Context, req SummarizeRequest) string {
	if req.Format == FormatKeyPoints {
		return s.gateway.ExtractKeyPoints(ctx, req.Content, req.MaxPoints, req.Provider).Content
	}
	return s.gateway.Summarize(ctx, req.Content, req.MaxLength, req.Provider).Content
}

func (s *ContentService) Analyze(ctx context.Context, content string, provider llm.Provider) llm.ContentAnalysis {
	analysis, _ := s.gateway.AnalyzeContent(ctx, content, provider)
	return analysis
}

func (s *ContentService) ProjectSuggestions(ctx context.Context, projectType, projectName, projectDescription string, provider llm.Provider) llm.ProjectSuggestions {
	suggestions, _ := s.gateway.GenerateProjectSuggestions(ctx, projectType, projectName, projectDescription, provider)
	return suggestions
}
