package core

import (
	"context"
	"fmt"
	"time"

	"windryft.app/pocket-windryft/internal/llm"
	"windryft.app/pocket-windryft/internal/store"
)

type RecommendationStore interface {
	CreateRecommendation(ctx context.Context, r *store.Recommendation, now time.Time) (*store.Recommendation, error)
}

type Recommender interface {
	GenerateProductivityRecommendations(ctx context.Context, workData any, provider llm.Provider) ([]llm.Recommendation, llm.Provider)
}

type RecommendationService struct {
	store       RecommendationStore
	recommender Recommender
	now         func() time.Time
}

func NewRecommendationService(st RecommendationStore, r Recommender) *RecommendationService {
	return &RecommendationService{store: st, recommender: r, now: utcNow}
}

// Generate asks the gateway for fresh recommendations and appends each one
// to the user's list.
func (s *RecommendationService) Generate(ctx context.Context, userID int64, workData map[string]any, provider llm.Provider) ([]store.Recommendation, error) {
	if workData == nil {
		workData = map[string]any{}
	}
	generated, _ := s.recommender.GenerateProductivityRecommendations(ctx, workData, provider)

	now := s.now()
	saved := make([]store.Recommendation, 0, len(generated))
	for _, g := range generated {
		rec := &store.Recommendation{
			UserID:      userID,
			Type:        g.Type,
			Title:       g.Title,
			Description: g.Description,
			Icon:        g.Icon,
			ActionText:  g.ActionText,
		}
		if g.SecondaryActionText != "" {
			secondary := g.SecondaryActionText
			rec.SecondaryActionText = &secondary
		}
		r, err := s.store.CreateRecommendation(ctx, rec, now)
		if err != nil {
			return nil, fmt.Errorf("failed to store recommendation: %w", err)
		}
		saved = append(saved, *r)
	}
	return saved, nil
}
