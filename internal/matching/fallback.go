package matching

import (
	"context"
	"fmt"
	"sort"

	"github.com/refmatch/refmatch/internal/api"
)

const (
	FallbackScore      = 75
	FallbackConfidence = 0.5
	FallbackQuality    = "fallback"
	fallbackMessage    = "AI matching is unavailable; showing top rated employees instead"
)

func (s *Service) fallbackMatches(ctx context.Context, targetCompany string, maxMatches int) (*api.MatchResult, error) {
	employees, err := s.backend.SearchEmployees(ctx, api.EmployeeSearch{
		Company: normalizeCompany(targetCompany),
		SortBy:  api.SortByRating,
		Limit:   maxMatches,
	})
	if err != nil {
		return nil, err
	}

	ranked := make([]*api.Employee, 0, len(employees))
	for _, e := range employees {
		if e != nil {
			ranked = append(ranked, e)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Rating > ranked[j].Rating
	})

	evaluated := len(ranked)
	if len(ranked) > maxMatches {
		ranked = ranked[:maxMatches]
	}

	matches := make([]api.MatchedEmployee, 0, len(ranked))
	for _, e := range ranked {
		matches = append(matches, fallbackMatch(e))
	}

	distribution := map[string]int{}
	if len(matches) > 0 {
		distribution[scoreBucket(FallbackScore)] = len(matches)
	}

	average := 0.0
	if len(matches) > 0 {
		average = FallbackScore
	}

	return &api.MatchResult{
		Success: true,
		Matches: matches,
		Summary: &api.Summary{
			TotalEvaluated:    evaluated,
			ScoreDistribution: distribution,
			AverageScore:      average,
		},
		TotalEvaluated:  evaluated,
		MatchingQuality: FallbackQuality,
		Message:         fallbackMessage,
		Fallback:        true,
	}, nil
}

func fallbackMatch(e *api.Employee) api.MatchedEmployee {
	return api.MatchedEmployee{
		EmployeeID:      e.ID,
		Name:            e.Name,
		Position:        e.Position,
		Company:         e.Company,
		OverallScore:    FallbackScore,
		ConfidenceLevel: FallbackConfidence,
		ScoreBreakdown: api.ScoreBreakdown{
			SkillsAlignment:    FallbackScore,
			CareerRelevance:    FallbackScore,
			PerformanceMetrics: FallbackScore,
			Engagement:         FallbackScore,
			Neutrality:         FallbackScore,
		},
		MatchReasoning: fmt.Sprintf("Recommended by employee rating (%.1f)", e.Rating),
	}
}

func scoreBucket(score float64) string {
	switch {
	case score >= 80:
		return "80-100"
	case score >= 60:
		return "60-79"
	case score >= 40:
		return "40-59"
	default:
		return "0-39"
	}
}
