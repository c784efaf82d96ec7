package api

// ScoreBreakdown holds the named sub-scores behind an overall match score.
type ScoreBreakdown struct {
	SkillsAlignment    float64 `json:"skills_alignment"`
	CareerRelevance    float64 `json:"career_relevance"`
	PerformanceMetrics float64 `json:"performance_metrics"`
	Engagement         float64 `json:"engagement"`
	Neutrality         float64 `json:"neutrality"`
}

type ReferralPrediction struct {
	Probability      float64 `json:"probability"`
	TimelineEstimate string  `json:"timeline_estimate,omitempty"`
}

type ActionableInsights struct {
	ApproachStrategy     string   `json:"approach_strategy,omitempty"`
	ConversationStarters []string `json:"conversation_starters,omitempty"`
	KeyTalkingPoints     []string `json:"key_talking_points,omitempty"`
}

// MatchedEmployee is a scored candidate-to-employee pairing produced by the backend.
type MatchedEmployee struct {
	EmployeeID                int                 `json:"employee_id"`
	Name                      string              `json:"name,omitempty"`
	Position                  string              `json:"position,omitempty"`
	Company                   string              `json:"company,omitempty"`
	OverallScore              float64             `json:"overall_score"`
	ConfidenceLevel           float64             `json:"confidence_level"`
	ScoreBreakdown            ScoreBreakdown      `json:"score_breakdown"`
	MatchReasoning            string              `json:"match_reasoning,omitempty"`
	ReferralSuccessPrediction *ReferralPrediction `json:"referral_success_prediction,omitempty"`
	ActionableInsights        *ActionableInsights `json:"actionable_insights,omitempty"`
}

type Summary struct {
	TotalEvaluated    int            `json:"total_evaluated"`
	ScoreDistribution map[string]int `json:"score_distribution,omitempty"`
	AverageScore      float64        `json:"average_score"`
}

// MatchResult is the response of both matching endpoints.
type MatchResult struct {
	Success         bool              `json:"success"`
	Matches         []MatchedEmployee `json:"matches"`
	Summary         *Summary          `json:"summary,omitempty"`
	TotalEvaluated  int               `json:"total_evaluated"`
	MatchingQuality string            `json:"matching_quality,omitempty"`
	Message         string            `json:"message,omitempty"`
	// Fallback is set by the client when the list was synthesized from the
	// rating-sorted employee search instead of the AI endpoint.
	Fallback bool `json:"fallback,omitempty"`
}

// CustomizedMatchRequest is the body of POST /api/ai/customized-matching.
type CustomizedMatchRequest struct {
	TargetCompany          string `json:"target_company"`
	TargetRole             string `json:"target_role"`
	PriorityFocus          string `json:"priority_focus"`
	ExperienceLevel        string `json:"experience_level"`
	SpecificSkills         string `json:"specific_skills"`
	ResponseTimeImportance string `json:"response_time_importance"`
	AdditionalRequirements string `json:"additional_requirements"`
	MaxMatches             int    `json:"max_matches"`
}

// CachedMatches is the response of both cache lookup endpoints. Older backends
// echo the stored payload under matches_data, newer ones flatten it.
type CachedMatches struct {
	Success         bool              `json:"success"`
	Matches         []MatchedEmployee `json:"matches"`
	Summary         *Summary          `json:"summary,omitempty"`
	TotalEvaluated  int               `json:"total_evaluated"`
	MatchingQuality string            `json:"matching_quality,omitempty"`
	MatchesData     *MatchResult      `json:"matches_data,omitempty"`
	PreferencesHash string            `json:"preferences_hash,omitempty"`
	CachedAt        string            `json:"cached_at,omitempty"`
	Message         string            `json:"message,omitempty"`
}

// Result returns the cached payload as a MatchResult, or nil when there is
// nothing usable in the response.
func (c *CachedMatches) Result() *MatchResult {
	if c == nil || !c.Success {
		return nil
	}

	if c.MatchesData != nil && len(c.MatchesData.Matches) > 0 {
		return c.MatchesData
	}

	if len(c.Matches) == 0 {
		return nil
	}

	return &MatchResult{
		Success:         true,
		Matches:         c.Matches,
		Summary:         c.Summary,
		TotalEvaluated:  c.TotalEvaluated,
		MatchingQuality: c.MatchingQuality,
		Message:         c.Message,
	}
}

// Employee is an item of the employee search.
type Employee struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Position     string  `json:"position"`
	Company      string  `json:"company"`
	Department   string  `json:"department"`
	Rating       float64 `json:"rating"`
	ResponseRate float64 `json:"response_rate"`
}
