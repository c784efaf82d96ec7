package matching

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/refmatch/refmatch/internal/api"
)

const (
	FocusSkills      = "skills"
	FocusPerformance = "performance"
	FocusMentorship  = "mentorship"
	FocusBalanced    = "balanced"

	DefaultMaxMatches = 10
	MaxMatchesLimit   = 50
)

// Preferences are the customization form values of the customized matching mode.
type Preferences struct {
	TargetCompany          string `json:"targetCompany,omitempty" mapstructure:"targetCompany,omitempty"`
	TargetRole             string `json:"targetRole,omitempty" mapstructure:"targetRole,omitempty"`
	PriorityFocus          string `json:"priorityFocus,omitempty" mapstructure:"priorityFocus,omitempty" validate:"omitempty,oneof=skills performance mentorship balanced"`
	ExperienceLevel        string `json:"experienceLevel,omitempty" mapstructure:"experienceLevel,omitempty" validate:"omitempty,oneof=any entry mid senior lead"`
	SpecificSkills         string `json:"specificSkills,omitempty" mapstructure:"specificSkills,omitempty" validate:"max=500"`
	ResponseTimeImportance string `json:"responseTimeImportance,omitempty" mapstructure:"responseTimeImportance,omitempty" validate:"omitempty,oneof=low medium high"`
	AdditionalRequirements string `json:"additionalRequirements,omitempty" mapstructure:"additionalRequirements,omitempty" validate:"max=1000"`
	PrioritizeSkills       bool   `json:"prioritizeSkills,omitempty" mapstructure:"prioritizeSkills,omitempty"`
	PrioritizePerformance  bool   `json:"prioritizePerformance,omitempty" mapstructure:"prioritizePerformance,omitempty"`
	PrioritizeMentorship   bool   `json:"prioritizeMentorship,omitempty" mapstructure:"prioritizeMentorship,omitempty"`
	MaxMatches             int    `json:"maxMatches,omitempty" mapstructure:"maxMatches,omitempty" validate:"gte=0,lte=50"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func preferencesValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks enum fields and length limits.
func (p Preferences) Validate() error {
	if err := preferencesValidator().Struct(p); err != nil {
		return fmt.Errorf("invalid preferences: %w", err)
	}
	return nil
}

// Values flattens the preferences into the key/value set the hash is computed over.
// Empty fields are left out.
func (p Preferences) Values() (map[string]any, error) {
	values := make(map[string]any)
	if err := mapstructure.Decode(p, &values); err != nil {
		return nil, fmt.Errorf("flatten preferences: %w", err)
	}
	return values, nil
}

// Hash returns the preferences' cache key. See Fingerprint.
func (p Preferences) Hash() (string, error) {
	values, err := p.Values()
	if err != nil {
		return "", err
	}
	return Fingerprint(values)
}

// Focus derives the single priority focus sent to the backend. The UI flags
// win in the order skills, performance, mentorship; then the explicit
// PriorityFocus; otherwise balanced.
func (p Preferences) Focus() string {
	switch {
	case p.PrioritizeSkills:
		return FocusSkills
	case p.PrioritizePerformance:
		return FocusPerformance
	case p.PrioritizeMentorship:
		return FocusMentorship
	}

	if focus := strings.TrimSpace(p.PriorityFocus); focus != "" {
		return focus
	}

	return FocusBalanced
}

// Request maps the preferences to the customized matching payload.
func (p Preferences) Request() *api.CustomizedMatchRequest {
	experience := strings.TrimSpace(p.ExperienceLevel)
	if experience == "" {
		experience = "any"
	}

	responseTime := strings.TrimSpace(p.ResponseTimeImportance)
	if responseTime == "" {
		responseTime = "medium"
	}

	return &api.CustomizedMatchRequest{
		TargetCompany:          strings.TrimSpace(p.TargetCompany),
		TargetRole:             strings.TrimSpace(p.TargetRole),
		PriorityFocus:          p.Focus(),
		ExperienceLevel:        experience,
		SpecificSkills:         strings.TrimSpace(p.SpecificSkills),
		ResponseTimeImportance: responseTime,
		AdditionalRequirements: strings.TrimSpace(p.AdditionalRequirements),
		MaxMatches:             clampMaxMatches(p.MaxMatches),
	}
}

func clampMaxMatches(n int) int {
	switch {
	case n <= 0:
		return DefaultMaxMatches
	case n > MaxMatchesLimit:
		return MaxMatchesLimit
	default:
		return n
	}
}
