package cmd

import (
	"github.com/spf13/cobra"

	"github.com/refmatch/refmatch/internal/matching"
)

func addPreferenceFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("company", "", "target company")
	flags.String("role", "", "target role")
	flags.String("focus", "", "priority focus: skills, performance, mentorship or balanced")
	flags.String("experience", "", "employee experience level: any, entry, mid, senior or lead")
	flags.String("skills", "", "specific skills to match on, comma separated")
	flags.String("response-time", "", "importance of a fast response: low, medium or high")
	flags.String("requirements", "", "additional free form requirements")
	flags.Bool("prioritize-skills", false, "prioritize skills alignment")
	flags.Bool("prioritize-performance", false, "prioritize employee performance")
	flags.Bool("prioritize-mentorship", false, "prioritize mentorship potential")
	flags.Int("max", 0, "maximum number of matches (default from matching.max-matches)")
}

// preferencesFromFlags reads the customization form from the command flags.
// Only flags the user actually set end up in the preferences, so the hash
// matches a form where the same fields were filled in.
func preferencesFromFlags(cmd *cobra.Command, defaults *MatchingConfig) (matching.Preferences, error) {
	var prefs matching.Preferences
	flags := cmd.Flags()

	strs := map[string]*string{
		"company":       &prefs.TargetCompany,
		"role":          &prefs.TargetRole,
		"focus":         &prefs.PriorityFocus,
		"experience":    &prefs.ExperienceLevel,
		"skills":        &prefs.SpecificSkills,
		"response-time": &prefs.ResponseTimeImportance,
		"requirements":  &prefs.AdditionalRequirements,
	}
	for name, dst := range strs {
		v, err := flags.GetString(name)
		if err != nil {
			return prefs, err
		}
		*dst = v
	}

	bools := map[string]*bool{
		"prioritize-skills":      &prefs.PrioritizeSkills,
		"prioritize-performance": &prefs.PrioritizePerformance,
		"prioritize-mentorship":  &prefs.PrioritizeMentorship,
	}
	for name, dst := range bools {
		v, err := flags.GetBool(name)
		if err != nil {
			return prefs, err
		}
		*dst = v
	}

	maxMatches, err := flags.GetInt("max")
	if err != nil {
		return prefs, err
	}
	prefs.MaxMatches = maxMatches

	if defaults != nil {
		if prefs.TargetCompany == "" {
			prefs.TargetCompany = defaults.TargetCompany
		}
		if prefs.MaxMatches == 0 && defaults.MaxMatches > 0 && defaults.MaxMatches != matching.DefaultMaxMatches {
			prefs.MaxMatches = defaults.MaxMatches
		}
	}

	return prefs, prefs.Validate()
}

// customizedPreferences reads the preference flags with the configured
// matching defaults applied and returns them with their cache key. Every
// command that reads or writes the customized cache goes through it.
func customizedPreferences(cmd *cobra.Command, defaults *MatchingConfig) (matching.Preferences, string, error) {
	prefs, err := preferencesFromFlags(cmd, defaults)
	if err != nil {
		return prefs, "", err
	}

	hash, err := prefs.Hash()
	if err != nil {
		return prefs, "", err
	}
	return prefs, hash, nil
}

var preferenceFlagNames = []string{
	"company", "role", "focus", "experience", "skills", "response-time", "requirements",
	"prioritize-skills", "prioritize-performance", "prioritize-mentorship", "max",
}

// preferencesGiven reports whether any customization flag was set.
func preferencesGiven(cmd *cobra.Command) bool {
	for _, name := range preferenceFlagNames {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}
