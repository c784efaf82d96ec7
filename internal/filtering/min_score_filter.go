package filtering

import (
	"context"
	"fmt"

	"github.com/refmatch/refmatch/internal/matching"
)

type minScoreFilter struct {
	min      float64
	disabled bool
	reason   string
}

// NewMinScore creates a filter that drops matches scored below score.
// A zero score keeps everything.
func NewMinScore(score float64) Filter {
	return &minScoreFilter{min: score}
}

func (f *minScoreFilter) Name() string { return "min_score" }

func (f *minScoreFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *minScoreFilter) IsEnabled() bool { return !f.disabled }

func (f *minScoreFilter) Validate() error {
	if f.min < 0 || f.min > 100 {
		return fmt.Errorf("minimum score must be within 0..100, got %.1f", f.min)
	}
	return nil
}

func (f *minScoreFilter) Apply(_ context.Context, l *matching.List) (*matching.List, Step, error) {
	initial := l.Len()
	if f.min == 0 {
		return l, Step{Initial: initial, Left: initial}, nil
	}

	dropped := l.ExcludeBelow(f.min)

	return l, Step{Initial: initial, Dropped: len(dropped), Left: l.Len()}, nil
}

func (f *minScoreFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"min_score": fmt.Sprintf("%.1f", f.min)},
	}
}
