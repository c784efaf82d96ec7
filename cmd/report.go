package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/refmatch/refmatch/internal/dashboard"
	"github.com/refmatch/refmatch/internal/matching"
)

// visibleMatches applies the display filters to the active view.
func (e *env) visibleMatches(ctx context.Context) (*matching.List, dashboard.View, error) {
	view := e.dashboard.View()
	list := matching.NewList(nil)
	list.Items = view.Matches

	filtered, err := prepareFilters(e.config.Matching, e.logger).RunFilters(ctx, list)
	if err != nil {
		return nil, view, fmt.Errorf("filtering matches: %w", err)
	}

	return filtered, view, nil
}

func (e *env) printMatches(ctx context.Context) error {
	list, view, err := e.visibleMatches(ctx)
	if err != nil {
		return err
	}

	fields := []zap.Field{
		zap.String("mode", string(view.Mode)),
		zap.Int("count", list.Len()),
		zap.Bool("from_cache", view.FromCache),
		zap.Bool("fallback", view.Fallback),
	}
	if view.PreferencesHash != "" {
		fields = append(fields, zap.String("preferences_hash", view.PreferencesHash))
	}
	if view.Summary != nil {
		fields = append(fields,
			zap.Int("total_evaluated", view.Summary.TotalEvaluated),
			zap.Float64("average_score", view.Summary.AverageScore),
		)
	}

	if !view.Loaded {
		e.logger.Info("no matches yet", append(fields, zap.String("hint", "refresh to generate matches"))...)
		return nil
	}

	e.logger.Info("current list of matches", fields...)

	for _, m := range list.Items {
		e.logger.Info("match",
			zap.Int("employee_id", m.EmployeeID),
			zap.String("name", m.Name),
			zap.String("position", m.Position),
			zap.String("company", m.Company),
			zap.Float64("score", m.OverallScore),
			zap.Float64("confidence", m.ConfidenceLevel),
			zap.String("reasoning", m.MatchReasoning),
		)
	}

	return nil
}

func (e *env) reportByCompany(ctx context.Context) error {
	list, _, err := e.visibleMatches(ctx)
	if err != nil {
		return err
	}

	pretty, _ := json.MarshalIndent(list.ReportByCompany(), "", "  ")
	e.logger.Info(string(pretty), zap.Int("matches count", list.Len()))
	return nil
}

func (e *env) dumpMatches(ctx context.Context) error {
	list, _, err := e.visibleMatches(ctx)
	if err != nil {
		return err
	}

	filename, err := list.DumpToTmpFile()
	if err != nil {
		return fmt.Errorf("dump results to file: %w", err)
	}

	e.logger.Info("dumping result to file", zap.String("filename", filename))
	return nil
}
