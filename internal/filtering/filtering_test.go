package filtering

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/refmatch/refmatch/internal/api"
	"github.com/refmatch/refmatch/internal/matching"
)

func list() *matching.List {
	return matching.NewList(&api.MatchResult{Matches: []api.MatchedEmployee{
		{EmployeeID: 1, OverallScore: 92},
		{EmployeeID: 2, OverallScore: 55},
		{EmployeeID: 3, OverallScore: 81},
		{EmployeeID: 4, OverallScore: 70},
	}})
}

func ids(l *matching.List) []int {
	out := make([]int, 0, l.Len())
	for _, m := range l.Items {
		out = append(out, m.EmployeeID)
	}
	return out
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRunFilters(t *testing.T) {
	excludeFile := filepath.Join(t.TempDir(), "exclude.json")
	excluded := &matching.ExcludedEmployees{Items: []*matching.ExcludedEmployee{{EmployeeID: 4}}}
	if err := excluded.ToFile(excludeFile); err != nil {
		t.Fatalf("writing exclude file: %v", err)
	}

	core, observed := observer.New(zapcore.InfoLevel)
	f := New([]Filter{
		NewMinScore(60),
		NewExcludedEmployees([]int{3}),
		NewExcludeFile(excludeFile),
	}, zap.New(core))

	got, err := f.RunFilters(context.Background(), list())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !equal(ids(got), []int{1}) {
		t.Fatalf("unexpected matches left: %v", ids(got))
	}

	entries := observed.FilterMessage("filter step").All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 step logs, got %d", len(entries))
	}

	first := entries[0].ContextMap()
	if first["name"] != "min_score" || first["dropped"] != int64(1) || first["left"] != int64(3) {
		t.Fatalf("unexpected first step fields: %v", first)
	}
}

func TestRunFiltersSkipsDisabled(t *testing.T) {
	f := New([]Filter{NewMinScore(90)}, nil)
	f.DisableByName("min_score", "showing everything")

	got, err := f.RunFilters(context.Background(), list())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 4 {
		t.Fatalf("expected all matches, got %d", got.Len())
	}

	status := f.Describe()[0]
	if status.Enabled || status.Reason != "showing everything" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestRunFiltersValidatesFirst(t *testing.T) {
	f := New([]Filter{NewExcludedEmployees([]int{1}), NewMinScore(120)}, nil)

	l := list()
	if _, err := f.RunFilters(context.Background(), l); err == nil {
		t.Fatal("expected validation error")
	}
	if l.Len() != 4 {
		t.Fatalf("no filter must run when validation fails, got %d matches", l.Len())
	}
}

func TestExcludeFileFilterErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exclude.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, _, err := NewExcludeFile(path).Apply(context.Background(), list())
	if err == nil {
		t.Fatal("expected error for a malformed exclude file")
	}
}

func TestFiltersWithoutConfigKeepEverything(t *testing.T) {
	for _, filter := range []Filter{NewMinScore(0), NewExcludedEmployees(nil), NewExcludeFile("")} {
		t.Run(filter.Name(), func(t *testing.T) {
			got, step, err := filter.Apply(context.Background(), list())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Len() != 4 || step.Dropped != 0 || step.Left != 4 {
				t.Fatalf("unexpected step %+v", step)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	statuses := New([]Filter{NewMinScore(70), NewExcludedEmployees([]int{1, 2}), NewExcludeFile("x.json")}, nil).Describe()

	if statuses[0].Details["min_score"] != "70.0" {
		t.Fatalf("unexpected min score details: %v", statuses[0].Details)
	}
	if statuses[1].Details["employees"] != "1,2" {
		t.Fatalf("unexpected employees details: %v", statuses[1].Details)
	}
	if statuses[2].Details["path"] != "x.json" {
		t.Fatalf("unexpected path details: %v", statuses[2].Details)
	}
}
