package matching

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/refmatch/refmatch/internal/api"
)

// List is a mutable working copy of a match list used for display filtering.
type List struct {
	Items []api.MatchedEmployee
}

// NewList copies the matches of result. A nil result gives an empty list.
func NewList(result *api.MatchResult) *List {
	if result == nil {
		return &List{}
	}
	return &List{Items: slices.Clone(result.Matches)}
}

func (l *List) Len() int {
	return len(l.Items)
}

func (l *List) FindByEmployeeID(id int) *api.MatchedEmployee {
	for i := range l.Items {
		if l.Items[i].EmployeeID == id {
			return &l.Items[i]
		}
	}
	return nil
}

// Exclude removes the matches of the given employees, keeping the order of
// the rest, and returns the removed IDs.
func (l *List) Exclude(ids []int) []int {
	return l.removeWhere(func(m api.MatchedEmployee) bool {
		return slices.Contains(ids, m.EmployeeID)
	})
}

// ExcludeBelow removes matches whose overall score is lower than threshold.
func (l *List) ExcludeBelow(threshold float64) []int {
	return l.removeWhere(func(m api.MatchedEmployee) bool {
		return m.OverallScore < threshold
	})
}

func (l *List) removeWhere(drop func(api.MatchedEmployee) bool) []int {
	var removed []int
	kept := l.Items[:0]
	for _, m := range l.Items {
		if drop(m) {
			removed = append(removed, m.EmployeeID)
			continue
		}
		kept = append(kept, m)
	}
	l.Items = kept
	return removed
}

// ReportByCompany groups the matches by company for a quick overview.
func (l *List) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, m := range l.Items {
		company := m.Company
		if company == "" {
			company = "unknown"
		}
		report[company] = append(report[company], map[string]string{
			"employee_id": fmt.Sprintf("%d", m.EmployeeID),
			"name":        m.Name,
			"position":    m.Position,
			"score":       fmt.Sprintf("%.0f", m.OverallScore),
			"confidence":  fmt.Sprintf("%.2f", m.ConfidenceLevel),
			"reasoning":   m.MatchReasoning,
		})
	}
	return report
}

func (l *List) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "matches_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return "", err
	}
	return file.Name(), nil
}

func (l *List) ToExcluded() *ExcludedEmployees {
	excluded := &ExcludedEmployees{}
	now := time.Now().UTC()
	for _, m := range l.Items {
		excluded.Items = append(excluded.Items, &ExcludedEmployee{
			EmployeeID: m.EmployeeID,
			Name:       m.Name,
			Company:    m.Company,
			ExcludedAt: now,
		})
	}
	return excluded
}

// ExcludedEmployees is the content of an exclude file: employees the
// candidate does not want to see in match lists again.
type ExcludedEmployees struct {
	Items []*ExcludedEmployee
}

type ExcludedEmployee struct {
	EmployeeID int
	Name       string
	Company    string
	ExcludedAt time.Time
}

// ExcludedEmployeesFromFile reads an exclude file. A missing or empty file
// holds no entries.
func ExcludedEmployeesFromFile(path string) (*ExcludedEmployees, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ExcludedEmployees{}, nil
		}
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedEmployees{}, nil
	}

	var excluded ExcludedEmployees
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, fmt.Errorf("decode exclude file %q: %w", path, err)
	}
	return &excluded, nil
}

// Append adds the entries of s that are not already present.
func (e *ExcludedEmployees) Append(s *ExcludedEmployees) {
	known := e.EmployeeIDs()
	for _, item := range s.Items {
		if slices.Contains(known, item.EmployeeID) {
			continue
		}
		e.Items = append(e.Items, item)
		known = append(known, item.EmployeeID)
	}
}

func (e *ExcludedEmployees) EmployeeIDs() []int {
	ids := make([]int, 0, len(e.Items))
	for _, item := range e.Items {
		ids = append(ids, item.EmployeeID)
	}
	return ids
}

func (e *ExcludedEmployees) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
