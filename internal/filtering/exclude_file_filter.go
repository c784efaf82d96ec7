package filtering

import (
	"context"
	"fmt"

	"github.com/refmatch/refmatch/internal/matching"
)

type excludeFileFilter struct {
	path string
}

// NewExcludeFile creates a filter that removes matches with employees contained in the exclude file.
func NewExcludeFile(path string) Filter {
	return &excludeFileFilter{
		path: path,
	}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(string) {}

func (f *excludeFileFilter) IsEnabled() bool { return true }

func (f *excludeFileFilter) Validate() error { return nil }

func (f *excludeFileFilter) Apply(_ context.Context, l *matching.List) (*matching.List, Step, error) {
	initial := l.Len()
	if f.path == "" {
		return l, Step{Initial: initial, Left: initial}, nil
	}

	excluded, err := matching.ExcludedEmployeesFromFile(f.path)
	if err != nil {
		return l, Step{}, fmt.Errorf("getting excluded employees from file: %w", err)
	}

	removed := l.Exclude(excluded.EmployeeIDs())

	return l, Step{Initial: initial, Dropped: len(removed), Left: l.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
