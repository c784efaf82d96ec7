package filtering

import (
	"context"
	"strconv"
	"strings"

	"github.com/refmatch/refmatch/internal/matching"
)

type excludedEmployeesFilter struct {
	ids []int
}

// NewExcludedEmployees creates a filter that removes matches with employees listed in the config.
func NewExcludedEmployees(ids []int) Filter {
	return &excludedEmployeesFilter{ids: ids}
}

func (f *excludedEmployeesFilter) Name() string { return "excluded_employees" }

func (f *excludedEmployeesFilter) Disable(string) {}

func (f *excludedEmployeesFilter) IsEnabled() bool { return true }

func (f *excludedEmployeesFilter) Validate() error { return nil }

func (f *excludedEmployeesFilter) Apply(_ context.Context, l *matching.List) (*matching.List, Step, error) {
	initial := l.Len()
	if len(f.ids) == 0 {
		return l, Step{Initial: initial, Left: initial}, nil
	}

	excluded := l.Exclude(f.ids)

	return l, Step{Initial: initial, Dropped: len(excluded), Left: l.Len()}, nil
}

func (f *excludedEmployeesFilter) Status() Status {
	details := map[string]string{}
	if len(f.ids) > 0 {
		ids := make([]string, 0, len(f.ids))
		for _, id := range f.ids {
			ids = append(ids, strconv.Itoa(id))
		}
		details["employees"] = strings.Join(ids, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
