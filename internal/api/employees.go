package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const (
	employeeSearchPath = "/api/employees/search"
	SortByRating       = "rating"
)

type EmployeeSearch struct {
	Company string
	SortBy  string
	Limit   int
}

type employeeSearchResponse struct {
	Success   bool   `json:"success"`
	Employees []Item `json:"employees"`
}

// Item is a raw search item before it is decoded into a typed value.
type Item any

// SearchEmployees runs the plain employee search, best rated first when sorting by rating.
func (c *Client) SearchEmployees(ctx context.Context, params EmployeeSearch) ([]*Employee, error) {
	q := url.Values{}
	if company := strings.TrimSpace(params.Company); company != "" {
		q.Set("company", company)
	}
	if params.SortBy != "" {
		q.Set("sort_by", params.SortBy)
		q.Set("order", "desc")
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}

	var resp employeeSearchResponse
	if err := c.getJSON(ctx, employeeSearchPath, q, &resp); err != nil {
		return nil, fmt.Errorf("search employees: %w", err)
	}

	var employees []*Employee
	cfg := &mapstructure.DecoderConfig{
		Result:           &employees,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(resp.Employees); err != nil {
		return nil, fmt.Errorf("decode employees: %w", err)
	}

	return employees, nil
}
