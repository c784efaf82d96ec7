package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	candidateMatchingPath  = "/api/ai/candidate-matching"
	customizedMatchingPath = "/api/ai/customized-matching"
)

// ErrUnsuccessful is returned when the backend answers 2xx with success=false.
var ErrUnsuccessful = errors.New("backend reported failure")

// CandidateMatching asks the AI matching endpoint for the caller's best matches.
func (c *Client) CandidateMatching(ctx context.Context, targetCompany string, maxMatches int) (*MatchResult, error) {
	q := url.Values{}
	if company := strings.TrimSpace(targetCompany); company != "" {
		q.Set("target_company", company)
	}
	if maxMatches > 0 {
		q.Set("max_matches", strconv.Itoa(maxMatches))
	}

	var result MatchResult
	if err := c.getJSON(ctx, candidateMatchingPath, q, &result); err != nil {
		return nil, fmt.Errorf("candidate matching: %w", err)
	}

	if err := checkSuccess(&result); err != nil {
		return nil, fmt.Errorf("candidate matching: %w", err)
	}

	return &result, nil
}

// CustomizedMatching runs matching with explicit customization preferences.
func (c *Client) CustomizedMatching(ctx context.Context, req *CustomizedMatchRequest) (*MatchResult, error) {
	if req == nil {
		return nil, errors.New("customized matching request is required")
	}

	var result MatchResult
	if err := c.postJSON(ctx, customizedMatchingPath, req, &result); err != nil {
		return nil, fmt.Errorf("customized matching: %w", err)
	}

	if err := checkSuccess(&result); err != nil {
		return nil, fmt.Errorf("customized matching: %w", err)
	}

	return &result, nil
}

func checkSuccess(result *MatchResult) error {
	if result.Success {
		return nil
	}

	if msg := strings.TrimSpace(result.Message); msg != "" {
		return fmt.Errorf("%w: %s", ErrUnsuccessful, msg)
	}

	return ErrUnsuccessful
}
