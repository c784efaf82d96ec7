package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	cachedSmartMatchesPath      = "/api/ai/cached-smart-matches"
	cacheSmartMatchesPath       = "/api/ai/cache-smart-matches"
	cachedCustomizedMatchesPath = "/api/ai/cached-customized-matches"
	cacheCustomizedMatchesPath  = "/api/ai/cache-customized-matches"
)

type cacheWriteRequest struct {
	MatchesData     *MatchResult `json:"matches_data"`
	PreferencesHash string       `json:"preferences_hash,omitempty"`
}

type cacheWriteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// CachedSmartMatches reads the smart matches cached for the token's user.
func (c *Client) CachedSmartMatches(ctx context.Context) (*CachedMatches, error) {
	var cached CachedMatches
	if err := c.getJSON(ctx, cachedSmartMatchesPath, nil, &cached); err != nil {
		return nil, fmt.Errorf("read cached smart matches: %w", err)
	}
	return &cached, nil
}

// CacheSmartMatches stores a smart matching result for the token's user.
func (c *Client) CacheSmartMatches(ctx context.Context, result *MatchResult) error {
	if result == nil {
		return errors.New("match result is required")
	}

	return c.writeCache(ctx, cacheSmartMatchesPath, &cacheWriteRequest{MatchesData: result})
}

// CachedCustomizedMatches reads customized matches cached under the preferences hash.
func (c *Client) CachedCustomizedMatches(ctx context.Context, preferencesHash string) (*CachedMatches, error) {
	preferencesHash = strings.TrimSpace(preferencesHash)
	if preferencesHash == "" {
		return nil, errors.New("preferences hash is required")
	}

	q := url.Values{}
	q.Set("preferences_hash", preferencesHash)

	var cached CachedMatches
	if err := c.getJSON(ctx, cachedCustomizedMatchesPath, q, &cached); err != nil {
		return nil, fmt.Errorf("read cached customized matches: %w", err)
	}
	return &cached, nil
}

// CacheCustomizedMatches stores a customized matching result under the preferences hash.
func (c *Client) CacheCustomizedMatches(ctx context.Context, preferencesHash string, result *MatchResult) error {
	preferencesHash = strings.TrimSpace(preferencesHash)
	if preferencesHash == "" {
		return errors.New("preferences hash is required")
	}
	if result == nil {
		return errors.New("match result is required")
	}

	return c.writeCache(ctx, cacheCustomizedMatchesPath, &cacheWriteRequest{
		MatchesData:     result,
		PreferencesHash: preferencesHash,
	})
}

func (c *Client) writeCache(ctx context.Context, path string, body *cacheWriteRequest) error {
	var resp cacheWriteResponse
	if err := c.postJSON(ctx, path, body, &resp); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}

	if !resp.Success {
		if msg := strings.TrimSpace(resp.Message); msg != "" {
			return fmt.Errorf("write cache: %w: %s", ErrUnsuccessful, msg)
		}
		return fmt.Errorf("write cache: %w", ErrUnsuccessful)
	}

	return nil
}
