// Package api is a thin client for the referral platform's JSON API.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/refmatch/refmatch/internal/logger"
)

const (
	DefaultURL     = "http://localhost:8000"
	DefaultTimeout = 30 * time.Second
	userAgent      = "refmatch-cli (+https://github.com/refmatch/refmatch)"
	// Preview size of response bodies in debug logs.
	defaultMaxLogLength = 200
)

// ErrNoToken is returned when a request is attempted without a bearer token.
// It is a precondition failure, not a retryable one.
var ErrNoToken = errors.New("no bearer token available")

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Client struct {
	tokens     TokenSource
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	MaxLogLen  int
	// Limiter throttles outgoing requests when set.
	Limiter    *rate.Limiter
}

func New(tokens TokenSource, log *zap.Logger) *Client {
	return &Client{
		tokens: tokens,
		logger: logger.OrNop(log),
		APIURL: DefaultURL,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		UserAgent: userAgent,
		MaxLogLen: defaultMaxLogLength,
	}
}

// SetRateLimit allows at most perSecond requests per second with the given
// burst. A non-positive perSecond removes the limit.
func (c *Client) SetRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		c.Limiter = nil
		return
	}
	if burst <= 0 {
		burst = 1
	}
	c.Limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.APIURL, "/") + path
}
