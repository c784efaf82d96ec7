// Package matching orchestrates AI matching calls for the candidate dashboard:
// smart and customized matching, the rating-sorted fallback and the
// read-through/write-through result cache around both.
package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/refmatch/refmatch/internal/api"
	"github.com/refmatch/refmatch/internal/logger"
	"github.com/refmatch/refmatch/internal/session"
)

const (
	ModeSmart      = "smart"
	ModeCustomized = "customized"
)

// Backend is the subset of the platform API the orchestration needs.
type Backend interface {
	CandidateMatching(ctx context.Context, targetCompany string, maxMatches int) (*api.MatchResult, error)
	CustomizedMatching(ctx context.Context, req *api.CustomizedMatchRequest) (*api.MatchResult, error)
	SearchEmployees(ctx context.Context, params api.EmployeeSearch) ([]*api.Employee, error)

	CachedSmartMatches(ctx context.Context) (*api.CachedMatches, error)
	CacheSmartMatches(ctx context.Context, result *api.MatchResult) error
	CachedCustomizedMatches(ctx context.Context, preferencesHash string) (*api.CachedMatches, error)
	CacheCustomizedMatches(ctx context.Context, preferencesHash string, result *api.MatchResult) error
}

type SmartOptions struct {
	TargetCompany string
	MaxMatches    int
}

type Service struct {
	backend  Backend
	sessions session.Provider
	logger   *zap.Logger
}

func NewService(backend Backend, sessions session.Provider, log *zap.Logger) *Service {
	return &Service{
		backend:  backend,
		sessions: sessions,
		logger:   logger.OrNop(log),
	}
}

// SmartMatches returns the caller's optimal matches. When the AI endpoint
// fails it degrades to a rating-sorted employee list with default scores, so
// only authentication problems or a failing fallback search surface as errors.
func (s *Service) SmartMatches(ctx context.Context, opts SmartOptions) (*api.MatchResult, error) {
	sess, err := session.Require(ctx, s.sessions, session.RoleCandidate)
	if err != nil {
		return nil, err
	}

	maxMatches := clampMaxMatches(opts.MaxMatches)
	log := logger.WithFields(s.logger, logger.MatchingFields(ModeSmart, "")...).With(
		zap.Int("user_id", sess.User.ID),
		zap.String("target_company", opts.TargetCompany),
		zap.Int("max_matches", maxMatches),
	)

	log.Debug("requesting smart matches")

	result, err := s.backend.CandidateMatching(ctx, opts.TargetCompany, maxMatches)
	if err == nil {
		log.Info("smart matches generated", zap.Int("matches", len(result.Matches)))
		return result, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	log.Warn("ai matching failed, falling back to rating-sorted employees", zap.Error(err))

	fallback, fbErr := s.fallbackMatches(ctx, opts.TargetCompany, maxMatches)
	if fbErr != nil {
		return nil, errors.Join(err, fmt.Errorf("fallback search: %w", fbErr))
	}

	log.Info("fallback matches generated", zap.Int("matches", len(fallback.Matches)))
	return fallback, nil
}

// PersonalizedMatches runs customized matching. There is no fallback for this
// path: failures are returned to the caller.
func (s *Service) PersonalizedMatches(ctx context.Context, prefs Preferences) (*api.MatchResult, error) {
	sess, err := session.Require(ctx, s.sessions, session.RoleCandidate)
	if err != nil {
		return nil, err
	}

	if err := prefs.Validate(); err != nil {
		return nil, err
	}

	req := prefs.Request()
	s.logger.Debug("requesting customized matches",
		zap.String(logger.FieldMode, ModeCustomized),
		zap.Int("user_id", sess.User.ID),
		zap.String("target_company", req.TargetCompany),
		zap.String("target_role", req.TargetRole),
		zap.String("priority_focus", req.PriorityFocus),
	)

	result, err := s.backend.CustomizedMatching(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("customized matches generated",
		zap.String(logger.FieldMode, ModeCustomized),
		zap.Int("matches", len(result.Matches)),
	)

	return result, nil
}

func normalizeCompany(company string) string {
	return strings.TrimSpace(company)
}
