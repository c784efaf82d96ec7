package matching

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/refmatch/refmatch/internal/api"
	"github.com/refmatch/refmatch/internal/logger"
	"github.com/refmatch/refmatch/internal/session"
)

type LookupStatus string

const (
	LookupHit    LookupStatus = "hit"
	LookupMiss   LookupStatus = "miss"
	LookupFailed LookupStatus = "failed"
)

// Lookup is the outcome of a cache read. Miss and failed are distinguishable
// here, but callers treat both as "no cached data available".
type Lookup struct {
	Status LookupStatus
	Result *api.MatchResult
	Err    error
}

func (l Lookup) Hit() bool {
	return l.Status == LookupHit && l.Result != nil
}

// CachedSmartMatches reads the smart matches cached for the session user.
func (s *Service) CachedSmartMatches(ctx context.Context) Lookup {
	return s.lookup(ctx, ModeSmart, "", func(ctx context.Context) (*api.CachedMatches, error) {
		return s.backend.CachedSmartMatches(ctx)
	})
}

// CachedCustomizedMatches reads the customized matches cached under preferencesHash.
func (s *Service) CachedCustomizedMatches(ctx context.Context, preferencesHash string) Lookup {
	return s.lookup(ctx, ModeCustomized, preferencesHash, func(ctx context.Context) (*api.CachedMatches, error) {
		return s.backend.CachedCustomizedMatches(ctx, preferencesHash)
	})
}

func (s *Service) lookup(ctx context.Context, mode, hash string, read func(context.Context) (*api.CachedMatches, error)) Lookup {
	log := logger.WithFields(s.logger, logger.MatchingFields(mode, hash)...)

	if _, err := session.Require(ctx, s.sessions, session.RoleCandidate); err != nil {
		log.Debug("skipping cache lookup", zap.Error(err))
		return Lookup{Status: LookupFailed, Err: err}
	}

	cached, err := read(ctx)
	if err != nil {
		log.Warn("cache lookup failed, treating as miss", zap.Error(err))
		return Lookup{Status: LookupFailed, Err: err}
	}

	result := cached.Result()
	if result == nil {
		log.Debug("cache miss")
		return Lookup{Status: LookupMiss}
	}

	log.Debug("cache hit", zap.Int("matches", len(result.Matches)), zap.String("cached_at", cached.CachedAt))
	return Lookup{Status: LookupHit, Result: result}
}

// StoreSmartMatches writes a smart result to the cache. Failures are logged and
// returned; callers must not let them block showing the fresh result.
func (s *Service) StoreSmartMatches(ctx context.Context, result *api.MatchResult) error {
	return s.store(ctx, ModeSmart, "", result, func(ctx context.Context) error {
		return s.backend.CacheSmartMatches(ctx, result)
	})
}

// StoreCustomizedMatches writes a customized result under preferencesHash.
func (s *Service) StoreCustomizedMatches(ctx context.Context, preferencesHash string, result *api.MatchResult) error {
	return s.store(ctx, ModeCustomized, preferencesHash, result, func(ctx context.Context) error {
		return s.backend.CacheCustomizedMatches(ctx, preferencesHash, result)
	})
}

func (s *Service) store(ctx context.Context, mode, hash string, result *api.MatchResult, write func(context.Context) error) error {
	log := logger.WithFields(s.logger, logger.MatchingFields(mode, hash)...)

	if result == nil {
		return errors.New("nothing to cache")
	}

	if _, err := session.Require(ctx, s.sessions, session.RoleCandidate); err != nil {
		log.Warn("caching matches failed", zap.Error(err))
		return err
	}

	if err := write(ctx); err != nil {
		log.Warn("caching matches failed", zap.Error(err))
		return err
	}

	log.Debug("matches cached", zap.Int("matches", len(result.Matches)))
	return nil
}
