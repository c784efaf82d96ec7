package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/refmatch/refmatch/internal/api"
	"github.com/refmatch/refmatch/internal/api/apitest"
	"github.com/refmatch/refmatch/internal/session"
)

type stubBackend struct {
	calls int

	smart       *api.MatchResult
	smartErr    error
	custom      *api.MatchResult
	customErr   error
	lastCustom  *api.CustomizedMatchRequest
	employees   []*api.Employee
	searchErr   error
	lastSearch  api.EmployeeSearch
	cached      *api.CachedMatches
	cachedErr   error
	storeErr    error
	storedHash  string
	storedValue *api.MatchResult
}

func (s *stubBackend) CandidateMatching(_ context.Context, _ string, _ int) (*api.MatchResult, error) {
	s.calls++
	return s.smart, s.smartErr
}

func (s *stubBackend) CustomizedMatching(_ context.Context, req *api.CustomizedMatchRequest) (*api.MatchResult, error) {
	s.calls++
	s.lastCustom = req
	return s.custom, s.customErr
}

func (s *stubBackend) SearchEmployees(_ context.Context, params api.EmployeeSearch) ([]*api.Employee, error) {
	s.calls++
	s.lastSearch = params
	return s.employees, s.searchErr
}

func (s *stubBackend) CachedSmartMatches(context.Context) (*api.CachedMatches, error) {
	s.calls++
	return s.cached, s.cachedErr
}

func (s *stubBackend) CacheSmartMatches(_ context.Context, result *api.MatchResult) error {
	s.calls++
	s.storedValue = result
	return s.storeErr
}

func (s *stubBackend) CachedCustomizedMatches(_ context.Context, hash string) (*api.CachedMatches, error) {
	s.calls++
	s.storedHash = hash
	return s.cached, s.cachedErr
}

func (s *stubBackend) CacheCustomizedMatches(_ context.Context, hash string, result *api.MatchResult) error {
	s.calls++
	s.storedHash = hash
	s.storedValue = result
	return s.storeErr
}

func candidate() session.Provider {
	return session.NewStatic(&session.Session{Token: "t", User: session.User{ID: 1, Role: session.RoleCandidate}})
}

func TestSmartMatchesReturnsAIResult(t *testing.T) {
	backend := &stubBackend{smart: &api.MatchResult{Success: true, Matches: []api.MatchedEmployee{{EmployeeID: 5, OverallScore: 93}}}}
	svc := NewService(backend, candidate(), zap.NewNop())

	result, err := svc.SmartMatches(context.Background(), SmartOptions{})
	require.NoError(t, err)
	assert.False(t, result.Fallback)
	assert.Equal(t, 5, result.Matches[0].EmployeeID)
	assert.Equal(t, 1, backend.calls)
}

func TestSmartMatchesFallsBackToRatingSearch(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	backend := &stubBackend{
		smartErr: errors.New("ai service down"),
		employees: []*api.Employee{
			{ID: 2, Name: "Bob", Rating: 4.2},
			{ID: 1, Name: "Ann", Rating: 4.9},
			{ID: 3, Name: "Cid", Rating: 3.1},
		},
	}
	svc := NewService(backend, candidate(), zap.New(core))

	result, err := svc.SmartMatches(context.Background(), SmartOptions{TargetCompany: " Acme ", MaxMatches: 2})
	require.NoError(t, err)

	require.Len(t, result.Matches, 2)
	assert.True(t, result.Fallback)
	assert.Equal(t, FallbackQuality, result.MatchingQuality)
	assert.Equal(t, 1, result.Matches[0].EmployeeID, "best rated first")
	for _, m := range result.Matches {
		assert.Equal(t, float64(FallbackScore), m.OverallScore)
		assert.Equal(t, FallbackConfidence, m.ConfidenceLevel)
		assert.Equal(t, float64(FallbackScore), m.ScoreBreakdown.Neutrality)
	}
	assert.Equal(t, 3, result.Summary.TotalEvaluated)
	assert.Equal(t, map[string]int{"60-79": 2}, result.Summary.ScoreDistribution)

	assert.Equal(t, api.EmployeeSearch{Company: "Acme", SortBy: api.SortByRating, Limit: 2}, backend.lastSearch)
	assert.Equal(t, 1, observed.FilterMessage("ai matching failed, falling back to rating-sorted employees").Len())
}

func TestSmartMatchesFallbackSkipsNullEmployees(t *testing.T) {
	backend := &stubBackend{
		smartErr: errors.New("ai service down"),
		employees: []*api.Employee{
			{ID: 1, Name: "Ann", Rating: 4.5},
			nil,
			{ID: 2, Name: "Bob", Rating: 4.9},
		},
	}
	svc := NewService(backend, candidate(), nil)

	var (
		result *api.MatchResult
		err    error
	)
	require.NotPanics(t, func() {
		result, err = svc.SmartMatches(context.Background(), SmartOptions{MaxMatches: 2})
	})
	require.NoError(t, err)

	require.Len(t, result.Matches, 2)
	assert.Equal(t, 2, result.Matches[0].EmployeeID)
	assert.Equal(t, 1, result.Matches[1].EmployeeID)
	assert.Equal(t, 2, result.Summary.TotalEvaluated)
	assert.Equal(t, 2, result.TotalEvaluated)
}

func TestSmartMatchesFallbackFailureJoinsErrors(t *testing.T) {
	aiErr := errors.New("ai service down")
	searchErr := errors.New("search down")
	svc := NewService(&stubBackend{smartErr: aiErr, searchErr: searchErr}, candidate(), nil)

	_, err := svc.SmartMatches(context.Background(), SmartOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, aiErr)
	assert.ErrorIs(t, err, searchErr)
}

func TestSmartMatchesHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := &stubBackend{smartErr: context.Canceled}
	svc := NewService(backend, candidate(), nil)

	_, err := svc.SmartMatches(ctx, SmartOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, backend.calls, "no fallback search once the context is gone")
}

func TestRoleGuardRunsBeforeNetwork(t *testing.T) {
	employee := session.NewStatic(&session.Session{Token: "t", User: session.User{ID: 9, Role: session.RoleEmployee}})
	backend := &stubBackend{}
	svc := NewService(backend, employee, nil)

	_, err := svc.SmartMatches(context.Background(), SmartOptions{})
	assert.ErrorIs(t, err, session.ErrWrongRole)

	_, err = svc.PersonalizedMatches(context.Background(), Preferences{})
	assert.ErrorIs(t, err, session.ErrWrongRole)

	_, err = NewService(backend, session.NewStatic(nil), nil).SmartMatches(context.Background(), SmartOptions{})
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)

	assert.Zero(t, backend.calls)
}

func TestPersonalizedMatchesHasNoFallback(t *testing.T) {
	backend := &stubBackend{customErr: errors.New("ai service down")}
	svc := NewService(backend, candidate(), nil)

	_, err := svc.PersonalizedMatches(context.Background(), Preferences{PrioritizeSkills: true, PrioritizePerformance: true})
	require.Error(t, err)

	assert.Equal(t, FocusSkills, backend.lastCustom.PriorityFocus)
	assert.Equal(t, 1, backend.calls, "no employee search for the customized path")
}

func TestPersonalizedMatchesRejectsInvalidPreferences(t *testing.T) {
	backend := &stubBackend{}
	svc := NewService(backend, candidate(), nil)

	_, err := svc.PersonalizedMatches(context.Background(), Preferences{ExperienceLevel: "guru"})
	assert.Error(t, err)
	assert.Zero(t, backend.calls)
}

func TestLookupStatuses(t *testing.T) {
	ctx := context.Background()

	miss := NewService(&stubBackend{cached: &api.CachedMatches{Success: false}}, candidate(), nil).CachedSmartMatches(ctx)
	assert.Equal(t, LookupMiss, miss.Status)
	assert.False(t, miss.Hit())

	empty := NewService(&stubBackend{cached: &api.CachedMatches{Success: true}}, candidate(), nil).CachedSmartMatches(ctx)
	assert.Equal(t, LookupMiss, empty.Status)

	failedErr := errors.New("cache down")
	failed := NewService(&stubBackend{cachedErr: failedErr}, candidate(), nil).CachedCustomizedMatches(ctx, "abc")
	assert.Equal(t, LookupFailed, failed.Status)
	assert.ErrorIs(t, failed.Err, failedErr)
	assert.False(t, failed.Hit())

	backend := &stubBackend{cached: &api.CachedMatches{Success: true, Matches: []api.MatchedEmployee{{EmployeeID: 3}}}}
	hit := NewService(backend, candidate(), nil).CachedCustomizedMatches(ctx, "abc")
	assert.True(t, hit.Hit())
	assert.Equal(t, "abc", backend.storedHash)

	unauth := NewService(&stubBackend{}, session.NewStatic(nil), nil).CachedSmartMatches(ctx)
	assert.Equal(t, LookupFailed, unauth.Status)
	assert.ErrorIs(t, unauth.Err, session.ErrNotAuthenticated)
}

func TestStoreFailuresAreLoggedAndReturned(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	storeErr := errors.New("cache down")
	svc := NewService(&stubBackend{storeErr: storeErr}, candidate(), zap.New(core))

	err := svc.StoreCustomizedMatches(context.Background(), "abc", &api.MatchResult{Success: true})
	assert.ErrorIs(t, err, storeErr)

	entries := observed.FilterMessage("caching matches failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "abc", entries[0].ContextMap()["preferences_hash"])

	assert.Error(t, svc.StoreSmartMatches(context.Background(), nil))
}

func TestCacheRoundTripAgainstBackend(t *testing.T) {
	ctx := context.Background()
	b := apitest.New(t, "secret-token")
	client := api.New(session.NewStatic(&session.Session{Token: "secret-token"}), nil)
	client.APIURL = b.URL()

	svc := NewService(client, session.NewStatic(&session.Session{
		Token: "secret-token",
		User:  session.User{ID: 1, Role: session.RoleCandidate},
	}), nil)

	prefs := Preferences{TargetCompany: "Acme", PriorityFocus: "balanced", ExperienceLevel: "any"}
	hash, err := prefs.Hash()
	require.NoError(t, err)

	assert.Equal(t, LookupMiss, svc.CachedCustomizedMatches(ctx, hash).Status)

	written := &api.MatchResult{Success: true, Matches: []api.MatchedEmployee{{EmployeeID: 8, OverallScore: 88}}}
	require.NoError(t, svc.StoreCustomizedMatches(ctx, hash, written))

	lookup := svc.CachedCustomizedMatches(ctx, hash)
	require.True(t, lookup.Hit())
	assert.Equal(t, written.Matches, lookup.Result.Matches)
	assert.Equal(t, hash, b.Query(apitest.CachedCustomizedMatchesPath).Get("preferences_hash"))
}

func TestSmartFallbackAgainstBackend(t *testing.T) {
	b := apitest.New(t, "secret-token")
	b.FailMatching(true)
	b.SetEmployees([]api.Employee{{ID: 1, Name: "Ann", Rating: 4.8}, {ID: 2, Name: "Bob", Rating: 4.6}})

	sess := session.NewStatic(&session.Session{Token: "secret-token", User: session.User{ID: 1, Role: session.RoleCandidate}})
	client := api.New(sess, nil)
	client.APIURL = b.URL()

	result, err := NewService(client, sess, nil).SmartMatches(context.Background(), SmartOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, result.Matches)
	for _, m := range result.Matches {
		assert.Equal(t, 75.0, m.OverallScore)
		assert.Equal(t, 0.5, m.ConfidenceLevel)
	}
	assert.Equal(t, 1, b.Calls(apitest.EmployeeSearchPath))
}
