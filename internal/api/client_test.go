package api_test

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/refmatch/refmatch/internal/api"
	"github.com/refmatch/refmatch/internal/api/apitest"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

type failingToken struct{ err error }

func (f failingToken) Token(context.Context) (string, error) { return "", f.err }

func newClient(b *apitest.Backend) *api.Client {
	c := api.New(staticToken(b.Token), zap.NewNop())
	c.APIURL = b.URL()
	return c
}

func sampleResult() *api.MatchResult {
	return &api.MatchResult{
		Success: true,
		Matches: []api.MatchedEmployee{
			{EmployeeID: 11, OverallScore: 91, ConfidenceLevel: 0.8, MatchReasoning: "Same stack"},
			{EmployeeID: 12, OverallScore: 84, ConfidenceLevel: 0.7},
		},
		Summary:         &api.Summary{TotalEvaluated: 40, AverageScore: 87.5, ScoreDistribution: map[string]int{"80-100": 2}},
		TotalEvaluated:  40,
		MatchingQuality: "high",
	}
}

func TestCandidateMatchingSendsQueryAndHeaders(t *testing.T) {
	b := apitest.New(t, "secret-token")
	b.SetSmartResult(sampleResult())

	result, err := newClient(b).CandidateMatching(context.Background(), " Acme ", 5)
	require.NoError(t, err)

	assert.Len(t, result.Matches, 2)
	assert.Equal(t, 11, result.Matches[0].EmployeeID)
	assert.Equal(t, 40, result.Summary.TotalEvaluated)

	q := b.Query(apitest.CandidateMatchingPath)
	assert.Equal(t, "Acme", q.Get("target_company"))
	assert.Equal(t, "5", q.Get("max_matches"))
}

func TestCandidateMatchingReportsFailures(t *testing.T) {
	b := apitest.New(t, "secret-token")
	b.FailMatching(true)

	_, err := newClient(b).CandidateMatching(context.Background(), "", 10)
	require.Error(t, err)
	assert.True(t, api.IsStatus(err, http.StatusInternalServerError))
}

func TestCandidateMatchingUnsuccessfulBody(t *testing.T) {
	b := apitest.New(t, "secret-token")
	b.SetSmartResult(&api.MatchResult{Success: false, Message: "profile incomplete"})

	_, err := newClient(b).CandidateMatching(context.Background(), "", 10)
	require.ErrorIs(t, err, api.ErrUnsuccessful)
	assert.Contains(t, err.Error(), "profile incomplete")
}

func TestCustomizedMatchingPostsPayload(t *testing.T) {
	b := apitest.New(t, "secret-token")
	b.SetCustomizedResult(sampleResult())

	req := &api.CustomizedMatchRequest{
		TargetCompany:   "Acme",
		TargetRole:      "Backend Engineer",
		PriorityFocus:   "skills",
		ExperienceLevel: "senior",
		MaxMatches:      10,
	}

	result, err := newClient(b).CustomizedMatching(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, result.Matches, 2)
	assert.Equal(t, req, b.LastCustomizedRequest())
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := apitest.New(t, "secret-token")
	c := newClient(b)

	cached, err := c.CachedSmartMatches(ctx)
	require.NoError(t, err)
	assert.Nil(t, cached.Result(), "unknown key must read as empty")

	written := sampleResult()
	require.NoError(t, c.CacheSmartMatches(ctx, written))

	cached, err = c.CachedSmartMatches(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached.Result())
	assert.Equal(t, written.Matches, cached.Result().Matches)

	require.NoError(t, c.CacheCustomizedMatches(ctx, "abc123", written))

	other, err := c.CachedCustomizedMatches(ctx, "zzz")
	require.NoError(t, err)
	assert.Nil(t, other.Result())

	hit, err := c.CachedCustomizedMatches(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, hit.Result())
	assert.Equal(t, written.Matches, hit.Result().Matches)
	assert.Equal(t, "abc123", hit.PreferencesHash)
}

func TestCacheWriteFailure(t *testing.T) {
	b := apitest.New(t, "secret-token")
	b.FailCache(true)

	err := newClient(b).CacheSmartMatches(context.Background(), sampleResult())
	assert.True(t, api.IsStatus(err, http.StatusServiceUnavailable))

	err = newClient(b).CacheCustomizedMatches(context.Background(), "", sampleResult())
	assert.Error(t, err)
}

func TestSearchEmployeesDecodesItems(t *testing.T) {
	b := apitest.New(t, "secret-token")
	b.SetEmployees([]api.Employee{
		{ID: 1, Name: "Ann", Company: "Acme", Rating: 4.9},
		{ID: 2, Name: "Bob", Company: "Globex", Rating: 4.1},
	})

	employees, err := newClient(b).SearchEmployees(context.Background(), api.EmployeeSearch{
		Company: "acme",
		SortBy:  api.SortByRating,
		Limit:   3,
	})
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, "Ann", employees[0].Name)
	assert.Equal(t, 4.9, employees[0].Rating)

	q := b.Query(apitest.EmployeeSearchPath)
	assert.Equal(t, "rating", q.Get("sort_by"))
	assert.Equal(t, "desc", q.Get("order"))
	assert.Equal(t, "3", q.Get("limit"))
}

func TestSearchEmployeesWeaklyTypedRating(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"employees":[{"id":"9","name":"Eve","rating":"4.5"}]}`))
	}))
	defer srv.Close()

	c := api.New(staticToken("t"), nil)
	c.APIURL = srv.URL

	employees, err := c.SearchEmployees(context.Background(), api.EmployeeSearch{})
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, 9, employees[0].ID)
	assert.Equal(t, 4.5, employees[0].Rating)
}

func TestRequestsWithoutTokenFailBeforeNetwork(t *testing.T) {
	b := apitest.New(t, "secret-token")

	c := api.New(failingToken{err: errors.New("no session")}, nil)
	c.APIURL = b.URL()

	_, err := c.CandidateMatching(context.Background(), "", 10)
	require.ErrorIs(t, err, api.ErrNoToken)
	assert.Zero(t, b.Calls(apitest.CandidateMatchingPath))

	c = api.New(nil, nil)
	c.APIURL = b.URL()
	_, err = c.CachedSmartMatches(context.Background())
	assert.ErrorIs(t, err, api.ErrNoToken)
}

func TestWrongTokenIsUnauthorized(t *testing.T) {
	b := apitest.New(t, "secret-token")

	c := api.New(staticToken("other"), nil)
	c.APIURL = b.URL()

	_, err := c.CachedSmartMatches(context.Background())
	assert.True(t, api.IsStatus(err, http.StatusUnauthorized))
}

func TestGzipResponseAndRequestID(t *testing.T) {
	var requestID, accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get("X-Request-ID")
		accept = r.Header.Get("Accept-Encoding")

		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		_ = json.NewEncoder(gz).Encode(sampleResult())
	}))
	defer srv.Close()

	c := api.New(staticToken("t"), nil)
	c.APIURL = srv.URL + "/"

	result, err := c.CandidateMatching(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, result.Matches, 2)

	assert.Equal(t, "gzip", accept)
	_, err = uuid.Parse(requestID)
	assert.NoError(t, err, "X-Request-ID must be a uuid")
}

func TestCachedMatchesResultPrefersMatchesData(t *testing.T) {
	nested := sampleResult()
	cached := &api.CachedMatches{
		Success:     true,
		Matches:     []api.MatchedEmployee{{EmployeeID: 99}},
		MatchesData: nested,
	}
	assert.Same(t, nested, cached.Result())

	cached.MatchesData = nil
	require.NotNil(t, cached.Result())
	assert.Equal(t, 99, cached.Result().Matches[0].EmployeeID)

	cached.Success = false
	assert.Nil(t, cached.Result())

	var nilCached *api.CachedMatches
	assert.Nil(t, nilCached.Result())
}

func TestRateLimiterHonoursContext(t *testing.T) {
	b := apitest.New(t, "secret-token")
	c := newClient(b)
	c.SetRateLimit(0.001, 1)

	_, err := c.CandidateMatching(context.Background(), "", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.CandidateMatching(ctx, "", 0)
	require.Error(t, err)
	assert.Equal(t, 1, b.Calls(apitest.CandidateMatchingPath), "throttled request must not reach the backend")

	c.SetRateLimit(0, 0)
	assert.Nil(t, c.Limiter)
}
