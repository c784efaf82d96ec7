// Package apitest runs an in-memory referral backend for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/refmatch/refmatch/internal/api"
)

const (
	CandidateMatchingPath       = "/api/ai/candidate-matching"
	CustomizedMatchingPath      = "/api/ai/customized-matching"
	CachedSmartMatchesPath      = "/api/ai/cached-smart-matches"
	CacheSmartMatchesPath       = "/api/ai/cache-smart-matches"
	CachedCustomizedMatchesPath = "/api/ai/cached-customized-matches"
	CacheCustomizedMatchesPath  = "/api/ai/cache-customized-matches"
	EmployeeSearchPath          = "/api/employees/search"
)

// Backend serves the matching, cache and employee endpoints. The cache is
// keyed by bearer token (smart) and bearer token plus preferences hash
// (customized).
type Backend struct {
	Server *httptest.Server
	Token  string

	mu               sync.Mutex
	smartResult      *api.MatchResult
	customizedResult *api.MatchResult
	employees        []api.Employee
	failMatching     bool
	failCache        bool
	failSearch       bool
	smartCache       map[string]*api.MatchResult
	customizedCache  map[string]*api.MatchResult
	calls            map[string]int
	queries          map[string]url.Values
	lastCustomized   *api.CustomizedMatchRequest
}

func New(t testing.TB, token string) *Backend {
	t.Helper()

	b := &Backend{
		Token:           token,
		smartCache:      make(map[string]*api.MatchResult),
		customizedCache: make(map[string]*api.MatchResult),
		calls:           make(map[string]int),
		queries:         make(map[string]url.Values),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(CandidateMatchingPath, b.handleCandidateMatching)
	mux.HandleFunc(CustomizedMatchingPath, b.handleCustomizedMatching)
	mux.HandleFunc(CachedSmartMatchesPath, b.handleCachedSmart)
	mux.HandleFunc(CacheSmartMatchesPath, b.handleCacheSmart)
	mux.HandleFunc(CachedCustomizedMatchesPath, b.handleCachedCustomized)
	mux.HandleFunc(CacheCustomizedMatchesPath, b.handleCacheCustomized)
	mux.HandleFunc(EmployeeSearchPath, b.handleEmployeeSearch)

	b.Server = httptest.NewServer(b.authenticate(mux))
	t.Cleanup(b.Server.Close)

	return b
}

func (b *Backend) URL() string { return b.Server.URL }

func (b *Backend) SetSmartResult(r *api.MatchResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.smartResult = r
}

func (b *Backend) SetCustomizedResult(r *api.MatchResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.customizedResult = r
}

func (b *Backend) SetEmployees(e []api.Employee) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.employees = e
}

func (b *Backend) FailMatching(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failMatching = fail
}

func (b *Backend) FailCache(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failCache = fail
}

func (b *Backend) FailSearch(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failSearch = fail
}

// SeedCustomizedCache stores a customized result as if a previous session had cached it.
func (b *Backend) SeedCustomizedCache(hash string, r *api.MatchResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.customizedCache[b.Token+"|"+hash] = r
}

// SeedSmartCache stores a smart result as if a previous session had cached it.
func (b *Backend) SeedSmartCache(r *api.MatchResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.smartCache[b.Token] = r
}

// Calls returns how many authenticated requests hit path.
func (b *Backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

// Query returns the query of the last request to path.
func (b *Backend) Query(path string) url.Values {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queries[path]
}

// LastCustomizedRequest returns the body of the last customized matching call.
func (b *Backend) LastCustomizedRequest() *api.CustomizedMatchRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastCustomized
}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+b.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "unauthorized"})
			return
		}

		b.mu.Lock()
		b.calls[r.URL.Path]++
		b.queries[r.URL.Path] = r.URL.Query()
		b.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (b *Backend) handleCandidateMatching(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	fail, result := b.failMatching, b.smartResult
	b.mu.Unlock()

	if fail {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "ai service unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(result))
}

func (b *Backend) handleCustomizedMatching(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req api.CustomizedMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": err.Error()})
		return
	}

	b.mu.Lock()
	b.lastCustomized = &req
	fail, result := b.failMatching, b.customizedResult
	b.mu.Unlock()

	if fail {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "ai service unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(result))
}

func (b *Backend) handleCachedSmart(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	fail, cached := b.failCache, b.smartCache[b.Token]
	b.mu.Unlock()

	b.writeCached(w, fail, cached, "")
}

func (b *Backend) handleCachedCustomized(w http.ResponseWriter, r *http.Request) {
	hash := r.URL.Query().Get("preferences_hash")

	b.mu.Lock()
	fail, cached := b.failCache, b.customizedCache[b.Token+"|"+hash]
	b.mu.Unlock()

	b.writeCached(w, fail, cached, hash)
}

func (b *Backend) writeCached(w http.ResponseWriter, fail bool, cached *api.MatchResult, hash string) {
	if fail {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "message": "cache unavailable"})
		return
	}
	if cached == nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "matches": []any{}, "message": "no cached matches"})
		return
	}
	writeJSON(w, http.StatusOK, &api.CachedMatches{
		Success:         true,
		Matches:         cached.Matches,
		Summary:         cached.Summary,
		TotalEvaluated:  cached.TotalEvaluated,
		MatchingQuality: cached.MatchingQuality,
		PreferencesHash: hash,
	})
}

type cacheWrite struct {
	MatchesData     *api.MatchResult `json:"matches_data"`
	PreferencesHash string           `json:"preferences_hash"`
}

func (b *Backend) handleCacheSmart(w http.ResponseWriter, r *http.Request) {
	b.storeCache(w, r, func(body *cacheWrite) { b.smartCache[b.Token] = body.MatchesData })
}

func (b *Backend) handleCacheCustomized(w http.ResponseWriter, r *http.Request) {
	b.storeCache(w, r, func(body *cacheWrite) {
		b.customizedCache[b.Token+"|"+body.PreferencesHash] = body.MatchesData
	})
}

func (b *Backend) storeCache(w http.ResponseWriter, r *http.Request, store func(*cacheWrite)) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var body cacheWrite
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.MatchesData == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "matches_data is required"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failCache {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "message": "cache unavailable"})
		return
	}

	store(&body)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (b *Backend) handleEmployeeSearch(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	fail := b.failSearch
	employees := append([]api.Employee(nil), b.employees...)
	b.mu.Unlock()

	if fail {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false})
		return
	}

	if company := r.URL.Query().Get("company"); company != "" {
		filtered := employees[:0]
		for _, e := range employees {
			if strings.EqualFold(e.Company, company) {
				filtered = append(filtered, e)
			}
		}
		employees = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "employees": employees})
}

func orEmpty(r *api.MatchResult) *api.MatchResult {
	if r == nil {
		return &api.MatchResult{Success: true, Matches: []api.MatchedEmployee{}}
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
