// Package dashboard holds the candidate dashboard's view state: the active
// matching mode, the match list shown for each mode and whether it came from
// the cache or a fresh matching call.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/refmatch/refmatch/internal/api"
	"github.com/refmatch/refmatch/internal/logger"
	"github.com/refmatch/refmatch/internal/matching"
)

type Mode string

const (
	ModeSmart      Mode = matching.ModeSmart
	ModeCustomized Mode = matching.ModeCustomized
)

// ErrSuperseded is returned by a refresh whose response arrived after a newer
// request for the same mode was started. Its result is discarded.
var ErrSuperseded = errors.New("result superseded by a newer request")

// Matcher is implemented by *matching.Service.
type Matcher interface {
	SmartMatches(ctx context.Context, opts matching.SmartOptions) (*api.MatchResult, error)
	PersonalizedMatches(ctx context.Context, prefs matching.Preferences) (*api.MatchResult, error)

	CachedSmartMatches(ctx context.Context) matching.Lookup
	StoreSmartMatches(ctx context.Context, result *api.MatchResult) error
	CachedCustomizedMatches(ctx context.Context, preferencesHash string) matching.Lookup
	StoreCustomizedMatches(ctx context.Context, preferencesHash string, result *api.MatchResult) error
}

// ModeState is what the dashboard shows for one mode.
type ModeState struct {
	Matches   []api.MatchedEmployee
	Summary   *api.Summary
	Loading   bool
	Loaded    bool
	FromCache bool
	Fallback  bool
	Err       error

	generation uint64
}

// View is a snapshot of the active mode.
type View struct {
	Mode              Mode
	ShowCustomization bool
	Preferences       *matching.Preferences
	PreferencesHash   string
	ModeState
}

type Dashboard struct {
	mu sync.Mutex

	matcher   Matcher
	smartOpts matching.SmartOptions
	logger    *zap.Logger

	mode     Mode
	showForm bool
	prefs    *matching.Preferences
	hash     string
	states   map[Mode]*ModeState
}

func New(matcher Matcher, smartOpts matching.SmartOptions, log *zap.Logger) *Dashboard {
	return &Dashboard{
		matcher:   matcher,
		smartOpts: smartOpts,
		logger:    logger.OrNop(log),
		mode:      ModeSmart,
		states: map[Mode]*ModeState{
			ModeSmart:      {},
			ModeCustomized: {},
		},
	}
}

// Init loads cached smart matches. On a miss the smart list stays empty and
// nothing is generated until RefreshSmart is called.
func (d *Dashboard) Init(ctx context.Context) {
	gen := d.begin(ModeSmart)

	lookup := d.matcher.CachedSmartMatches(ctx)
	if !lookup.Hit() {
		d.finish(ModeSmart, gen, func(s *ModeState) {})
		return
	}

	d.finish(ModeSmart, gen, func(s *ModeState) {
		s.populate(lookup.Result, true)
	})
}

// RefreshSmart generates smart matches and caches them. On failure the
// previous list is kept.
func (d *Dashboard) RefreshSmart(ctx context.Context) error {
	gen := d.begin(ModeSmart)

	result, err := d.matcher.SmartMatches(ctx, d.smartOpts)
	if err != nil {
		if !d.finish(ModeSmart, gen, func(s *ModeState) { s.Err = err }) {
			return ErrSuperseded
		}
		return fmt.Errorf("refresh smart matches: %w", err)
	}

	if !d.finish(ModeSmart, gen, func(s *ModeState) { s.populate(result, false) }) {
		return ErrSuperseded
	}

	// Fallback lists are never cached.
	if !result.Fallback {
		_ = d.matcher.StoreSmartMatches(ctx, result)
	}

	return nil
}

func (d *Dashboard) OpenCustomization() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.showForm = true
}

func (d *Dashboard) CloseCustomization() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.showForm = false
}

// SubmitCustomization switches to customized mode and shows the matches for
// prefs, from the cache when an entry exists under the preferences hash.
func (d *Dashboard) SubmitCustomization(ctx context.Context, prefs matching.Preferences) error {
	if err := prefs.Validate(); err != nil {
		return err
	}

	hash, err := prefs.Hash()
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.mode = ModeCustomized
	d.showForm = false
	d.prefs = &prefs
	d.hash = hash
	gen := d.beginLocked(ModeCustomized)
	d.mu.Unlock()

	log := logger.WithFields(d.logger, logger.MatchingFields(matching.ModeCustomized, hash)...)

	if lookup := d.matcher.CachedCustomizedMatches(ctx, hash); lookup.Hit() {
		log.Debug("showing cached customized matches")
		if !d.finish(ModeCustomized, gen, func(s *ModeState) { s.populate(lookup.Result, true) }) {
			return ErrSuperseded
		}
		return nil
	}

	result, err := d.matcher.PersonalizedMatches(ctx, prefs)
	if err != nil {
		if !d.finish(ModeCustomized, gen, func(s *ModeState) { s.Err = err }) {
			return ErrSuperseded
		}
		return fmt.Errorf("customized matches: %w", err)
	}

	if !d.finish(ModeCustomized, gen, func(s *ModeState) { s.populate(result, false) }) {
		return ErrSuperseded
	}

	_ = d.matcher.StoreCustomizedMatches(ctx, hash, result)
	return nil
}

// SetMode switches the active mode without any network call. The other
// mode's list is kept.
func (d *Dashboard) SetMode(mode Mode) error {
	if mode != ModeSmart && mode != ModeCustomized {
		return fmt.Errorf("unknown mode %q", mode)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.mode = mode
	return nil
}

// ResetToSmart drops the customized list and preferences, closes the form
// and activates smart mode. Customized requests still in flight are discarded.
func (d *Dashboard) ResetToSmart() {
	d.mu.Lock()
	defer d.mu.Unlock()

	gen := d.states[ModeCustomized].generation + 1
	d.states[ModeCustomized] = &ModeState{generation: gen}
	d.prefs = nil
	d.hash = ""
	d.showForm = false
	d.mode = ModeSmart
}

func (d *Dashboard) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

func (d *Dashboard) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()

	state := *d.states[d.mode]
	state.Matches = append([]api.MatchedEmployee(nil), state.Matches...)

	v := View{
		Mode:              d.mode,
		ShowCustomization: d.showForm,
		ModeState:         state,
	}

	if d.mode == ModeCustomized && d.prefs != nil {
		prefs := *d.prefs
		v.Preferences = &prefs
		v.PreferencesHash = d.hash
	}

	return v
}

// begin starts a request for mode and returns its generation.
func (d *Dashboard) begin(mode Mode) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.beginLocked(mode)
}

// beginLocked is begin for callers already holding d.mu.
func (d *Dashboard) beginLocked(mode Mode) uint64 {
	s := d.states[mode]
	s.generation++
	s.Loading = true
	s.Err = nil
	return s.generation
}

// finish applies update if gen is still the current generation of mode.
func (d *Dashboard) finish(mode Mode, gen uint64, update func(*ModeState)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.states[mode]
	if s.generation != gen {
		d.logger.Debug("discarding stale response",
			zap.String(logger.FieldMode, string(mode)),
			zap.Uint64("generation", gen),
			zap.Uint64("current_generation", s.generation),
		)
		return false
	}

	s.Loading = false
	update(s)
	return true
}

func (s *ModeState) populate(result *api.MatchResult, fromCache bool) {
	s.Matches = result.Matches
	s.Summary = result.Summary
	s.Fallback = result.Fallback
	s.FromCache = fromCache
	s.Loaded = true
	s.Err = nil
}
