// Package strategy defines the strategy callback interface, the name
// registry, and the per-run state object shared by stateful strategies.
package strategy

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/probelab/backcast/internal/domain"
)

// Strategy evaluates one instrument at one simulation step and returns an
// entry signal, or nil for no action. Implementations must be pure apart
// from the provided State: any memory across steps lives there so that
// concurrent runs never share mutable state.
type Strategy interface {
	// Name is the registry key for the strategy.
	Name() string
	// Evaluate inspects the instrument at the simulation clock and
	// returns an entry intent or nil.
	Evaluate(hist *domain.InstrumentHistory, snap *domain.MarketSnapshot, now time.Time, state *State) *domain.Signal
}

// Registry maps strategy names to implementations.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register adds a strategy, rejecting duplicate names.
func (r *Registry) Register(s Strategy) error {
	if s == nil || s.Name() == "" {
		return errors.New("strategy name is required")
	}
	if _, ok := r.strategies[s.Name()]; ok {
		return errors.Errorf("strategy %s already registered", s.Name())
	}
	r.strategies[s.Name()] = s
	return nil
}

// Get returns the strategy registered under name.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// Names returns registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry preloaded with all built-in
// strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range []Strategy{
		NearCertain{},
		NearZero{},
		DipBuy{},
		MidRange{},
		MeanReversion{},
		MeanReversionBroken{},
		Momentum{},
		VolumeSurge{},
		CrossVenue{},
		MarketMaker{},
		DualSideArb{},
	} {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}

// makerQuote remembers the bid/ask pair quoted at maker entry.
type makerQuote struct {
	bid, ask float64
	quotedAt time.Time
}

// State is the per-run mutable strategy state: mean-reversion cooldowns and
// entry counts, and maker quote memory. The engine creates a fresh State at
// run start; it is never shared across runs.
type State struct {
	mrLastExit      map[string]time.Time
	mrEntryCount    map[string]int
	mrCooldownHours float64
	mrMaxEntries    int
	makerQuotes     map[string]makerQuote
}

// NewState returns a fresh state with production cooldown defaults.
func NewState() *State {
	return &State{
		mrLastExit:      make(map[string]time.Time),
		mrEntryCount:    make(map[string]int),
		mrCooldownHours: 48,
		mrMaxEntries:    2,
		makerQuotes:     make(map[string]makerQuote),
	}
}

// RecordMeanReversionExit starts the re-entry cooldown for an instrument.
func (s *State) RecordMeanReversionExit(instrumentID string, at time.Time) {
	s.mrLastExit[instrumentID] = at
}

// CanEnterMeanReversion reports whether the cooldown has elapsed and the
// entry cap is not exhausted.
func (s *State) CanEnterMeanReversion(instrumentID string, at time.Time) bool {
	if last, ok := s.mrLastExit[instrumentID]; ok {
		if at.Sub(last).Hours() < s.mrCooldownHours {
			return false
		}
	}
	return s.mrEntryCount[instrumentID] < s.mrMaxEntries
}

// RecordMeanReversionEntry counts an entry against the per-instrument cap.
func (s *State) RecordMeanReversionEntry(instrumentID string) {
	s.mrEntryCount[instrumentID]++
}

// RecordMakerQuote remembers the quoted pair for a maker entry.
func (s *State) RecordMakerQuote(instrumentID string, bid, ask float64, at time.Time) {
	s.makerQuotes[instrumentID] = makerQuote{bid: bid, ask: ask, quotedAt: at}
}

// ClearMakerQuote forgets the quote after the position closes.
func (s *State) ClearMakerQuote(instrumentID string) {
	delete(s.makerQuotes, instrumentID)
}
