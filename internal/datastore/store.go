// Package datastore loads, normalizes, and indexes per-instrument price
// series and serves point-in-time and windowed queries to the replay engine.
// All history is held in memory; no I/O happens after Finalize.
package datastore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/probelab/backcast/internal/domain"
)

// Store owns every InstrumentHistory for a run. Consumers receive
// references and must not mutate them.
type Store struct {
	logger      *zap.Logger
	instruments map[string]*domain.InstrumentHistory
	skipped     int
}

// New creates an empty store.
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		logger:      logger,
		instruments: make(map[string]*domain.InstrumentHistory),
	}
}

// Add normalizes and indexes a history: points are sorted ascending and
// duplicate timestamps collapsed to the first occurrence. Histories without
// usable points are rejected.
func (s *Store) Add(h *domain.InstrumentHistory) error {
	if h == nil || h.ID == "" {
		return errors.New("instrument id is required")
	}
	if len(h.Points) == 0 {
		return errors.Errorf("instrument %s has no price points", h.ID)
	}
	sort.SliceStable(h.Points, func(i, j int) bool {
		return h.Points[i].Time.Before(h.Points[j].Time)
	})
	deduped := h.Points[:0]
	for _, p := range h.Points {
		if len(deduped) > 0 && deduped[len(deduped)-1].Time.Equal(p.Time) {
			continue
		}
		deduped = append(deduped, p)
	}
	h.Points = deduped
	s.instruments[h.ID] = h
	return nil
}

// Finalize verifies the store is usable. It returns domain.ErrNoData when
// zero instruments were loaded; downstream operations assume at least one.
func (s *Store) Finalize() error {
	if len(s.instruments) == 0 {
		return domain.ErrNoData
	}
	s.logger.Info("data store ready",
		zap.Int("instruments", len(s.instruments)),
		zap.Int("skipped_records", s.skipped))
	return nil
}

// Instrument returns the history for id, nil when unknown.
func (s *Store) Instrument(id string) *domain.InstrumentHistory {
	return s.instruments[id]
}

// Instruments returns all loaded histories in ID order.
func (s *Store) Instruments() []*domain.InstrumentHistory {
	ids := make([]string, 0, len(s.instruments))
	for id := range s.instruments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*domain.InstrumentHistory, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.instruments[id])
	}
	return out
}

// ActiveAt returns the instruments whose series spans t, in ID order.
func (s *Store) ActiveAt(t time.Time) []*domain.InstrumentHistory {
	var active []*domain.InstrumentHistory
	for _, h := range s.Instruments() {
		if h.ActiveAt(t) {
			active = append(active, h)
		}
	}
	return active
}

// TimeRange returns the overall [min, max] observation range.
func (s *Store) TimeRange() (time.Time, time.Time, bool) {
	var minT, maxT time.Time
	found := false
	for _, h := range s.instruments {
		if len(h.Points) == 0 {
			continue
		}
		start := h.Points[0].Time
		end := h.Points[len(h.Points)-1].Time
		if !found || start.Before(minT) {
			minT = start
		}
		if !found || end.After(maxT) {
			maxT = end
		}
		found = true
	}
	return minT, maxT, found
}

// Snapshot builds the ephemeral market view for id at t.
func (s *Store) Snapshot(id string, t time.Time) (*domain.MarketSnapshot, bool) {
	h := s.instruments[id]
	if h == nil {
		return nil, false
	}
	point, ok := h.PointAt(t)
	if !ok {
		return nil, false
	}

	daysToResolve := 365.0
	if !h.ResolvedAt.IsZero() {
		remaining := h.ResolvedAt.Sub(t).Hours() / 24
		if remaining < 1 {
			remaining = 1
		}
		daysToResolve = remaining
	}

	bid, ask := point.Bid, point.Ask
	if bid <= 0 {
		bid = point.Price - 0.01
		if bid < 0.001 {
			bid = 0.001
		}
	}
	if ask <= 0 {
		ask = point.Price + 0.01
		if ask > 0.999 {
			ask = 0.999
		}
	}

	return &domain.MarketSnapshot{
		InstrumentID:  id,
		Price:         point.Price,
		Bid:           bid,
		Ask:           ask,
		Volume24h:     h.VolumeIn(t, 24*time.Hour),
		Change24h:     h.PriceChange(t, 24*time.Hour),
		Volatility:    h.Volatility(t, 24*time.Hour),
		DaysToResolve: daysToResolve,
	}, true
}

// SkippedRecords reports how many malformed records were dropped during
// archive loading.
func (s *Store) SkippedRecords() int {
	return s.skipped
}

// archive JSON shapes. Records tolerate both native and legacy field names.
type archiveFile struct {
	Instruments []archiveInstrument `json:"instruments"`
	Markets     []archiveInstrument `json:"markets"`
}

type archiveInstrument struct {
	ID          string          `json:"id"`
	ConditionID string          `json:"condition_id"`
	Label       string          `json:"label"`
	Question    string          `json:"question"`
	Outcome     string          `json:"outcome"`
	Resolution  string          `json:"resolution"`
	ResolvedAt  string          `json:"resolved_at"`
	ResTime     string          `json:"resolution_time"`
	Prices      []archiveRecord `json:"prices"`
}

type archiveRecord struct {
	Timestamp *string  `json:"timestamp"`
	Price     *float64 `json:"price"`
	Volume    float64  `json:"volume"`
	Bid       float64  `json:"bid"`
	Ask       float64  `json:"ask"`
}

// LoadArchive ingests a JSON archive file, or every .json file in a
// directory. Records missing a timestamp or price are skipped and counted,
// never fatal. Returns the number of instruments loaded.
func (s *Store) LoadArchive(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrapf(err, "stat archive %s", path)
	}

	if !info.IsDir() {
		return s.loadArchiveFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, errors.Wrapf(err, "read archive dir %s", path)
	}
	total := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		n, err := s.loadArchiveFile(filepath.Join(path, e.Name()))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *Store) loadArchiveFile(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrapf(err, "read archive %s", path)
	}

	var file archiveFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return 0, errors.Wrapf(err, "parse archive %s", path)
	}

	records := file.Instruments
	if len(records) == 0 {
		records = file.Markets
	}

	count := 0
	for _, rec := range records {
		h := s.parseInstrument(rec)
		if h == nil || len(h.Points) == 0 {
			continue
		}
		if err := s.Add(h); err != nil {
			continue
		}
		count++
	}
	s.logger.Info("archive loaded",
		zap.String("path", path),
		zap.Int("instruments", count),
		zap.Int("skipped_records", s.skipped))
	return count, nil
}

func (s *Store) parseInstrument(rec archiveInstrument) *domain.InstrumentHistory {
	id := rec.ID
	if id == "" {
		id = rec.ConditionID
	}
	if id == "" {
		return nil
	}
	label := rec.Label
	if label == "" {
		label = rec.Question
	}

	h := &domain.InstrumentHistory{ID: id, Label: label}

	switch strings.ToUpper(firstNonEmpty(rec.Outcome, rec.Resolution)) {
	case "WIN", "YES":
		h.Outcome = domain.OutcomeWin
	case "LOSE", "NO":
		h.Outcome = domain.OutcomeLose
	}

	if ts := firstNonEmpty(rec.ResolvedAt, rec.ResTime); ts != "" {
		if at, err := parseTimestamp(ts); err == nil {
			h.ResolvedAt = at
		}
	}

	for _, p := range rec.Prices {
		if p.Timestamp == nil || p.Price == nil {
			s.skipped++
			continue
		}
		ts, err := parseTimestamp(*p.Timestamp)
		if err != nil {
			s.skipped++
			s.logger.Debug("skipping malformed record",
				zap.String("instrument", id), zap.Error(err))
			continue
		}
		h.Points = append(h.Points, domain.PricePoint{
			Time:   ts,
			Price:  *p.Price,
			Volume: p.Volume,
			Bid:    p.Bid,
			Ask:    p.Ask,
		})
	}
	return h
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	ts, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "unparseable timestamp %q", s)
	}
	return ts.UTC(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
