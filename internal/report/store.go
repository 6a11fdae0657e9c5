package report

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/probelab/backcast/internal/analysis"
)

const (
	// DefaultArchiveDir is where run summaries accumulate between
	// invocations.
	DefaultArchiveDir = "./wal/runs"
	segmentLimit      = 100
	maxSegments       = 10

	runKeyPrefix = "run_"
)

// Archive persists run metrics in a write-ahead log so past runs survive
// restarts and stay comparable.
type Archive struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// ArchivedRun is one persisted run summary.
type ArchivedRun struct {
	Index   uint64
	Metrics analysis.Metrics
}

// NewArchive opens (or creates) the run archive at dir.
func NewArchive(dir string) (*Archive, error) {
	if dir == "" {
		dir = DefaultArchiveDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "run_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}
	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init run archive")
	}
	return &Archive{wal: wal}, nil
}

// Save appends one run's metrics to the archive.
func (a *Archive) Save(m *analysis.Metrics) error {
	if a == nil || a.wal == nil {
		return errors.New("run archive is not initialized")
	}
	if m.RunID == "" {
		return errors.New("run id is required")
	}

	payload, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "marshal run metrics")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	nextIndex := a.wal.CurrentIndex() + 1
	return a.wal.Write(nextIndex, runKeyPrefix+m.RunID, payload)
}

// RunsAfter returns all runs persisted after the provided index.
func (a *Archive) RunsAfter(index uint64) ([]ArchivedRun, error) {
	if a == nil || a.wal == nil {
		return nil, errors.New("run archive is not initialized")
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	current := a.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	runs := make([]ArchivedRun, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := a.wal.Get(idx)
		if err != nil {
			continue
		}
		if !strings.HasPrefix(key, runKeyPrefix) {
			continue
		}
		var m analysis.Metrics
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, errors.Wrap(err, "decode archived run")
		}
		runs = append(runs, ArchivedRun{Index: idx, Metrics: m})
	}
	return runs, nil
}

// CurrentIndex returns the latest archive index.
func (a *Archive) CurrentIndex() uint64 {
	if a == nil || a.wal == nil {
		return 0
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.wal.CurrentIndex()
}

// Close closes the underlying log.
func (a *Archive) Close() error {
	if a == nil || a.wal == nil {
		return errors.New("run archive is not initialized")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.wal.Close()
}
