package matching

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

// RecordStore supplies the entity records of one origin (victim reports or
// official records).
type RecordStore interface {
	Records(ctx context.Context) ([]EntityRecord, error)
}

// repairRow forces a row to exactly ExpectedColumns fields.  Overlong rows
// are usually an unquoted comma in the free-text description, so the
// overflow is folded back into the last column; short rows are padded.
func repairRow(row []string) []string {
	switch {
	case len(row) > ExpectedColumns:
		merged := strings.Join(row[ExpectedColumns-1:], ",")
		return append(row[:ExpectedColumns-1:ExpectedColumns-1], merged)
	case len(row) < ExpectedColumns:
		padded := make([]string, ExpectedColumns)
		copy(padded, row)
		return padded
	}
	return row
}

// LoadCSV reads and normalizes a record store file.  labelPrefix names the
// store origin and is used for rows without a report_id ("victim-3").
func LoadCSV(path, labelPrefix string) ([]EntityRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRecordStoreLoad,
			"cannot open record store "+path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRecordStoreLoad,
			"cannot parse record store "+path)
	}

	records := make([]EntityRecord, 0, len(rows))
	index := 0
	for i, row := range rows {
		if i == 0 && len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "report_id") {
			continue // header row
		}
		cols := repairRow(row)
		records = append(records, recordFromColumns(cols, fmt.Sprintf("%s-%d", labelPrefix, index)))
		index++
	}
	return records, nil
}

// CachedCSVStore is a RecordStore that loads its file once and serves the
// parsed records from memory.  When watching is enabled, file writes,
// renames, and removals invalidate the cache so the next read reloads.
type CachedCSVStore struct {
	path        string
	labelPrefix string
	watcher     *fsnotify.Watcher
	logger      logging.Logger
	metrics     *prometheus.AppMetrics

	mu      sync.RWMutex
	records []EntityRecord
	loaded  bool
}

// NewCachedCSVStore builds the store.  With watch true, an fsnotify watcher
// on the file's directory drives invalidation; Close releases it.
func NewCachedCSVStore(path, labelPrefix string, watch bool, logger logging.Logger, metrics *prometheus.AppMetrics) (*CachedCSVStore, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	s := &CachedCSVStore{
		path:        path,
		labelPrefix: labelPrefix,
		logger:      logger.Named("recordstore").With(logging.String("store", labelPrefix)),
		metrics:     metrics,
	}
	if watch {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeRecordStoreLoad,
				"cannot create store watcher")
		}
		// Watch the directory: editors and atomic writers replace the file,
		// which would drop a watch on the path itself.
		if err := w.Add(filepath.Dir(path)); err != nil {
			w.Close()
			return nil, apperrors.Wrap(err, apperrors.ErrCodeRecordStoreLoad,
				"cannot watch store directory")
		}
		s.watcher = w
		go s.watchLoop()
	}
	return s, nil
}

func (s *CachedCSVStore) watchLoop() {
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != s.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				s.logger.Info("record store changed on disk, invalidating cache",
					logging.String("op", ev.Op.String()))
				s.metrics.StoreInvalidation.WithLabelValues(s.labelPrefix).Inc()
				s.Invalidate()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("store watcher error", logging.Err(err))
		}
	}
}

// Records returns the cached records, loading the file on first use or
// after invalidation.
func (s *CachedCSVStore) Records(ctx context.Context) ([]EntityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	if s.loaded {
		records := s.records
		s.mu.RUnlock()
		s.metrics.RecordStoreLoads.WithLabelValues(s.labelPrefix, "cache_hit").Inc()
		return records, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		s.metrics.RecordStoreLoads.WithLabelValues(s.labelPrefix, "cache_hit").Inc()
		return s.records, nil
	}

	start := time.Now()
	records, err := LoadCSV(s.path, s.labelPrefix)
	if err != nil {
		s.metrics.RecordStoreLoads.WithLabelValues(s.labelPrefix, "error").Inc()
		return nil, err
	}
	s.records = records
	s.loaded = true

	s.metrics.RecordStoreLoads.WithLabelValues(s.labelPrefix, "ok").Inc()
	s.metrics.RecordStoreSize.WithLabelValues(s.labelPrefix).Set(float64(len(records)))
	s.logger.Info("record store loaded",
		logging.Int("records", len(records)),
		logging.Duration("elapsed", time.Since(start)))
	return records, nil
}

// Invalidate drops the cached rows; the next Records call reloads.
func (s *CachedCSVStore) Invalidate() {
	s.mu.Lock()
	s.records = nil
	s.loaded = false
	s.mu.Unlock()
}

// Close stops the watcher, if any.
func (s *CachedCSVStore) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
