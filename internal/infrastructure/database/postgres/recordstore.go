package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CyberTrace-Intelligence/internal/matching"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

// Store labels used as the discriminator in the entity_records table and
// as fallback-identifier prefixes, mirroring the tabular stores.
const (
	StoreVictim   = "victim"
	StoreOfficial = "official"
)

// RecordSource reads normalized entity records from the entity_records
// table.  Multi-value columns keep the pipe-delimited text encoding of the
// tabular stores, so both sources parse through the same path.
type RecordSource struct {
	pool   *pgxpool.Pool
	store  string
	logger logging.Logger
}

// NewRecordSource builds a matching.RecordStore over one store partition.
func NewRecordSource(pool *pgxpool.Pool, store string, logger logging.Logger) *RecordSource {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RecordSource{pool: pool, store: store, logger: logger.Named("pg-records")}
}

var _ matching.RecordStore = (*RecordSource)(nil)

// recordQuery selects the canonical columns in order.  NULLs collapse to
// empty text so rows parse like absent tabular cells, and position
// preserves insertion order so fallback identifiers stay stable.
var recordQuery = func() string {
	cols := matching.RecordColumns()
	selects := make([]string, len(cols))
	for i, c := range cols {
		selects[i] = fmt.Sprintf("COALESCE(%s, '')", c)
	}
	return fmt.Sprintf("SELECT %s FROM entity_records WHERE store = $1 ORDER BY position",
		strings.Join(selects, ", "))
}()

// Records loads every record of the partition.
func (s *RecordSource) Records(ctx context.Context) ([]matching.EntityRecord, error) {
	rows, err := s.pool.Query(ctx, recordQuery, s.store)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRecordStoreLoad,
			fmt.Sprintf("query %s records failed", s.store))
	}
	defer rows.Close()

	width := len(matching.RecordColumns())
	var records []matching.EntityRecord
	for rows.Next() {
		cols := make([]string, width)
		dest := make([]interface{}, width)
		for i := range cols {
			dest[i] = &cols[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeRecordStoreLoad,
				fmt.Sprintf("scan %s record failed", s.store))
		}
		fallback := fmt.Sprintf("%s-%d", s.store, len(records))
		records = append(records, matching.RecordFromRow(cols, fallback))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRecordStoreLoad,
			fmt.Sprintf("read %s records failed", s.store))
	}

	s.logger.Debug("loaded entity records",
		logging.String("store", s.store), logging.Int("count", len(records)))
	return records, nil
}
