package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"climate-tracker/internal/modules/climate/types"
)

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/get-latest-readings.sql
var getLatestReadingsSQL string

//go:embed sql/count-readings.sql
var countReadingsSQL string

// ArchiveRepository stores readings beyond the in-memory window. It is
// write-behind only: nothing here is read back into the live window.
type ArchiveRepository interface {
	InsertReading(ctx context.Context, stationID string, seq uint64, r types.Reading) error
	GetLatestReadings(ctx context.Context, stationID string, limit int) ([]types.ArchivedReading, error)
	CountReadings(ctx context.Context, stationID string) (int, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) ArchiveRepository {
	return &repositoryImpl{db: db}
}

// InsertReading archives r. A second insert for the same station and second
// is ignored.
func (r *repositoryImpl) InsertReading(ctx context.Context, stationID string, seq uint64, reading types.Reading) error {
	if stationID == "" {
		return fmt.Errorf("insert reading: empty station id")
	}
	if reading.Time.IsZero() {
		return fmt.Errorf("insert reading: reading %q has no time", reading.Timestamp)
	}
	ts := reading.Time.UTC().Format(time.RFC3339)
	if _, err := r.db.ExecContext(ctx, insertReadingSQL, stationID, ts, reading.TemperatureC, int64(seq)); err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// GetLatestReadings returns up to limit archived readings, newest first.
func (r *repositoryImpl) GetLatestReadings(ctx context.Context, stationID string, limit int) ([]types.ArchivedReading, error) {
	rows, err := r.db.QueryContext(ctx, getLatestReadingsSQL, stationID, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close latest readings rows", "error", err)
		}
	}()

	out := []types.ArchivedReading{}
	for rows.Next() {
		var (
			rec types.ArchivedReading
			ts  string
			seq int64
		)
		if err := rows.Scan(&rec.StationID, &ts, &rec.TemperatureC, &seq); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		rec.Time = t
		rec.Seq = uint64(seq)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) CountReadings(ctx context.Context, stationID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countReadingsSQL, stationID).Scan(&n)
	return n, err
}
