package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/metrics"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/modules/sensit/types"
)

//go:embed sql/get-latest-record.sql
var getLatestRecordSQL string

//go:embed sql/insert-record.sql
var insertRecordSQL string

const backendSQLite = "sqlite"

type sqliteRepository struct {
	db      *sql.DB
	timeout time.Duration
	logger  *slog.Logger
}

// NewSQLiteRepository serves the sensit table from a local SQLite database.
func NewSQLiteRepository(db *sql.DB, timeout time.Duration, logger *slog.Logger) SensitRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &sqliteRepository{db: db, timeout: timeoutOrDefault(timeout), logger: logger}
}

func (r *sqliteRepository) FetchLatestRecord(ctx context.Context) (types.SensorRecord, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rec, err := r.fetchLatest(ctx)
	if err != nil {
		qerr := newQueryError(ctx, backendSQLite, "fetch latest record", err)
		metrics.ObserveQuery(backendSQLite, "fetch_latest", outcome(qerr), start)
		r.logger.Error("warehouse query failed", "backend", backendSQLite, "error", qerr)
		return types.SensorRecord{}, qerr
	}

	metrics.ObserveQuery(backendSQLite, "fetch_latest", outcome(nil), start)
	r.logger.Debug("warehouse query result", "backend", backendSQLite, "record", rec)
	return rec, nil
}

func (r *sqliteRepository) fetchLatest(ctx context.Context) (types.SensorRecord, error) {
	var (
		rec         types.SensorRecord
		ts          string
		temperature sql.NullFloat64
		humidity    sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, getLatestRecordSQL).
		Scan(&rec.SeqNumber, &rec.Device, &ts, &temperature, &humidity)
	if errors.Is(err, sql.ErrNoRows) {
		return types.SensorRecord{}, ErrNoRecords
	}
	if err != nil {
		return types.SensorRecord{}, err
	}

	if ts != "" {
		t, err := parseTimestamp(ts)
		if err != nil {
			return types.SensorRecord{}, err
		}
		rec.Time = t
	}
	rec.Temperature = nullableFloat(temperature)
	rec.Humidity = nullableFloat(humidity)
	return rec, nil
}

func (r *sqliteRepository) InsertRecord(ctx context.Context, rec types.SensorRecord) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var ts string
	if !rec.Time.IsZero() {
		ts = rec.Time.UTC().Format(time.RFC3339Nano)
	}

	var tempVal, humidityVal any
	if rec.Temperature != nil {
		tempVal = *rec.Temperature
	}
	if rec.Humidity != nil {
		humidityVal = *rec.Humidity
	}

	_, err := r.db.ExecContext(ctx, insertRecordSQL, rec.Device, rec.SeqNumber, ts, tempVal, humidityVal)
	if err != nil {
		qerr := newQueryError(ctx, backendSQLite, "insert record", err)
		metrics.ObserveQuery(backendSQLite, "insert", outcome(qerr), start)
		return qerr
	}
	metrics.ObserveQuery(backendSQLite, "insert", outcome(nil), start)
	return nil
}

func parseTimestamp(ts string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		var err2 error
		t, err2 = time.Parse(time.RFC3339, ts)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: RFC3339Nano: %w; RFC3339: %w", ts, err, err2)
		}
	}
	return t, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
