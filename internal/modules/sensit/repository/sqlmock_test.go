package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/metrics"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/modules/sensit/types"
)

// queryCount returns the number of observations recorded for one
// warehouse_query_duration_seconds series.
func queryCount(t *testing.T, backend, op, outcome string) uint64 {
	t.Helper()
	obs, err := metrics.WarehouseQueryDuration.GetMetricWithLabelValues(backend, op, outcome)
	require.NoError(t, err)

	var m dto.Metric
	require.NoError(t, obs.(prometheus.Metric).Write(&m))
	return m.GetHistogram().GetSampleCount()
}

var latestQueryRe = regexp.QuoteMeta(getLatestRecordSQL)

func TestFetchLatestRecord_Mocked(t *testing.T) {
	tests := []struct {
		name      string
		mockQuery func(mock sqlmock.Sqlmock)
		wantErr   error
		validate  func(t *testing.T, rec types.SensorRecord)
	}{
		{
			name: "latest row",
			mockQuery: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"seqNumber", "device", "time", "temperature", "humidity"}).
					AddRow(42, "1A2B3C", "2025-02-01T14:00:00.5Z", 21.5, 60.0)
				mock.ExpectQuery(latestQueryRe).WillReturnRows(rows)
			},
			validate: func(t *testing.T, rec types.SensorRecord) {
				assert.Equal(t, int64(42), rec.SeqNumber)
				assert.Equal(t, "1A2B3C", rec.Device)
				require.NotNil(t, rec.Temperature)
				assert.Equal(t, 21.5, *rec.Temperature)
				require.NotNil(t, rec.Humidity)
				assert.Equal(t, 60.0, *rec.Humidity)
				assert.Equal(t, 500*time.Millisecond, time.Duration(rec.Time.Nanosecond()))
			},
		},
		{
			name: "no rows",
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(latestQueryRe).
					WillReturnRows(sqlmock.NewRows([]string{"seqNumber", "device", "time", "temperature", "humidity"}))
			},
			wantErr: ErrNoRecords,
		},
		{
			name: "driver failure",
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(latestQueryRe).WillReturnError(driver.ErrBadConn)
			},
			wantErr: driver.ErrBadConn,
		},
		{
			name: "malformed timestamp",
			mockQuery: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"seqNumber", "device", "time", "temperature", "humidity"}).
					AddRow(1, "A", "yesterday", nil, nil)
				mock.ExpectQuery(latestQueryRe).WillReturnRows(rows)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mockQuery(mock)
			repo := NewSQLiteRepository(db, time.Second, nil)

			rec, err := repo.FetchLatestRecord(context.Background())
			if tt.validate != nil {
				require.NoError(t, err)
				tt.validate(t, rec)
			} else {
				require.Error(t, err)
				var qerr *QueryError
				assert.True(t, errors.As(err, &qerr))
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestFetchLatestRecord_TimeoutIsReported(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(latestQueryRe).
		WillDelayFor(200 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"seqNumber", "device", "time", "temperature", "humidity"}).AddRow(1, "A", "", 1.0, 1.0))

	repo := NewSQLiteRepository(db, 20*time.Millisecond, nil)
	timeoutsBefore := queryCount(t, backendSQLite, "fetch_latest", "timeout")
	errorsBefore := queryCount(t, backendSQLite, "fetch_latest", "error")

	_, err = repo.FetchLatestRecord(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQueryTimeout)

	assert.Equal(t, timeoutsBefore+1, queryCount(t, backendSQLite, "fetch_latest", "timeout"))
	assert.Equal(t, errorsBefore, queryCount(t, backendSQLite, "fetch_latest", "error"))
}

func TestFetchLatestRecord_OutcomeLabels(t *testing.T) {
	tests := []struct {
		name      string
		mockQuery func(mock sqlmock.Sqlmock)
		outcome   string
	}{
		{
			name: "ok",
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(latestQueryRe).WillReturnRows(
					sqlmock.NewRows([]string{"seqNumber", "device", "time", "temperature", "humidity"}).AddRow(1, "A", "", 1.0, 1.0))
			},
			outcome: "ok",
		},
		{
			name: "empty",
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(latestQueryRe).WillReturnRows(
					sqlmock.NewRows([]string{"seqNumber", "device", "time", "temperature", "humidity"}))
			},
			outcome: "empty",
		},
		{
			name: "error",
			mockQuery: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(latestQueryRe).WillReturnError(driver.ErrBadConn)
			},
			outcome: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mockQuery(mock)
			repo := NewSQLiteRepository(db, time.Second, nil)
			before := queryCount(t, backendSQLite, "fetch_latest", tt.outcome)

			_, _ = repo.FetchLatestRecord(context.Background())

			assert.Equal(t, before+1, queryCount(t, backendSQLite, "fetch_latest", tt.outcome))
		})
	}
}

func TestInsertRecord_TimeoutIsReported(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(insertRecordSQL)).
		WillDelayFor(200 * time.Millisecond).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewSQLiteRepository(db, 20*time.Millisecond, nil)
	before := queryCount(t, backendSQLite, "insert", "timeout")

	err = repo.InsertRecord(context.Background(), types.SensorRecord{SeqNumber: 1, Device: "A", Temperature: ptr(1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQueryTimeout)
	assert.Equal(t, before+1, queryCount(t, backendSQLite, "insert", "timeout"))
}

func TestInsertRecord_Mocked(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(insertRecordSQL)).
		WithArgs("1A2B3C", int64(9), "2025-01-02T03:04:05Z", 21.5, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewSQLiteRepository(db, time.Second, nil)
	err = repo.InsertRecord(context.Background(), types.SensorRecord{
		SeqNumber: 9, Device: "1A2B3C", Time: ts, Temperature: ptr(21.5),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryError(t *testing.T) {
	base := errors.New("boom")
	err := newQueryError(context.Background(), "sqlite", "fetch latest record", base)

	assert.Equal(t, "sqlite warehouse: fetch latest record: boom", err.Error())
	assert.ErrorIs(t, err, base)
	assert.NotErrorIs(t, err, ErrQueryTimeout)

	timedOut := newQueryError(context.Background(), "bigquery", "fetch latest record", context.DeadlineExceeded)
	assert.ErrorIs(t, timedOut, ErrQueryTimeout)
	assert.ErrorIs(t, timedOut, context.DeadlineExceeded)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "empty", outcome(ErrNoRecords))
	assert.Equal(t, "timeout", outcome(newQueryError(context.Background(), "x", "y", context.DeadlineExceeded)))
	assert.Equal(t, "error", outcome(errors.New("other")))
}
