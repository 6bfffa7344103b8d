package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/metrics"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/modules/sensit/types"
)

const backendBigQuery = "bigquery"

// TableRef identifies a BigQuery table as project.dataset.table.
type TableRef struct {
	Project string
	Dataset string
	Table   string
}

func (t TableRef) String() string {
	return t.Project + "." + t.Dataset + "." + t.Table
}

// ParseTableRef accepts "project.dataset.table" or "dataset.table"; the
// latter is resolved against defaultProject. Backquotes are stripped.
func ParseTableRef(s, defaultProject string) (TableRef, error) {
	parts := strings.Split(strings.Trim(strings.TrimSpace(s), "`"), ".")
	switch len(parts) {
	case 3:
		if parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return TableRef{}, fmt.Errorf("invalid table reference %q", s)
		}
		return TableRef{Project: parts[0], Dataset: parts[1], Table: parts[2]}, nil
	case 2:
		if defaultProject == "" || parts[0] == "" || parts[1] == "" {
			return TableRef{}, fmt.Errorf("invalid table reference %q (no project)", s)
		}
		return TableRef{Project: defaultProject, Dataset: parts[0], Table: parts[1]}, nil
	default:
		return TableRef{}, fmt.Errorf("invalid table reference %q (expected project.dataset.table)", s)
	}
}

func latestRecordQuery(t TableRef) string {
	return fmt.Sprintf("SELECT * FROM `%s` ORDER BY seqNumber DESC LIMIT 1", t)
}

type bigQueryRepository struct {
	client  *bigquery.Client
	table   TableRef
	query   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewBigQueryRepository serves the sensit table from BigQuery. The client is
// long-lived and shared across requests.
func NewBigQueryRepository(client *bigquery.Client, table TableRef, timeout time.Duration, logger *slog.Logger) SensitRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &bigQueryRepository{
		client:  client,
		table:   table,
		query:   latestRecordQuery(table),
		timeout: timeoutOrDefault(timeout),
		logger:  logger,
	}
}

func (r *bigQueryRepository) FetchLatestRecord(ctx context.Context) (types.SensorRecord, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row, err := r.readLatestRow(ctx)
	var rec types.SensorRecord
	if err == nil {
		rec, err = recordFromRow(row)
	}
	if err != nil {
		qerr := newQueryError(ctx, backendBigQuery, "fetch latest record", err)
		metrics.ObserveQuery(backendBigQuery, "fetch_latest", outcome(qerr), start)
		r.logger.Error("warehouse query failed", "backend", backendBigQuery, "table", r.table.String(), "error", qerr)
		return types.SensorRecord{}, qerr
	}

	metrics.ObserveQuery(backendBigQuery, "fetch_latest", outcome(nil), start)
	r.logger.Debug("warehouse query result", "backend", backendBigQuery, "row", row)
	return rec, nil
}

func (r *bigQueryRepository) readLatestRow(ctx context.Context) (map[string]bigquery.Value, error) {
	q := r.client.Query(r.query)
	q.UseLegacySQL = false

	it, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}

	var row map[string]bigquery.Value
	err = it.Next(&row)
	if errors.Is(err, iterator.Done) {
		return nil, ErrNoRecords
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *bigQueryRepository) InsertRecord(ctx context.Context, rec types.SensorRecord) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	inserter := r.client.DatasetInProject(r.table.Project, r.table.Dataset).Table(r.table.Table).Inserter()
	err := inserter.Put(ctx, sensitRow{rec})
	if err != nil {
		qerr := newQueryError(ctx, backendBigQuery, "insert record", err)
		metrics.ObserveQuery(backendBigQuery, "insert", outcome(qerr), start)
		return qerr
	}
	metrics.ObserveQuery(backendBigQuery, "insert", outcome(nil), start)
	return nil
}

// sensitRow implements bigquery.ValueSaver. The insert ID makes streaming
// inserts of a redelivered callback idempotent.
type sensitRow struct {
	rec types.SensorRecord
}

func (s sensitRow) Save() (map[string]bigquery.Value, string, error) {
	row := map[string]bigquery.Value{
		"device":    s.rec.Device,
		"seqNumber": s.rec.SeqNumber,
	}
	if !s.rec.Time.IsZero() {
		row["time"] = s.rec.Time.Unix()
	}
	if s.rec.Temperature != nil {
		row["temperature"] = *s.rec.Temperature
	}
	if s.rec.Humidity != nil {
		row["humidity"] = *s.rec.Humidity
	}
	return row, s.rec.Device + "-" + strconv.FormatInt(s.rec.SeqNumber, 10), nil
}

func recordFromRow(row map[string]bigquery.Value) (types.SensorRecord, error) {
	var rec types.SensorRecord

	seq, ok, err := toInt64(row["seqNumber"])
	if err != nil {
		return types.SensorRecord{}, fmt.Errorf("column seqNumber: %w", err)
	}
	if !ok {
		return types.SensorRecord{}, errors.New("column seqNumber: missing or NULL")
	}
	rec.SeqNumber = seq

	if device, ok := row["device"].(string); ok {
		rec.Device = device
	}

	switch v := row["time"].(type) {
	case time.Time:
		rec.Time = v.UTC()
	case int64:
		rec.Time = time.Unix(v, 0).UTC()
	}

	if rec.Temperature, err = toFloat(row["temperature"]); err != nil {
		return types.SensorRecord{}, fmt.Errorf("column temperature: %w", err)
	}
	if rec.Humidity, err = toFloat(row["humidity"]); err != nil {
		return types.SensorRecord{}, fmt.Errorf("column humidity: %w", err)
	}
	return rec, nil
}

func toInt64(v bigquery.Value) (int64, bool, error) {
	switch n := v.(type) {
	case nil:
		return 0, false, nil
	case int64:
		return n, true, nil
	case float64:
		return int64(n), true, nil
	case *big.Rat:
		if n == nil {
			return 0, false, nil
		}
		if n.IsInt() && n.Num().IsInt64() {
			return n.Num().Int64(), true, nil
		}
		f, _ := n.Float64()
		return int64(f), true, nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false, err
		}
		return i, true, nil
	default:
		return 0, false, fmt.Errorf("unsupported type %T", v)
	}
}

func toFloat(v bigquery.Value) (*float64, error) {
	var f float64
	switch n := v.(type) {
	case nil:
		return nil, nil
	case float64:
		f = n
	case int64:
		f = float64(n)
	case *big.Rat:
		if n == nil {
			return nil, nil
		}
		f, _ = n.Float64()
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil, err
		}
		f = parsed
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
	return &f, nil
}
