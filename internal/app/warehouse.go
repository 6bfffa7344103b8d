package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/config"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/db"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/migrate"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/modules/sensit/repository"
)

// Warehouse owns the long-lived client behind the sensit repository.
type Warehouse struct {
	Repository repository.SensitRepository
	// DB is set for the sqlite backend only.
	DB *sql.DB

	close func() error
}

// OpenWarehouse connects to the backend selected by cfg.WarehouseDriver.
// The sqlite backend is migrated before use.
func OpenWarehouse(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Warehouse, error) {
	switch cfg.WarehouseDriver {
	case config.WarehouseBigQuery:
		return openBigQuery(ctx, cfg, logger)
	case config.WarehouseSQLite:
		return openSQLite(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported warehouse driver %q", cfg.WarehouseDriver)
	}
}

func openBigQuery(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Warehouse, error) {
	table, err := repository.ParseTableRef(cfg.WarehouseTable, cfg.GoogleCloudProject)
	if err != nil {
		return nil, err
	}

	client, err := bigquery.NewClient(ctx, cfg.GoogleCloudProject)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	logger.Info("bigquery warehouse ready", "project", cfg.GoogleCloudProject, "table", table.String())

	return &Warehouse{
		Repository: repository.NewBigQueryRepository(client, table, cfg.WarehouseQueryTimeout, logger),
		close:      client.Close,
	}, nil
}

func openSQLite(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Warehouse, error) {
	dbConn, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := migrate.Run(ctx, dbConn, logger); err != nil {
		_ = db.Close(dbConn)
		return nil, err
	}
	logger.Info("sqlite warehouse ready", "path", cfg.SQLitePath)

	return &Warehouse{
		Repository: repository.NewSQLiteRepository(dbConn, cfg.WarehouseQueryTimeout, logger),
		DB:         dbConn,
		close:      func() error { return db.Close(dbConn) },
	}, nil
}

func (w *Warehouse) Close() error {
	if w == nil || w.close == nil {
		return nil
	}
	return w.close()
}
