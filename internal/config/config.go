package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	WarehouseBigQuery = "bigquery"
	WarehouseSQLite   = "sqlite"

	DefaultWarehouseTable = "sigfoxgcpintegration.sigfox.sensit"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// WebhookPath is the route the fulfillment handler is mounted on.
	WebhookPath string
	// FulfillmentDebug enables request/response body logging in the webhook adapter.
	FulfillmentDebug bool
	// Basic auth is enabled when FulfillmentUsername is non-empty.
	FulfillmentUsername       string
	FulfillmentHashedPassword string

	WarehouseDriver       string
	WarehouseTable        string
	GoogleCloudProject    string
	WarehouseQueryTimeout time.Duration

	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration

	// MQTT ingestion is disabled when MQTTBroker is empty.
	MQTTBroker   string
	MQTTPort     int
	MQTTTopic    string
	MQTTClientID string
}

// LoadDotEnv loads variables from a .env file in the working directory.
// Variables already present in the environment are not overridden.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// LoadFromEnv reads and validates the configuration from the environment.
func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	webhookPath := strings.TrimSpace(os.Getenv("WEBHOOK_PATH"))
	if webhookPath == "" {
		webhookPath = "/"
	}
	if !strings.HasPrefix(webhookPath, "/") {
		return Config{}, fmt.Errorf("invalid WEBHOOK_PATH %q (must start with /)", webhookPath)
	}

	fulfillmentDebug, err := parseBool("FULFILLMENT_DEBUG", true)
	if err != nil {
		return Config{}, err
	}

	username := strings.TrimSpace(os.Getenv("FULFILLMENT_USERNAME"))
	hashedPassword := strings.TrimSpace(os.Getenv("FULFILLMENT_HASHED_PASSWORD"))
	if username != "" && hashedPassword == "" {
		return Config{}, errors.New("FULFILLMENT_HASHED_PASSWORD is required when FULFILLMENT_USERNAME is set")
	}

	warehouseDriver := strings.ToLower(strings.TrimSpace(os.Getenv("WAREHOUSE_DRIVER")))
	if warehouseDriver == "" {
		warehouseDriver = WarehouseBigQuery
	}
	switch warehouseDriver {
	case WarehouseBigQuery, WarehouseSQLite:
	default:
		return Config{}, fmt.Errorf("invalid WAREHOUSE_DRIVER %q (allowed: bigquery, sqlite)", warehouseDriver)
	}

	warehouseTable := strings.TrimSpace(os.Getenv("WAREHOUSE_TABLE"))
	if warehouseTable == "" {
		warehouseTable = DefaultWarehouseTable
	}

	project := strings.TrimSpace(os.Getenv("GOOGLE_CLOUD_PROJECT"))
	if project == "" {
		project = projectFromTable(warehouseTable)
	}
	if warehouseDriver == WarehouseBigQuery && project == "" {
		return Config{}, fmt.Errorf("GOOGLE_CLOUD_PROJECT is required when WAREHOUSE_TABLE %q has no project prefix", warehouseTable)
	}

	queryTimeout, err := parseDuration("WAREHOUSE_QUERY_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	if queryTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid WAREHOUSE_QUERY_TIMEOUT %s (must be > 0)", queryTimeout)
	}

	sqliteDSN := strings.TrimSpace(os.Getenv("DB_DSN"))
	sqlitePath := strings.TrimSpace(os.Getenv("SQLITE_PATH"))
	if sqlitePath == "" {
		sqlitePath = "dev/sqlite/sensit.db"
	}

	maxOpenConns, err := parseInt("DB_MAX_OPEN_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := parseInt("DB_MAX_IDLE_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := parseDuration("DB_CONN_MAX_LIFETIME", "0s")
	if err != nil {
		return Config{}, err
	}

	mqttBroker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	mqttPort, err := parseInt("MQTT_PORT", "1883")
	if err != nil {
		return Config{}, err
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (must be 1-65535)", mqttPort)
	}
	mqttTopic := strings.TrimSpace(os.Getenv("MQTT_TOPIC"))
	if mqttTopic == "" {
		mqttTopic = "sigfox/sensit"
	}
	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "sigfox-fulfillment"
	}

	return Config{
		AppEnv:                    appEnv,
		LogLevel:                  level,
		HTTPAddr:                  httpAddr,
		WebhookPath:               webhookPath,
		FulfillmentDebug:          fulfillmentDebug,
		FulfillmentUsername:       username,
		FulfillmentHashedPassword: hashedPassword,
		WarehouseDriver:           warehouseDriver,
		WarehouseTable:            warehouseTable,
		GoogleCloudProject:        project,
		WarehouseQueryTimeout:     queryTimeout,
		SQLiteDSN:                 sqliteDSN,
		SQLitePath:                sqlitePath,
		SQLiteMaxOpenConns:        maxOpenConns,
		SQLiteMaxIdleConns:        maxIdleConns,
		SQLiteConnMaxLifetime:     connMaxLifetime,
		MQTTBroker:                mqttBroker,
		MQTTPort:                  mqttPort,
		MQTTTopic:                 mqttTopic,
		MQTTClientID:              mqttClientID,
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

// projectFromTable returns the project part of a "project.dataset.table" reference.
func projectFromTable(table string) string {
	parts := strings.Split(strings.Trim(table, "`"), ".")
	if len(parts) != 3 {
		return ""
	}
	return parts[0]
}

func parseInt(key, def string) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		s = def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		s = def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}
