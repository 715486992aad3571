// Package config provides centralized configuration for featureprep.
//
// Values are layered: struct defaults, then the optional YAML pipeline file,
// then environment variables. The result is validated before any command
// touches the database or the input.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Splits    SplitsConfig    `mapstructure:"splits"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Required by commands that
	// touch the database; see RequireDatabase.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" mapstructure:"url"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10" mapstructure:"max_conns"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1" mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h" mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m" mapstructure:"max_conn_idle_time"`
}

// PipelineConfig holds the settings of one pipeline run.
type PipelineConfig struct {
	// Dataset selects the registered dataset and the rule set entry (default: orders)
	Dataset string `env:"PIPELINE_DATASET" default:"orders" mapstructure:"dataset"`

	// Source is the label stored with every raw event
	Source string `env:"PIPELINE_SOURCE" default:"orders_csv" mapstructure:"source"`

	// InputPath is the CSV file to ingest
	InputPath string `env:"PIPELINE_INPUT" mapstructure:"input_path"`

	RulesPath        string `env:"PIPELINE_RULES" default:"configs/expectations.yaml" mapstructure:"rules_path"`
	FeatureQueryPath string `env:"PIPELINE_FEATURE_QUERY" default:"sql/marts.sql" mapstructure:"feature_query_path"`
	EntityColumn     string `env:"PIPELINE_ENTITY_COLUMN" default:"customer_id" mapstructure:"entity_column"`
	TimeColumn       string `env:"PIPELINE_TIME_COLUMN" default:"feature_time" mapstructure:"time_column"`

	// FailOnError makes content violations abort the run (default: true)
	FailOnError bool `env:"PIPELINE_FAIL_ON_ERROR" default:"true" mapstructure:"fail_on_error"`

	// CodeSHA overrides the detected code revision
	CodeSHA string `env:"PIPELINE_CODE_SHA" mapstructure:"code_sha"`

	// FeatureVersion reuses an explicit version instead of minting one
	FeatureVersion string `env:"PIPELINE_FEATURE_VERSION" mapstructure:"feature_version"`

	MaxFileSize int64         `env:"PIPELINE_MAX_FILE_SIZE" default:"104857600" mapstructure:"max_file_size"`
	Timeout     time.Duration `env:"PIPELINE_TIMEOUT" default:"10m" mapstructure:"timeout"`
}

// SplitsConfig holds the temporal partition ratios.
type SplitsConfig struct {
	TrainRatio float64 `env:"SPLIT_TRAIN_RATIO" default:"0.7" mapstructure:"train_ratio"`
	ValRatio   float64 `env:"SPLIT_VAL_RATIO" default:"0.15" mapstructure:"val_ratio"`
}

// ArtifactsConfig holds output locations.
type ArtifactsConfig struct {
	ReportsDir string `env:"REPORTS_DIR" default:"artifacts/reports" mapstructure:"reports_dir"`
}

// ServerConfig holds HTTP server settings for the read-only API.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" default:"0.0.0.0" mapstructure:"host"`
	Port            int           `env:"SERVER_PORT" default:"8080" mapstructure:"port"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s" mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s" mapstructure:"request_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info" mapstructure:"level"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text" mapstructure:"format"`
}

// TelemetryConfig holds tracing and metrics export settings.
type TelemetryConfig struct {
	// TraceStdout writes one span per pipeline stage to stderr
	TraceStdout bool `env:"TRACE_STDOUT" default:"false" mapstructure:"trace_stdout"`

	// PushgatewayURL receives run metrics when set
	PushgatewayURL string `env:"PUSHGATEWAY_URL" mapstructure:"pushgateway_url"`

	JobName string `env:"METRICS_JOB" default:"featureprep" mapstructure:"job_name"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
