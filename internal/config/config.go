// Package config provides centralized configuration management for sheetdedup.
// Settings come from built-in defaults, an optional YAML file and environment
// variables, in increasing order of precedence. Command-line flags are applied
// on top by the cli package. Everything is validated up front so a bad setting
// fails before any file is read.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Dedup    DedupConfig    `yaml:"dedup"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
	Upload   UploadConfig   `yaml:"upload"`
	Database DatabaseConfig `yaml:"database"`
}

// DedupConfig holds the grouping and keep-policy settings.
type DedupConfig struct {
	// Columns are the key column names (default: Date, Machine No.)
	Columns []string `yaml:"columns" env:"DEDUP_COLUMNS" default:"Date,Machine No."`

	// AllColumns uses every column of the input as the key (default: false)
	AllColumns bool `yaml:"all_columns" env:"DEDUP_ALL_COLUMNS" default:"false"`

	// Keep is the keep policy name: first, last or none (default: first)
	Keep string `yaml:"keep" env:"DEDUP_KEEP" default:"first"`

	// Sheet is the worksheet to read from workbooks; first sheet when empty
	Sheet string `yaml:"sheet" env:"DEDUP_SHEET"`
}

// OutputConfig holds result-writing settings.
type OutputConfig struct {
	// IncludeIndex prepends a 0..n-1 position column (default: false)
	IncludeIndex bool `yaml:"include_index" env:"OUTPUT_INCLUDE_INDEX" default:"false"`

	// Preview prints the head of the input and result tables (default: true)
	Preview bool `yaml:"preview" env:"OUTPUT_PREVIEW" default:"true"`

	// PreviewRows is the number of rows shown per preview (default: 5)
	PreviewRows int `yaml:"preview_rows" env:"OUTPUT_PREVIEW_ROWS" default:"5"`

	// Sheet is the worksheet name for workbook output (default: Sheet1)
	Sheet string `yaml:"sheet" env:"OUTPUT_SHEET" default:"Sheet1"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level" env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `yaml:"format" env:"LOG_FORMAT" default:"text"`

	// File is an optional log file written alongside stderr
	File string `yaml:"file" env:"LOG_FILE"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `yaml:"host" env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `yaml:"port" env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 30s)
	ReadTimeout time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing a response (default: 2m)
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 90s)
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" default:"90s"`

	// CORSOrigins lists allowed browser origins; CORS is off when empty
	CORSOrigins []string `yaml:"cors_origins" env:"SERVER_CORS_ORIGINS"`
}

// UploadConfig holds limits for files processed by the HTTP API.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed upload size in bytes (default: 100MB)
	MaxFileSize int64 `yaml:"max_file_size" env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the maximum number of files processed at once (default: 4)
	MaxConcurrent int `yaml:"max_concurrent" env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a request waits for a free slot (default: 30s)
	MaxWaitTime time.Duration `yaml:"max_wait_time" env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// DatabaseConfig holds the optional PostgreSQL sink settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `yaml:"url" env:"DATABASE_URL" envAlt:"DB_URL"`

	// Table receives deduplicated rows when set
	Table string `yaml:"table" env:"PG_TABLE"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `yaml:"max_conns" env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `yaml:"min_conns" env:"DB_MIN_CONNS" default:"0"`

	// ConnectTimeout bounds the initial connection (default: 10s)
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"DB_CONNECT_TIMEOUT" default:"10s"`
}

// Enabled reports whether rows should be written to the database.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != "" && c.Table != ""
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
