// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration. It is loaded once at startup
// by LoadWithKoanf and treated as immutable afterwards; each component receives
// the section it needs at construction.
type Config struct {
	Fudo       FudoConfig       `koanf:"fudo"`
	Fetch      FetchConfig      `koanf:"fetch"`
	Sync       SyncConfig       `koanf:"sync"`
	Database   DatabaseConfig   `koanf:"database"`
	State      StateConfig      `koanf:"state"`
	Secrets    SecretsConfig    `koanf:"secrets"`
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`

	// Branches are upserted into the branch registry at startup. Optional:
	// the registry table can also be maintained with "fudosync branches upsert".
	Branches []BranchConfig `koanf:"branches" validate:"dive"`
}

// FudoConfig describes the remote Fudo endpoints.
type FudoConfig struct {
	APIBaseURL        string        `koanf:"api_base_url" validate:"required,url"`
	AuthEndpoint      string        `koanf:"auth_endpoint" validate:"required,url"`
	APIVersion        string        `koanf:"api_version" validate:"required"`
	RequestTimeout    time.Duration `koanf:"request_timeout" validate:"gt=0"`
	AuthTimeout       time.Duration `koanf:"auth_timeout" validate:"gt=0"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gte=0"` // 0 = unlimited
}

// FetchConfig controls the paginated fetcher and its retry policy.
type FetchConfig struct {
	PageSize       int           `koanf:"page_size" validate:"min=1,max=500"`
	MaxAttempts    int           `koanf:"max_attempts" validate:"min=1,max=50"`
	InitialBackoff time.Duration `koanf:"initial_backoff" validate:"gt=0"`
	MaxBackoff     time.Duration `koanf:"max_backoff" validate:"gt=0"`
	InterPageDelay time.Duration `koanf:"inter_page_delay" validate:"gte=0"`
}

// SyncConfig controls the extraction driver.
type SyncConfig struct {
	Interval          time.Duration `koanf:"interval" validate:"gte=1m"`
	RecentWindowPages int           `koanf:"recent_window_pages" validate:"min=1"`
	InterBranchDelay  time.Duration `koanf:"inter_branch_delay" validate:"gte=0"`
	TokenGracePeriod  time.Duration `koanf:"token_grace_period" validate:"gte=0"`
	RunOnStartup      bool          `koanf:"run_on_startup"`

	// Entities restricts the run to these collections. Empty means every
	// collection in the catalog.
	Entities []string `koanf:"entities" validate:"dive,entityname"`

	// FilterableEntities promotes non-filterable collections to the
	// filterable-immutable class, keyed by entity with the filter field as value.
	FilterableEntities map[string]string `koanf:"filterable_entities" validate:"dive,keys,entityname,endkeys,required"`

	// PostRunSQL lists SQL files executed after every pass.
	PostRunSQL []string `koanf:"post_run_sql"`
}

// DatabaseConfig configures the DuckDB raw store.
type DatabaseConfig struct {
	Path            string `koanf:"path" validate:"required"`
	MaxMemory       string `koanf:"max_memory" validate:"bytesize"`
	Threads         int    `koanf:"threads" validate:"gte=0"` // 0 = runtime.NumCPU()
	InsertChunkSize int    `koanf:"insert_chunk_size" validate:"min=1,max=10000"`
}

// StateConfig selects where watermarks and cached tokens live.
type StateConfig struct {
	Backend    string `koanf:"backend" validate:"oneof=duckdb badger"`
	BadgerPath string `koanf:"badger_path"`
}

// SecretsConfig selects the secret-resolution backend.
type SecretsConfig struct {
	Backend     string `koanf:"backend" validate:"oneof=env aws"`
	EnvPrefix   string `koanf:"env_prefix"`
	AWSRegion   string `koanf:"aws_region"`
	AWSEndpoint string `koanf:"aws_endpoint" validate:"omitempty,url"`
}

// ServerConfig configures the status/health HTTP server used by "serve".
type ServerConfig struct {
	Enabled            bool          `koanf:"enabled"`
	Host               string        `koanf:"host"`
	Port               int           `koanf:"port" validate:"min=1,max=65535"`
	ShutdownTimeout    time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	RateLimitPerMinute int           `koanf:"rate_limit_per_minute" validate:"gte=0"` // 0 disables
	// CORSAllowedOrigins is empty by default, which denies cross-origin browsers.
	CORSAllowedOrigins []string      `koanf:"cors_allowed_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SupervisorConfig tunes the suture restart policy.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gt=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// BranchConfig seeds one row of the branch registry.
type BranchConfig struct {
	ID              string `koanf:"id" validate:"required"`
	FudoIdentifier  string `koanf:"fudo_identifier"`
	Name            string `koanf:"name"`
	APIKeySecret    string `koanf:"api_key_secret" validate:"required"`
	APISecretSecret string `koanf:"api_secret_secret" validate:"required"`
	Active          bool   `koanf:"active"`
}

// EntityURL returns the collection URL for entity.
func (f FudoConfig) EntityURL(entity string) string {
	return strings.TrimRight(f.APIBaseURL, "/") + "/" + strings.Trim(f.APIVersion, "/") + "/" + entity
}
