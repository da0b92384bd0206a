// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/fudosync/config.yaml",
	"/etc/fudosync/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. Defaults are loaded
// first, then overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Fudo: FudoConfig{
			APIBaseURL:        "https://api.fu.do",
			AuthEndpoint:      "https://auth.fu.do/api",
			APIVersion:        "v1alpha1",
			RequestTimeout:    30 * time.Second,
			AuthTimeout:       10 * time.Second,
			RequestsPerSecond: 0,
		},
		Fetch: FetchConfig{
			PageSize:       500,
			MaxAttempts:    10,
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     120 * time.Second,
			InterPageDelay: 500 * time.Millisecond,
		},
		Sync: SyncConfig{
			Interval:           time.Hour,
			RecentWindowPages:  5,
			InterBranchDelay:   time.Second,
			TokenGracePeriod:   10 * time.Minute,
			RunOnStartup:       true,
			Entities:           []string{},
			FilterableEntities: map[string]string{},
			PostRunSQL:         []string{},
		},
		Database: DatabaseConfig{
			Path:            "/data/fudosync.duckdb",
			MaxMemory:       "1GB",
			Threads:         0,
			InsertChunkSize: 1000,
		},
		State: StateConfig{
			Backend:    "duckdb",
			BadgerPath: "/data/state",
		},
		Secrets: SecretsConfig{
			Backend: "env",
		},
		Server: ServerConfig{
			Enabled:            true,
			Host:               "0.0.0.0",
			Port:               9464,
			ShutdownTimeout:    10 * time.Second,
			RateLimitPerMinute: 600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  30 * time.Second,
		},
		Branches: []BranchConfig{},
	}
}

// LoadWithKoanf loads configuration from three layers, later layers winning:
//  1. built-in defaults
//  2. optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. environment variables listed in envMappings
//
// The result is validated before it is returned.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}
	if err := processMapFields(k); err != nil {
		return nil, fmt.Errorf("failed to process map fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"sync.entities",
	"sync.post_run_sql",
	"server.cors_allowed_origins",
}

// mapConfigPaths are parsed from "key=value,key=value" env values.
var mapConfigPaths = []string{
	"sync.filterable_entities",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		if err := k.Set(path, splitList(strVal)); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

func processMapFields(k *koanf.Koanf) error {
	for _, path := range mapConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parsed := parseKeyValueList(strVal)
		// Delete first so the string value is not merged with the map.
		k.Delete(path)
		for key, val := range parsed {
			if err := k.Set(path+"."+key, val); err != nil {
				return fmt.Errorf("failed to set %s.%s: %w", path, key, err)
			}
		}
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseKeyValueList parses "sales=createdAt,expenses=date". Values may contain '='.
func parseKeyValueList(s string) map[string]string {
	result := make(map[string]string)
	for _, item := range strings.Split(s, ",") {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if key := strings.TrimSpace(parts[0]); key != "" {
			result[key] = strings.TrimSpace(parts[1])
		}
	}
	return result
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Variables not listed are ignored so unrelated environment does not leak in.
var envMappings = map[string]string{
	"fudo_api_base_url":        "fudo.api_base_url",
	"fudo_auth_endpoint":       "fudo.auth_endpoint",
	"fudo_api_version":         "fudo.api_version",
	"fudo_request_timeout":     "fudo.request_timeout",
	"fudo_auth_timeout":        "fudo.auth_timeout",
	"fudo_requests_per_second": "fudo.requests_per_second",

	"fetch_page_size":        "fetch.page_size",
	"fetch_max_attempts":     "fetch.max_attempts",
	"fetch_initial_backoff":  "fetch.initial_backoff",
	"fetch_max_backoff":      "fetch.max_backoff",
	"fetch_inter_page_delay": "fetch.inter_page_delay",

	"sync_interval":            "sync.interval",
	"sync_recent_window_pages": "sync.recent_window_pages",
	"sync_inter_branch_delay":  "sync.inter_branch_delay",
	"sync_token_grace_period":  "sync.token_grace_period",
	"sync_run_on_startup":      "sync.run_on_startup",
	"sync_entities":            "sync.entities",
	"sync_filterable_entities": "sync.filterable_entities",
	"sync_post_run_sql":        "sync.post_run_sql",

	"duckdb_path":              "database.path",
	"duckdb_max_memory":        "database.max_memory",
	"duckdb_threads":           "database.threads",
	"duckdb_insert_chunk_size": "database.insert_chunk_size",

	"state_backend":     "state.backend",
	"state_badger_path": "state.badger_path",

	"secrets_backend":      "secrets.backend",
	"secrets_env_prefix":   "secrets.env_prefix",
	"secrets_aws_region":   "secrets.aws_region",
	"secrets_aws_endpoint": "secrets.aws_endpoint",

	"http_enabled":               "server.enabled",
	"http_host":                  "server.host",
	"http_port":                  "server.port",
	"http_shutdown_timeout":      "server.shutdown_timeout",
	"http_rate_limit_per_minute": "server.rate_limit_per_minute",
	"http_cors_allowed_origins":  "server.cors_allowed_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc maps an environment variable name to a koanf path, or ""
// to skip it.
//
//	DUCKDB_PATH -> database.path
//	FETCH_PAGE_SIZE -> fetch.page_size
func envTransformFunc(key string) string {
	if path, ok := envMappings[strings.ToLower(key)]; ok {
		return path
	}
	return ""
}
