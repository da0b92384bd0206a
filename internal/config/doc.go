// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

// Package config loads and validates Fudosync configuration.
//
// Configuration is layered with Koanf v2: built-in defaults, then an optional
// YAML file, then environment variables. Only variables listed in envMappings
// are read.
//
//	cfg, err := config.LoadWithKoanf()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load configuration")
//	}
//
// Example config.yaml:
//
//	fudo:
//	  api_base_url: https://api.fu.do
//	  auth_endpoint: https://auth.fu.do/api
//	fetch:
//	  page_size: 500
//	  max_attempts: 10
//	sync:
//	  interval: 1h
//	  recent_window_pages: 5
//	  filterable_entities:
//	    expenses: date
//	secrets:
//	  backend: aws
//	  aws_region: us-east-1
//	branches:
//	  - id: "1"
//	    name: Centro
//	    api_key_secret: fudo-centro-api-key
//	    api_secret_secret: fudo-centro-api-secret
//	    active: true
//
// Durations accept Go syntax ("30s", "2m"). List values accept a YAML list or
// a comma-separated env value (SYNC_ENTITIES=sales,products). Map values accept
// "key=value" pairs (SYNC_FILTERABLE_ENTITIES=expenses=date).
package config
