// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package config

import (
	"fmt"

	"github.com/tomtom215/fudosync/internal/validation"
)

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

var validLogLevels = map[string]bool{
	"trace":    true,
	"debug":    true,
	"info":     true,
	"warn":     true,
	"error":    true,
	"fatal":    true,
	"panic":    true,
	"disabled": true,
}

// Validate checks struct-level constraints first, then cross-field rules.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if err := c.validateFudo(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateState(); err != nil {
		return err
	}
	if err := c.validateBranches(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateFudo() error {
	if err := validateHTTPURL(c.Fudo.APIBaseURL, "FUDO_API_BASE_URL"); err != nil {
		return err
	}
	return validateEndpointURL(c.Fudo.AuthEndpoint, "FUDO_AUTH_ENDPOINT")
}

// validateFetch checks the backoff schedule is coherent.
func (c *Config) validateFetch() error {
	if c.Fetch.MaxBackoff < c.Fetch.InitialBackoff {
		return fmt.Errorf("FETCH_MAX_BACKOFF (%s) must not be lower than FETCH_INITIAL_BACKOFF (%s)",
			c.Fetch.MaxBackoff, c.Fetch.InitialBackoff)
	}
	return nil
}

func (c *Config) validateState() error {
	if c.State.Backend == "badger" && c.State.BadgerPath == "" {
		return fmt.Errorf("STATE_BADGER_PATH is required when STATE_BACKEND=badger")
	}
	return nil
}

// validateBranches rejects duplicate branch IDs in the seed list.
func (c *Config) validateBranches() error {
	seen := make(map[string]bool, len(c.Branches))
	for _, b := range c.Branches {
		if seen[b.ID] {
			return fmt.Errorf("branch %q is listed more than once", b.ID)
		}
		seen[b.ID] = true
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error, fatal, panic, disabled")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
