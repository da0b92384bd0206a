// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

// Package validation wraps go-playground/validator v10 with a process-wide
// singleton and readable error messages.
//
// Custom tags:
//
//	entityname  lower-case Fudo collection name ("sales", "payment-methods")
//	bytesize    DuckDB memory limit ("512MB", "1GB")
//
// Example:
//
//	type FetchConfig struct {
//	    PageSize int `validate:"min=1,max=500"`
//	}
//	if err := validation.ValidateStruct(&cfg); err != nil {
//	    return fmt.Errorf("invalid configuration: %w", err)
//	}
package validation
