// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package sync

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Canonicalize re-serializes a JSON document with object keys sorted at every
// level, no insignificant whitespace and HTML characters left unescaped.
// Numbers keep their original literal so 1.50 and 1.5 stay distinct.
func Canonicalize(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// map[string]interface{} keys are encoded in sorted order.
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode canonical payload: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Checksum returns the hex SHA-256 of canonical.
func Checksum(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// sourceUpdatedAt returns the first parseable timestamp among fields, looked
// up in the record's attributes object and then at the top level.
func sourceUpdatedAt(raw []byte, fields []string) *time.Time {
	if len(fields) == 0 {
		return nil
	}
	var doc struct {
		Attributes map[string]interface{} `json:"attributes"`
	}
	var top map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	_ = json.Unmarshal(raw, &top)

	for _, field := range fields {
		for _, src := range []map[string]interface{}{doc.Attributes, top} {
			s, ok := src[field].(string)
			if !ok || s == "" {
				continue
			}
			if ts, ok := parseTimestamp(s); ok {
				return &ts
			}
		}
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
