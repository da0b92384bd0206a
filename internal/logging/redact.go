// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package logging

import "strings"

// SanitizeToken masks a bearer token, keeping only the first and last 4 characters.
//
//	"eyJhbGciOiJIUzI1NiJ9.e30.abcd" -> "eyJh...abcd"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// sensitiveKeys are matched case-insensitively as substrings of a field name.
var sensitiveKeys = []string{"secret", "token", "password", "apikey", "api_key", "authorization"}

// SanitizeValue redacts value when key names a credential.
func SanitizeValue(key, value string) string {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			if strings.Contains(k, "token") {
				return SanitizeToken(value)
			}
			return "[REDACTED]"
		}
	}
	return value
}

// TruncateBody shortens a remote response body for inclusion in an error log.
func TruncateBody(body string, maxLen int) string {
	if len(body) <= maxLen {
		return body
	}
	return body[:maxLen] + "..."
}
