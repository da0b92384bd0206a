// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package models

// Branch is one row of the branch registry (config_fudo_branches).
// The secret names are resolved through the configured secret provider;
// credentials themselves are never stored.
type Branch struct {
	ID              string `json:"id"`                        // id_sucursal
	FudoIdentifier  string `json:"fudo_identifier,omitempty"` // fudo_branch_identifier
	Name            string `json:"name,omitempty"`            // sucursal_name
	APIKeySecret    string `json:"api_key_secret"`
	APISecretSecret string `json:"api_secret_secret"`
	Active          bool   `json:"active"`
}

// DisplayName returns Name, or ID when the branch has no name.
func (b Branch) DisplayName() string {
	if b.Name != "" {
		return b.Name
	}
	return b.ID
}
