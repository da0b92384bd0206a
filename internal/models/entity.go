// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package models

// EntityClass determines which sync strategy applies to a collection.
type EntityClass int

const (
	// NonFilterable collections have no server-side incremental filter and
	// are always fully reloaded.
	NonFilterable EntityClass = iota
	// FilterableImmutable collections support a creation-time filter and
	// never change after creation.
	FilterableImmutable
	// MutableAggregate collections support a creation-time filter but their
	// records change state after creation (sales get closed).
	MutableAggregate
)

// String returns the class name used in logs and status output.
func (c EntityClass) String() string {
	switch c {
	case NonFilterable:
		return "non_filterable"
	case FilterableImmutable:
		return "filterable_immutable"
	case MutableAggregate:
		return "mutable_aggregate"
	default:
		return "unknown"
	}
}

// EntitySpec describes one Fudo collection.
type EntitySpec struct {
	Name  string      `json:"name"`
	Class EntityClass `json:"class"`
	// FilterField is the attribute accepted by filter[<field>]=gte.<ts>.
	// Empty for NonFilterable entities.
	FilterField string `json:"filter_field,omitempty"`
	// UpdatedFields lists the attributes tried, in order, when deriving the
	// source-side last-updated timestamp.
	UpdatedFields []string `json:"updated_fields"`
}

// TableName returns the raw table for the entity: fudo_raw_<name>, with '-' as '_'.
func (e EntitySpec) TableName() string {
	b := []byte("fudo_raw_" + e.Name)
	for i := range b {
		if b[i] == '-' {
			b[i] = '_'
		}
	}
	return string(b)
}
