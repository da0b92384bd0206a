// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package sync

import (
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/fudosync/internal/models"
)

// Strategy names how one entity cycle fetches its data.
type Strategy int

const (
	// FullReload is one unbounded, unfiltered fetch.
	FullReload Strategy = iota
	// Incremental is one unbounded fetch filtered by the watermark.
	Incremental
	// Hybrid is a bounded recent-window fetch plus an incremental fetch,
	// with the incremental batch winning on identity collisions.
	Hybrid
)

func (s Strategy) String() string {
	switch s {
	case FullReload:
		return "full_reload"
	case Incremental:
		return "incremental"
	case Hybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// Plan is the resolved set of fetches for one entity cycle. When both are
// set, Fresh wins over Base during reconciliation.
type Plan struct {
	Strategy Strategy
	Base     *FetchRequest
	Fresh    *FetchRequest
}

// Requests returns the non-nil requests in execution order.
func (p Plan) Requests() []FetchRequest {
	var out []FetchRequest
	if p.Base != nil {
		out = append(out, *p.Base)
	}
	if p.Fresh != nil {
		out = append(out, *p.Fresh)
	}
	return out
}

// SelectPlan chooses the fetches for spec given its watermark. hasWatermark
// false means the pair was never synchronized.
func SelectPlan(spec models.EntitySpec, watermark time.Time, hasWatermark bool, recentWindowPages int) Plan {
	full := &FetchRequest{Entity: spec.Name}
	if !hasWatermark || spec.FilterField == "" {
		return Plan{Strategy: FullReload, Base: full}
	}

	filtered := &FetchRequest{
		Entity: spec.Name,
		Filter: &Filter{Field: spec.FilterField, Since: watermark},
	}

	switch spec.Class {
	case models.MutableAggregate:
		// The window must cover the newest pages, where records created
		// before the watermark still change state.
		window := &FetchRequest{Entity: spec.Name, MaxPages: recentWindowPages, Sort: "-" + spec.FilterField}
		return Plan{Strategy: Hybrid, Base: window, Fresh: filtered}
	case models.FilterableImmutable:
		return Plan{Strategy: Incremental, Fresh: filtered}
	default:
		return Plan{Strategy: FullReload, Base: full}
	}
}

// Catalog is the immutable set of known collections, resolved once at startup.
type Catalog struct {
	specs map[string]models.EntitySpec
	order []string
}

var nonFilterableEntities = []string{
	"customers",
	"discounts",
	"expenses",
	"expense-categories",
	"ingredients",
	"items",
	"kitchens",
	"payments",
	"payment-methods",
	"product-categories",
	"product-modifiers",
	"products",
	"roles",
	"rooms",
	"tables",
	"users",
}

// DefaultCatalog returns the Fudo collections known to the engine.
func DefaultCatalog() *Catalog {
	specs := []models.EntitySpec{{
		Name:          "sales",
		Class:         models.MutableAggregate,
		FilterField:   "createdAt",
		UpdatedFields: []string{"closedAt", "createdAt"},
	}}
	for _, name := range nonFilterableEntities {
		specs = append(specs, models.EntitySpec{
			Name:          name,
			Class:         models.NonFilterable,
			UpdatedFields: []string{"createdAt"},
		})
	}
	return newCatalog(specs)
}

func newCatalog(specs []models.EntitySpec) *Catalog {
	c := &Catalog{specs: make(map[string]models.EntitySpec, len(specs))}
	for _, s := range specs {
		c.specs[s.Name] = s
		c.order = append(c.order, s.Name)
	}
	return c
}

// WithFilterable returns a copy of c where each named non-filterable entity is
// promoted to filterable-immutable with the given filter field.
func (c *Catalog) WithFilterable(overrides map[string]string) (*Catalog, error) {
	specs := c.All()
	for name, field := range overrides {
		found := false
		for i := range specs {
			if specs[i].Name != name {
				continue
			}
			found = true
			if specs[i].Class == models.NonFilterable {
				specs[i].Class = models.FilterableImmutable
			}
			specs[i].FilterField = field
		}
		if !found {
			return nil, fmt.Errorf("unknown entity %q in filterable_entities", name)
		}
	}
	return newCatalog(specs), nil
}

// Select returns the specs for names, in catalog order. Empty names selects
// every entity.
func (c *Catalog) Select(names []string) ([]models.EntitySpec, error) {
	if len(names) == 0 {
		return c.All(), nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := c.specs[n]; !ok {
			return nil, fmt.Errorf("unknown entity %q", n)
		}
		want[n] = true
	}
	out := make([]models.EntitySpec, 0, len(want))
	for _, n := range c.order {
		if want[n] {
			out = append(out, c.specs[n])
		}
	}
	return out, nil
}

// Get returns the spec for name.
func (c *Catalog) Get(name string) (models.EntitySpec, bool) {
	s, ok := c.specs[name]
	return s, ok
}

// All returns every spec in catalog order.
func (c *Catalog) All() []models.EntitySpec {
	out := make([]models.EntitySpec, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, c.specs[n])
	}
	return out
}

// Names returns the sorted entity names.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.order))
	names = append(names, c.order...)
	sort.Strings(names)
	return names
}
