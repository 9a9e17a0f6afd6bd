// Package cache holds scoped query results and drops them by entity when a mutation
// lands. Keys carry the scope; invalidation spans every scope because organisation
// and tenant scopes can see the same rows.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"helpdesk-api/internal/tenant"
)

// Entities cached by the API
const (
	EntityTickets       = "tickets"
	EntityTicketDetail  = "ticket-detail"
	EntityHelpdeskStats = "helpdesk-stats"
	EntityProblems      = "problems"
	EntityAssets        = "assets"
	EntityAssignments   = "asset-assignments"
	EntityITAMStats     = "itam-stats"
	EntityTools         = "tools"
	EntityLicenses      = "licenses"
	EntityPayments      = "payments"
	EntityVendors       = "vendors"
	EntityDashboard     = "subscription-dashboard"
)

// Dependents lists the cached entities whose results embed another entity's data
var Dependents = map[string][]string{
	EntityTickets:     {EntityHelpdeskStats, EntityTicketDetail, EntityProblems},
	EntityProblems:    {EntityHelpdeskStats, EntityTicketDetail},
	EntityAssets:      {EntityAssignments, EntityITAMStats},
	EntityAssignments: {EntityAssets, EntityITAMStats},
	EntityTools:       {EntityVendors, EntityLicenses, EntityPayments, EntityDashboard},
	EntityLicenses:    {EntityDashboard},
	EntityPayments:    {EntityDashboard},
	EntityVendors:     {EntityTools, EntityDashboard},
}

// Expand returns entities plus everything that transitively depends on them
func Expand(entities ...string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(entities))
	queue := append([]string(nil), entities...)
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
		queue = append(queue, Dependents[e]...)
	}
	return out
}

// Key identifies one cached query result
type Key struct {
	Entity string
	Scope  tenant.Scope
	Params string
}

// String is the storage key
func (k Key) String() string {
	return k.Entity + "|" + k.Scope.String() + "|" + k.Params
}

// Store is a query cache backend. Get returns only fresh entries.
//
// Every entity has a generation that Invalidate advances. Set stores a value only
// while the entity is still at gen, so a load that raced a mutation is not cached.
type Store interface {
	Get(ctx context.Context, key Key) ([]byte, bool, error)
	Generation(ctx context.Context, entity string) (int64, error)
	Set(ctx context.Context, key Key, value []byte, gen int64) error
	Invalidate(ctx context.Context, entities ...string) error
}

// Lookup results reported to an Observer
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// Observer is told about every cache lookup
type Observer interface {
	CacheLookup(entity, result string)
}

type nopObserver struct{}

func (nopObserver) CacheLookup(string, string) {}

// Fetch returns the cached value for key, or calls load and caches its result.
// Backend failures degrade to calling load.
func Fetch[T any](ctx context.Context, s Store, obs Observer, key Key, load func(context.Context) (T, error)) (T, error) {
	if obs == nil {
		obs = nopObserver{}
	}
	if s == nil {
		return load(ctx)
	}

	data, ok, err := s.Get(ctx, key)
	switch {
	case err != nil:
		obs.CacheLookup(key.Entity, ResultError)
	case ok:
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			obs.CacheLookup(key.Entity, ResultHit)
			return v, nil
		}
		obs.CacheLookup(key.Entity, ResultError)
	default:
		obs.CacheLookup(key.Entity, ResultMiss)
	}

	// read before load so an invalidation during load is detected
	gen, genErr := s.Generation(ctx, key.Entity)

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if genErr != nil {
		obs.CacheLookup(key.Entity, ResultError)
		return v, nil
	}
	data, err = json.Marshal(v)
	if err != nil {
		return v, fmt.Errorf("encode cached %s: %w", key.Entity, err)
	}
	if err := s.Set(ctx, key, data, gen); err != nil {
		obs.CacheLookup(key.Entity, ResultError)
	}
	return v, nil
}
