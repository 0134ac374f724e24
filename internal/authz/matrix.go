// Package authz holds the role-tier authorization matrix: a pure mapping
// from role to reachable resource tiers and from (tier, operation) to the
// backend endpoint serving it. It performs no I/O; the backend remains the
// authoritative enforcement point.
package authz

import (
	"fmt"
	"net/http"

	"github.com/cuzradio/storectl/internal/model"
)

// Op is one of the four endpoint operations per tier.
type Op string

const (
	OpList   Op = "list"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Endpoint is the verb/path pair for one operation. Path is relative to
// the API base URL; update/delete paths expect the item id appended.
type Endpoint struct {
	Method string
	Path   string
}

// tiers is the fixed role → allowed tier set. ADMIN is a strict superset
// of the other two.
var tiers = map[model.Role][]model.Tier{
	model.RoleAdmin:     {model.TierAdmin, model.TierPrimary, model.TierSecondary},
	model.RolePrimary:   {model.TierPrimary},
	model.RoleSecondary: {model.TierSecondary},
}

// TiersFor returns the tiers reachable by role. An unrecognized role is a
// configuration error, never a silently empty (or full) set.
func TiersFor(role model.Role) ([]model.Tier, error) {
	ts, ok := tiers[role]
	if !ok {
		return nil, fmt.Errorf("authz: unknown role %q", role)
	}
	out := make([]model.Tier, len(ts))
	copy(out, ts)
	return out, nil
}

// Allowed reports whether role may act on tier.
func Allowed(role model.Role, tier model.Tier) bool {
	for _, t := range tiers[role] {
		if t == tier {
			return true
		}
	}
	return false
}

// EndpointFor resolves the endpoint for an operation on a tier's store.
// Listing appends ?page=N at call time; update/delete append /{id}.
func EndpointFor(tier model.Tier, op Op) (Endpoint, error) {
	switch tier {
	case model.TierAdmin, model.TierPrimary, model.TierSecondary:
	default:
		return Endpoint{}, fmt.Errorf("authz: unknown tier %q", tier)
	}
	base := "/" + string(tier) + "_store"
	switch op {
	case OpList:
		return Endpoint{Method: http.MethodGet, Path: base}, nil
	case OpCreate:
		return Endpoint{Method: http.MethodPost, Path: base}, nil
	case OpUpdate:
		return Endpoint{Method: http.MethodPut, Path: base}, nil
	case OpDelete:
		return Endpoint{Method: http.MethodDelete, Path: base}, nil
	}
	return Endpoint{}, fmt.Errorf("authz: unknown operation %q", op)
}
