// Package model defines domain entities shared by the session, cache, and command layers.
package model

import "fmt"

// Role is the account role assigned at signup. Immutable for the lifetime
// of a session; the server is the source of truth, the client trusts the
// value embedded in the session.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RolePrimary   Role = "PRIMARY"
	RoleSecondary Role = "SECONDARY"
)

// ParseRole maps the wire representation to a Role, failing fast on
// anything outside the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RolePrimary, RoleSecondary:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Tier names one backend endpoint family.
type Tier string

const (
	TierAdmin     Tier = "admin"
	TierPrimary   Tier = "primary"
	TierSecondary Tier = "secondary"
)

// Identity is who the session belongs to.
type Identity struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Session is the authentication state of this client: an opaque bearer
// credential plus the identity the server issued it for.
type Session struct {
	AccessToken string   `json:"access_token"`
	Identity    Identity `json:"identity"`
}

// Anonymous reports whether the session carries no usable credential.
func (s Session) Anonymous() bool { return s.AccessToken == "" }

// Category is the closed set of item categories.
type Category string

const (
	CategoryBooks       Category = "Books"
	CategoryElectronics Category = "Electronics"
	CategoryClothing    Category = "Clothing"
	CategoryOthers      Category = "Others"
)

// Categories lists every valid category, in display order.
var Categories = []Category{CategoryBooks, CategoryElectronics, CategoryClothing, CategoryOthers}

// ValidCategory reports membership in the closed category set.
func ValidCategory(c Category) bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// CreatedBy records the author embedded in an item by the server.
type CreatedBy struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Item is a catalog record. ID and CreatedBy are server-assigned and
// immutable; edits replace the remaining fields wholesale.
type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Quantity    int       `json:"quantity"`
	Price       int64     `json:"price"` // integer cents
	Category    Category  `json:"category"`
	CreatedBy   CreatedBy `json:"createdBy"`
}

// ItemDraft is the client-side intent for a create or the mutable half of
// an edit. Validated before any request is sent.
type ItemDraft struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Quantity    int      `json:"quantity"`
	Price       int64    `json:"price"`
	Category    Category `json:"category"`
}

// Page is the pagination metadata accompanying a listing response.
type Page struct {
	PageNumber   int `json:"pageNumber"`
	ItemsPerPage int `json:"itemsPerPage"`
	TotalPages   int `json:"totalPages"`
}

// ClampPage forces a requested page number into [1, totalPages].
// totalPages <= 0 means unknown and clamps only the lower bound.
func ClampPage(n, totalPages int) int {
	if n < 1 {
		return 1
	}
	if totalPages > 0 && n > totalPages {
		return totalPages
	}
	return n
}

// Listing is one page of items as returned by a tier's list endpoint.
type Listing struct {
	Items      []Item `json:"data"`
	Pagination Page   `json:"pagination"`
}
