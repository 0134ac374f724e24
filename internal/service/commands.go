// Package service contains the command handlers behind the screens:
// authentication plus create/update/delete over a tier's store. Every
// handler validates before touching the network and invalidates the
// affected listing key synchronously on success.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cuzradio/storectl/internal/authz"
	"github.com/cuzradio/storectl/internal/errs"
	"github.com/cuzradio/storectl/internal/model"
	"github.com/cuzradio/storectl/internal/session"
)

// API is the backend surface the commands need. *api.Client satisfies it.
type API interface {
	Login(ctx context.Context, email, password string) (model.Session, error)
	Signup(ctx context.Context, username, email string, role model.Role, password string) (model.Session, error)
	CreateItem(ctx context.Context, tier model.Tier, draft model.ItemDraft) (model.Item, error)
	UpdateItem(ctx context.Context, tier model.Tier, id int64, draft model.ItemDraft) (model.Item, error)
	DeleteItem(ctx context.Context, tier model.Tier, id int64) error
}

// Invalidator is the slice of the cache coordinator the commands use.
type Invalidator interface {
	Invalidate(tier model.Tier, page int)
}

// Commands wires the API client, cache coordinator, and session store.
type Commands struct {
	api      API
	cache    Invalidator
	sessions session.Store
	log      *zap.Logger
}

func NewCommands(api API, cache Invalidator, sessions session.Store, log *zap.Logger) *Commands {
	if log == nil {
		log = zap.NewNop()
	}
	return &Commands{api: api, cache: cache, sessions: sessions, log: log}
}

// Login authenticates and establishes the session atomically, replacing
// any previous one in full.
func (c *Commands) Login(ctx context.Context, email, password string) (model.Session, error) {
	if email == "" || password == "" {
		return model.Session{}, fmt.Errorf("%w: please enter both email and password", errs.ErrValidation)
	}
	s, err := c.api.Login(ctx, email, password)
	if err != nil {
		return model.Session{}, err
	}
	if err := c.sessions.Establish(s); err != nil {
		return model.Session{}, fmt.Errorf("%w: persist session: %v", errs.ErrUnexpected, err)
	}
	c.log.Info("logged in", zap.String("username", s.Identity.Username), zap.String("role", string(s.Identity.Role)))
	return s, nil
}

// Signup registers a new account. The confirmation mismatch is caught
// before any request is sent.
func (c *Commands) Signup(ctx context.Context, username, email, role, password, confirm string) (model.Session, error) {
	if username == "" || email == "" || password == "" {
		return model.Session{}, fmt.Errorf("%w: username, email and password are required", errs.ErrValidation)
	}
	if password != confirm {
		return model.Session{}, fmt.Errorf("%w: passwords do not match", errs.ErrValidation)
	}
	r, err := model.ParseRole(role)
	if err != nil {
		return model.Session{}, fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	s, err := c.api.Signup(ctx, username, email, r, password)
	if err != nil {
		return model.Session{}, err
	}
	if err := c.sessions.Establish(s); err != nil {
		return model.Session{}, fmt.Errorf("%w: persist session: %v", errs.ErrUnexpected, err)
	}
	c.log.Info("signed up", zap.String("username", s.Identity.Username), zap.String("role", string(s.Identity.Role)))
	return s, nil
}

// Logout clears the session. Idempotent.
func (c *Commands) Logout() error { return c.sessions.Clear() }

// Whoami reports the active identity, if any.
func (c *Commands) Whoami() (model.Identity, bool) {
	s, ok := c.sessions.Current()
	if !ok {
		return model.Identity{}, false
	}
	return s.Identity, true
}

// guardTier checks the session and the role-tier matrix before a mutation
// goes out. This is the client-side UX guard; the backend stays
// authoritative.
func (c *Commands) guardTier(tier model.Tier) error {
	s, ok := c.sessions.Current()
	if !ok {
		return errs.ErrUnauthenticated
	}
	if !authz.Allowed(s.Identity.Role, tier) {
		return fmt.Errorf("%w: role %s may not act on the %s tier", errs.ErrValidation, s.Identity.Role, tier)
	}
	return nil
}

// validateDraft enforces the field rules shared by create and update.
func validateDraft(d model.ItemDraft) error {
	if d.Name == "" {
		return fmt.Errorf("%w: name must not be empty", errs.ErrValidation)
	}
	if d.Description == "" {
		return fmt.Errorf("%w: description must not be empty", errs.ErrValidation)
	}
	if d.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", errs.ErrValidation)
	}
	if d.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", errs.ErrValidation)
	}
	if !model.ValidCategory(d.Category) {
		return fmt.Errorf("%w: unknown category %q", errs.ErrValidation, d.Category)
	}
	return nil
}

// sessionFailure clears the session when the server rejected the
// credential, so the next navigation lands on login.
func (c *Commands) sessionFailure(err error) error {
	if errors.Is(err, errs.ErrUnauthenticated) {
		_ = c.sessions.Clear()
	}
	return err
}

// Create posts a validated draft and invalidates the page currently being
// viewed for the tier. On failure the caller keeps the draft for
// correction and resubmission; single attempt, no client-side retry.
func (c *Commands) Create(ctx context.Context, tier model.Tier, draft model.ItemDraft, viewedPage int) (model.Item, error) {
	if err := c.guardTier(tier); err != nil {
		return model.Item{}, err
	}
	if err := validateDraft(draft); err != nil {
		return model.Item{}, err
	}
	item, err := c.api.CreateItem(ctx, tier, draft)
	if err != nil {
		return model.Item{}, c.sessionFailure(err)
	}
	c.cache.Invalidate(tier, viewedPage)
	c.log.Info("item created", zap.String("tier", string(tier)), zap.Int64("id", item.ID))
	return item, nil
}

// Update replaces the mutable fields of an existing item wholesale.
// Existence of the id is server-enforced; the client does not pre-check.
func (c *Commands) Update(ctx context.Context, tier model.Tier, id int64, draft model.ItemDraft, viewedPage int) (model.Item, error) {
	if err := c.guardTier(tier); err != nil {
		return model.Item{}, err
	}
	if id <= 0 {
		return model.Item{}, fmt.Errorf("%w: item id must be positive", errs.ErrValidation)
	}
	if err := validateDraft(draft); err != nil {
		return model.Item{}, err
	}
	item, err := c.api.UpdateItem(ctx, tier, id, draft)
	if err != nil {
		return model.Item{}, c.sessionFailure(err)
	}
	c.cache.Invalidate(tier, viewedPage)
	c.log.Info("item updated", zap.String("tier", string(tier)), zap.Int64("id", id))
	return item, nil
}

// Delete removes an item. A failed delete leaves the cache untouched.
func (c *Commands) Delete(ctx context.Context, tier model.Tier, id int64, viewedPage int) error {
	if err := c.guardTier(tier); err != nil {
		return err
	}
	if id <= 0 {
		return fmt.Errorf("%w: item id must be positive", errs.ErrValidation)
	}
	if err := c.api.DeleteItem(ctx, tier, id); err != nil {
		return c.sessionFailure(err)
	}
	c.cache.Invalidate(tier, viewedPage)
	c.log.Info("item deleted", zap.String("tier", string(tier)), zap.Int64("id", id))
	return nil
}
