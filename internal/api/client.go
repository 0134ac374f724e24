// Package api is the HTTP client for the store backend. It attaches the
// session's bearer credential, tags every request with an X-Request-Id,
// and funnels every failure through one normalization point so the rest
// of the client sees only the errs taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/cuzradio/storectl/internal/authz"
	"github.com/cuzradio/storectl/internal/errs"
	"github.com/cuzradio/storectl/internal/model"
	"github.com/cuzradio/storectl/internal/session"
)

const (
	loginPath  = "/auth/login"
	signupPath = "/auth/signup"
)

// Client talks to the backend over REST. Zero-value is not usable; build
// with New.
type Client struct {
	base     string
	http     *http.Client
	sessions session.Store
	log      *zap.Logger
}

// New builds a client against baseURL. The session store supplies the
// bearer credential for protected calls; httpClient may be nil for
// http.DefaultClient (transport-level timeouts are the caller's concern).
func New(baseURL string, sessions session.Store, log *zap.Logger, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{base: baseURL, http: httpClient, sessions: sessions, log: log}
}

// authResponse is what /auth/login and /auth/signup return. Identity
// fields may be absent; then the token claims carry them.
type authResponse struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
	Role        string `json:"role"`
}

func (c *Client) sessionFrom(r authResponse) (model.Session, error) {
	if r.AccessToken == "" {
		return model.Session{}, fmt.Errorf("%w: auth response carries no access token", errs.ErrUnexpected)
	}
	if r.Username != "" && r.Role != "" {
		role, err := model.ParseRole(r.Role)
		if err != nil {
			return model.Session{}, fmt.Errorf("%w: %v", errs.ErrUnexpected, err)
		}
		return model.Session{AccessToken: r.AccessToken, Identity: model.Identity{Username: r.Username, Role: role}}, nil
	}
	id, err := session.IdentityFromToken(r.AccessToken)
	if err != nil {
		return model.Session{}, fmt.Errorf("%w: %v", errs.ErrUnexpected, err)
	}
	return model.Session{AccessToken: r.AccessToken, Identity: id}, nil
}

// Login exchanges credentials for a session. It does not establish the
// session; the command layer owns that side effect.
func (c *Client) Login(ctx context.Context, email, password string) (model.Session, error) {
	body := map[string]string{"email": email, "password": password}
	var out authResponse
	if err := c.do(ctx, http.MethodPost, loginPath, "", body, &out); err != nil {
		return model.Session{}, err
	}
	return c.sessionFrom(out)
}

// Signup registers an account with the chosen role and returns the session
// the server issued for it.
func (c *Client) Signup(ctx context.Context, username, email string, role model.Role, password string) (model.Session, error) {
	body := map[string]string{
		"username": username,
		"email":    email,
		"userRole": string(role),
		"password": password,
	}
	var out authResponse
	if err := c.do(ctx, http.MethodPost, signupPath, "", body, &out); err != nil {
		return model.Session{}, err
	}
	return c.sessionFrom(out)
}

// bearer returns the active credential or ErrUnauthenticated.
func (c *Client) bearer() (string, error) {
	s, ok := c.sessions.Current()
	if !ok {
		return "", errs.ErrUnauthenticated
	}
	return s.AccessToken, nil
}

// ListItems fetches one page of a tier's store.
func (c *Client) ListItems(ctx context.Context, tier model.Tier, page int) (model.Listing, error) {
	tok, err := c.bearer()
	if err != nil {
		return model.Listing{}, err
	}
	ep, err := authz.EndpointFor(tier, authz.OpList)
	if err != nil {
		return model.Listing{}, fmt.Errorf("%w: %v", errs.ErrUnexpected, err)
	}
	var out model.Listing
	path := ep.Path + "?page=" + strconv.Itoa(page)
	if err := c.do(ctx, ep.Method, path, tok, nil, &out); err != nil {
		return model.Listing{}, err
	}
	return out, nil
}

// CreateItem posts a validated draft to the tier's store.
func (c *Client) CreateItem(ctx context.Context, tier model.Tier, draft model.ItemDraft) (model.Item, error) {
	tok, err := c.bearer()
	if err != nil {
		return model.Item{}, err
	}
	ep, err := authz.EndpointFor(tier, authz.OpCreate)
	if err != nil {
		return model.Item{}, fmt.Errorf("%w: %v", errs.ErrUnexpected, err)
	}
	var out model.Item
	if err := c.do(ctx, ep.Method, ep.Path, tok, draft, &out); err != nil {
		return model.Item{}, err
	}
	return out, nil
}

// UpdateItem replaces the mutable fields of an existing item wholesale.
func (c *Client) UpdateItem(ctx context.Context, tier model.Tier, id int64, draft model.ItemDraft) (model.Item, error) {
	tok, err := c.bearer()
	if err != nil {
		return model.Item{}, err
	}
	ep, err := authz.EndpointFor(tier, authz.OpUpdate)
	if err != nil {
		return model.Item{}, fmt.Errorf("%w: %v", errs.ErrUnexpected, err)
	}
	var out model.Item
	path := ep.Path + "/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, ep.Method, path, tok, draft, &out); err != nil {
		return model.Item{}, err
	}
	return out, nil
}

// DeleteItem removes an item; the server answers 204 with no body.
func (c *Client) DeleteItem(ctx context.Context, tier model.Tier, id int64) error {
	tok, err := c.bearer()
	if err != nil {
		return err
	}
	ep, err := authz.EndpointFor(tier, authz.OpDelete)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrUnexpected, err)
	}
	path := ep.Path + "/" + strconv.FormatInt(id, 10)
	return c.do(ctx, ep.Method, path, tok, nil, nil)
}

// do performs one round-trip: marshal, send, log, normalize, decode.
// Single attempt, no retry; a failure is the caller's to surface.
func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("%w: encode request: %v", errs.ErrUnexpected, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, &buf)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrUnexpected, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	reqID := uuid.Must(uuid.NewV4()).String()
	req.Header.Set("X-Request-Id", reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("http",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("req_id", reqID),
			zap.Duration("dur", time.Since(start)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: No response received from the server", errs.ErrUnreachable)
	}
	defer resp.Body.Close()

	c.log.Info("http",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("req_id", reqID),
		zap.Duration("dur", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return normalizeStatus(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", errs.ErrUnexpected, err)
	}
	return nil
}
