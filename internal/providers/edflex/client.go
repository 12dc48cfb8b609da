package edflex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"edflex-sync/internal/config"
	"edflex-sync/internal/domain"
	"edflex-sync/internal/httpx"
)

const (
	TokenPath    = "/api/oauth/v2/token"
	CatalogsPath = "/api/selection/catalogs"
	CatalogPath  = "/api/selection/catalogs/%s"
	ResourcePath = "/api/resource/resources/%s"
)

// Client talks to the partner catalog API for one credential set. Read
// methods never return transport errors: they log and degrade to an empty
// value, so callers only see "no data".
type Client struct {
	BaseURL string
	Locale  string
	Scope   string
	HTTP    *http.Client
	Retry   httpx.RetryConfig
	Logger  *zap.Logger

	creds *clientcredentials.Config

	mu    sync.Mutex
	token *oauth2.Token
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.HTTP = h
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.Logger = l
		}
	}
}

func WithRetry(r httpx.RetryConfig) Option {
	return func(c *Client) { c.Retry = r }
}

func New(tc config.TenantConfig, opts ...Option) *Client {
	c := &Client{
		BaseURL: tc.BaseAPIURL,
		Locale:  tc.Locale,
		Scope:   tc.Scope,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
		Retry:  httpx.SingleAttempt(1),
		Logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.Logger = c.Logger.With(zap.String("tenant", tc.Scope))
	c.creds = &clientcredentials.Config{
		ClientID:     tc.ClientID,
		ClientSecret: tc.ClientSecret,
		TokenURL:     c.endpoint(TokenPath, false),
	}
	return c
}

// Name identifies the credential scope this client serves.
func (c *Client) Name() string { return c.Scope }

// ListCatalogs returns the catalogs visible to the credentials, or nil when
// the call fails.
func (c *Client) ListCatalogs(ctx context.Context) []domain.Catalog {
	body, err := c.get(ctx, CatalogsPath)
	if err != nil {
		c.Logger.Error("edflex: list catalogs failed", zap.Error(err))
		return nil
	}
	var payload []catalogPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.Logger.Error("edflex: decode catalogs failed", zap.Error(err))
		return nil
	}
	out := make([]domain.Catalog, 0, len(payload))
	for _, p := range payload {
		if p.ID == "" {
			continue
		}
		out = append(out, p.toDomain())
	}
	return out
}

// GetCatalog returns the catalog with its item list. On failure the result
// carries the requested id and no items.
func (c *Client) GetCatalog(ctx context.Context, id string) domain.CatalogDetail {
	empty := domain.CatalogDetail{ID: id}
	body, err := c.get(ctx, fmt.Sprintf(CatalogPath, url.PathEscape(id)))
	if err != nil {
		c.Logger.Error("edflex: get catalog failed", zap.String("catalog_id", id), zap.Error(err))
		return empty
	}
	var payload catalogDetailPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.Logger.Error("edflex: decode catalog failed", zap.String("catalog_id", id), zap.Error(err))
		return empty
	}
	out := payload.toDomain()
	if out.ID == "" {
		out.ID = id
	}
	return out
}

// GetResource returns the full detail of one resource, or nil on failure.
func (c *Client) GetResource(ctx context.Context, id string) *domain.ResourceDetail {
	body, err := c.get(ctx, fmt.Sprintf(ResourcePath, url.PathEscape(id)))
	if err != nil {
		c.Logger.Error("edflex: get resource failed", zap.String("resource_id", id), zap.Error(err))
		return nil
	}
	var payload resourcePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.Logger.Error("edflex: decode resource failed", zap.String("resource_id", id), zap.Error(err))
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		c.Logger.Error("edflex: resource is not an object", zap.String("resource_id", id))
		return nil
	}
	if payload.ID == "" {
		payload.ID = ID(id)
	}
	return payload.toDomain(raw)
}

// get performs an authenticated GET. A 401 answer renews the token and
// repeats the request once; a second 401 is returned like any other failure.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	body, err := c.getOnce(ctx, path)
	if err == nil || !httpx.IsStatus(err, http.StatusUnauthorized) {
		return body, err
	}
	c.Logger.Info("edflex: token rejected, renewing", zap.String("path", path))
	c.invalidate()
	return c.getOnce(ctx, path)
}

func (c *Client) getOnce(ctx context.Context, path string) ([]byte, error) {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	target := c.endpoint(path, true)
	_, body, err := httpx.DoWithRetry(ctx, c.HTTP, func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		r.Header.Set("Accept", "application/json")
		r.Header.Set("Content-Type", "application/json")
		tok.SetAuthHeader(r)
		return r, nil
	}, c.Retry)
	return body, err
}

func (c *Client) accessToken(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token.Valid() {
		return c.token, nil
	}
	tok, err := c.creds.Token(context.WithValue(ctx, oauth2.HTTPClient, c.HTTP))
	if err != nil {
		return nil, fmt.Errorf("edflex: fetch token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errors.New("edflex: token response without access_token")
	}
	c.token = tok
	return tok, nil
}

func (c *Client) invalidate() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}

// endpoint resolves an absolute API path against the base URL; any path on
// the base URL is replaced.
func (c *Client) endpoint(path string, withLocale bool) string {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return c.BaseURL + path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return c.BaseURL + path
	}
	u := base.ResolveReference(ref)
	if withLocale && c.Locale != "" {
		q := u.Query()
		q.Set("locale", c.Locale)
		u.RawQuery = q.Encode()
	}
	return u.String()
}
