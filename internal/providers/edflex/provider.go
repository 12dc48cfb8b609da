package edflex

import (
	"net/http"
	"sync"

	"go.uber.org/zap"

	"edflex-sync/internal/config"
	"edflex-sync/internal/httpx"
	"edflex-sync/internal/providers"
)

// Pool hands out one Client per credential set so tokens are reused across
// calls for the same scope.
type Pool struct {
	API    config.APIConfig
	Logger *zap.Logger
	HTTP   *http.Client

	mu      sync.Mutex
	clients map[config.TenantConfig]*Client
}

var _ providers.SourceFactory = (*Pool)(nil)

func NewPool(api config.APIConfig, logger *zap.Logger) *Pool {
	return &Pool{API: api, Logger: logger}
}

func (p *Pool) Source(tc config.TenantConfig) providers.CatalogSource {
	return p.Client(tc)
}

func (p *Pool) Client(tc config.TenantConfig) *Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clients == nil {
		p.clients = map[config.TenantConfig]*Client{}
	}
	if c, ok := p.clients[tc]; ok {
		return c
	}

	hc := p.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: p.API.Timeout}
	}
	c := New(tc,
		WithHTTPClient(hc),
		WithLogger(p.Logger),
		WithRetry(httpx.SingleAttempt(p.API.MaxAttempts)),
	)
	p.clients[tc] = c
	return c
}
