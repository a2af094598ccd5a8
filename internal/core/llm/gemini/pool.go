package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core/llm"
)

// Factory builds an extractor for one credential.
type Factory func(ctx context.Context, apiKey string) (llm.Extractor, error)

// Pool hands out one extractor per credential: the configured default, plus
// per-request overrides kept in an LRU. A client is closed only once it has
// left the pool and every lease on it has been released.
type Pool struct {
	mu         sync.Mutex
	defaultKey string
	factory    Factory
	def        *pooled
	clients    *lru.Cache[string, *pooled]
	logger     *slog.Logger
}

type pooled struct {
	id      string
	ex      llm.Extractor
	refs    int
	retired bool
}

// NewPool creates a pool holding up to size override clients.
func NewPool(defaultKey string, size int, factory Factory, logger *slog.Logger) (*Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if size <= 0 {
		size = 16
	}
	p := &Pool{
		defaultKey: strings.TrimSpace(defaultKey),
		factory:    factory,
		logger:     logger,
	}
	// Evictions run inside Add/Purge, which are only called with p.mu held.
	cache, err := lru.NewWithEvict[string, *pooled](size, func(_ string, e *pooled) {
		p.retireLocked(e)
	})
	if err != nil {
		return nil, fmt.Errorf("create client cache: %w", err)
	}
	p.clients = cache
	return p, nil
}

// NewClientPool is a Pool whose factory dials real Gemini clients from base.
func NewClientPool(base Config, size int, logger *slog.Logger) (*Pool, error) {
	factory := func(ctx context.Context, apiKey string) (llm.Extractor, error) {
		cfg := base
		cfg.APIKey = apiKey
		return NewClient(ctx, cfg, logger)
	}
	return NewPool(base.APIKey, size, factory, logger)
}

// For leases the extractor for apiKey; an empty key selects the default
// credential. The caller must invoke release once it no longer uses the
// extractor.
func (p *Pool) For(ctx context.Context, apiKey string) (llm.Extractor, func(), error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		key = p.defaultKey
	}
	if key == "" {
		return nil, nil, fmt.Errorf("no API key configured and none supplied")
	}
	id := keyID(key)

	p.mu.Lock()
	defer p.mu.Unlock()

	var e *pooled
	switch {
	case key == p.defaultKey && p.def != nil:
		e = p.def
	case key != p.defaultKey:
		e, _ = p.clients.Get(id)
	}
	if e == nil {
		ex, err := p.factory(ctx, key)
		if err != nil {
			return nil, nil, err
		}
		e = &pooled{id: id, ex: ex}
		if key == p.defaultKey {
			p.def = e
		} else {
			p.clients.Add(id, e)
		}
		p.logger.Info("gemini.pool.client_created", "key_id", id[:8], "default", key == p.defaultKey)
	}
	e.refs++

	var once sync.Once
	release := func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			e.refs--
			if e.retired && e.refs == 0 {
				p.closeLocked(e)
			}
		})
	}
	return e.ex, release, nil
}

// Close retires every client; clients still leased close on their last release.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients.Purge()
	if p.def != nil {
		p.retireLocked(p.def)
		p.def = nil
	}
}

func (p *Pool) retireLocked(e *pooled) {
	e.retired = true
	if e.refs == 0 {
		p.closeLocked(e)
	}
}

func (p *Pool) closeLocked(e *pooled) {
	cl, ok := e.ex.(interface{ Close() error })
	if !ok {
		return
	}
	if err := cl.Close(); err != nil {
		p.logger.Warn("gemini.pool.close_error", "key_id", e.id[:8], "error", err)
	}
}

func keyID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
