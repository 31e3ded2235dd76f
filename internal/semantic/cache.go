package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// CachedSource serves the last loaded snapshot and reloads it once it is older
// than the refresh interval. A failed reload keeps serving the previous snapshot.
type CachedSource struct {
	source   Source
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	schema   *Schema
	loadedAt time.Time
}

func NewCachedSource(source Source, interval time.Duration, logger *slog.Logger) *CachedSource {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CachedSource{
		source:   source,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

func (c *CachedSource) Load(ctx context.Context) (*Schema, error) {
	c.mu.RLock()
	schema, loadedAt := c.schema, c.loadedAt
	c.mu.RUnlock()
	if schema != nil && (c.interval <= 0 || c.now().Sub(loadedAt) < c.interval) {
		return schema, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.schema != nil && c.schema != schema {
		return c.schema, nil
	}

	fresh, err := c.source.Load(ctx)
	if err != nil {
		if c.schema != nil {
			c.logger.WarnContext(ctx, "semantic schema reload failed; serving previous snapshot", slog.Any("error", err))
			c.loadedAt = c.now()
			return c.schema, nil
		}
		return nil, fmt.Errorf("load semantic schema: %w", err)
	}
	c.schema = fresh
	c.loadedAt = c.now()
	return fresh, nil
}
