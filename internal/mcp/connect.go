package mcp

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
)

type toolLister interface {
	ListTools(ctx context.Context) ([]schema.ToolDescriptor, error)
}

// Catalog caches the remote tool list for all agent runs. The first ListTools
// call loads it; Refresh replaces it wholesale so concurrent readers always
// see a complete list.
type Catalog struct {
	source toolLister

	mu       sync.RWMutex
	tools    []schema.ToolDescriptor
	loadedAt time.Time
}

// NewCatalog returns an empty Catalog backed by source.
func NewCatalog(source toolLister) *Catalog {
	return &Catalog{source: source}
}

// ListTools returns the cached catalog, loading it on first use.
func (c *Catalog) ListTools(ctx context.Context) ([]schema.ToolDescriptor, error) {
	if tools, at := c.Snapshot(); !at.IsZero() {
		return tools, nil
	}
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	tools, _ := c.Snapshot()
	return tools, nil
}

// Refresh re-lists the remote tools. On failure the previous list is kept.
func (c *Catalog) Refresh(ctx context.Context) error {
	tools, err := c.source.ListTools(ctx)
	if err != nil {
		slog.Error("MCP catalog refresh failed", "err", err)
		return err
	}

	c.mu.Lock()
	c.tools = tools
	c.loadedAt = time.Now()
	c.mu.Unlock()

	slog.Info("MCP catalog loaded", "tools", len(tools))
	return nil
}

// Snapshot returns a copy of the cached tools and when they were loaded.
// A zero time means the catalog was never loaded.
func (c *Catalog) Snapshot() ([]schema.ToolDescriptor, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]schema.ToolDescriptor, len(c.tools))
	copy(out, c.tools)
	return out, c.loadedAt
}

var _ schema.ToolCatalog = (*Catalog)(nil)
