package internal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wmo-im/codelists/internal/index"
	"github.com/wmo-im/codelists/internal/models"
	"github.com/wmo-im/codelists/internal/source"
	"github.com/wmo-im/codelists/internal/sse"
	"github.com/wmo-im/codelists/internal/storage"
	"github.com/wmo-im/codelists/internal/walker"
)

// pipeline recompiles the source tree into the output store and refreshes
// the catalog index. Runs are serialized; watcher, API and MCP triggers may
// race.
type pipeline struct {
	sourceDir string
	opts      walker.Options
	store     storage.Provider
	db        *index.DB
	broker    *sse.Broker
	logger    *slog.Logger

	mu sync.Mutex
}

// Rebuild has the shape of an index.RebuildFunc.
func (p *pipeline) Rebuild(ctx context.Context, trigger string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	root, res, err := p.compile(ctx)
	if err != nil {
		p.logger.Error("compile failed",
			slog.String("trigger", trigger),
			slog.String("error", err.Error()))
		p.publish(sse.TypeCompileFailed, map[string]any{"trigger": trigger, "error": err.Error()})
		return err
	}

	if p.db != nil {
		var cb index.EventCallback
		if p.broker != nil {
			cb = p.broker.PublishNodeEvent
		}
		if err := index.Sync(p.db, root, p.store, p.logger, cb); err != nil {
			p.logger.Warn("index refresh failed", slog.String("error", err.Error()))
		}
	}

	p.logger.Info("rebuild finished",
		slog.String("trigger", trigger),
		slog.Int("documents", res.Documents))
	p.publish(sse.TypeCompileCompleted, map[string]any{"trigger": trigger, "documents": res.Documents})
	return nil
}

func (p *pipeline) compile(ctx context.Context) (*models.Node, walker.Result, error) {
	cat, err := source.Open(p.sourceDir)
	if err != nil {
		return nil, walker.Result{}, fmt.Errorf("open sources: %w", err)
	}
	return walker.Compile(ctx, cat, p.store, p.opts)
}

func (p *pipeline) publish(typ string, data any) {
	if p.broker == nil {
		return
	}
	p.broker.Publish(sse.Event{Type: typ, Data: data})
}
