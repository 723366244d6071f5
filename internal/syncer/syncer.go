package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wmo-im/codelists/internal/checksum"
	"github.com/wmo-im/codelists/internal/models"
	"github.com/wmo-im/codelists/internal/registry"
	"github.com/wmo-im/codelists/internal/storage"
)

// Registry is the subset of the registry client the syncer needs.
type Registry interface {
	Fetch(ctx context.Context, address string) ([]byte, bool, error)
	Create(ctx context.Context, parent string, payload []byte) error
	Update(ctx context.Context, address string, payload []byte) error
}

// Ledger records the outcome of every synchronized document.
type Ledger interface {
	RecordSync(ctx context.Context, entry models.SyncEntry) error
}

// Config configures a Syncer.
type Config struct {
	BaseURL string
	Prefix  string
	Workers int
	DryRun  bool
	Ledger  Ledger
	Logger  *slog.Logger
}

// Document is a generated document bound to its registry address.
type Document struct {
	Path    string
	Address string
	Data    []byte
}

// Report counts the documents of a run by classification. Failed counts
// writes the registry rejected, which are also counted under their
// classification, plus documents that could not be compared at all.
type Report struct {
	New     int `json:"new"`
	Changed int `json:"changed"`
	Equal   int `json:"equal"`
	Failed  int `json:"failed"`
}

// Total returns the number of classified documents.
func (r Report) Total() int { return r.New + r.Changed + r.Equal }

// Syncer pushes an output tree to the registry.
type Syncer struct {
	reg    Registry
	cfg    Config
	logger *slog.Logger
}

// NewSyncer creates a Syncer.
func NewSyncer(reg Registry, cfg Config) *Syncer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Syncer{reg: reg, cfg: cfg, logger: logger}
}

// Bind resolves the registry address of a document path.
func (s *Syncer) Bind(path string, data []byte) Document {
	return Document{Path: path, Address: registry.Address(s.cfg.BaseURL, s.cfg.Prefix, path), Data: data}
}

// Check fetches the registry entry of doc and classifies it.
func (s *Syncer) Check(ctx context.Context, doc Document) (Classification, []string, error) {
	remote, found, err := s.reg.Fetch(ctx, doc.Address)
	if err != nil {
		return Equal, nil, err
	}
	return Classify(remote, found, doc.Data, registry.ResolveBase(doc.Address))
}

// Sync applies a classification: New creates the entry under its parent,
// Changed replaces it, Equal does nothing.
func (s *Syncer) Sync(ctx context.Context, doc Document, c Classification) error {
	switch c {
	case New:
		s.logger.Info("syncer: new entry, creating", slog.String("address", doc.Address))
		return s.reg.Create(ctx, registry.Parent(doc.Address), doc.Data)
	case Changed:
		s.logger.Info("syncer: changed entry, updating", slog.String("address", doc.Address))
		return s.reg.Update(ctx, doc.Address, doc.Data)
	default:
		s.logger.Debug("syncer: entry unchanged", slog.String("address", doc.Address))
		return nil
	}
}

// Run synchronizes every document of store. Documents are processed one
// directory depth at a time so parents exist before their members are
// posted. A failed create or update is logged and counted; a failed
// existence check aborts the run.
func (s *Syncer) Run(ctx context.Context, store storage.Provider) (Report, error) {
	docs, err := store.List("")
	if err != nil {
		return Report{}, fmt.Errorf("syncer: list documents: %w", err)
	}

	var (
		mu     sync.Mutex
		report Report
	)
	for _, layer := range layers(docs) {
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.Workers)
		for _, meta := range layer {
			g.Go(func() error {
				c, err := s.one(gCtx, store, meta)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case errors.Is(err, errUnclassified):
					report.Failed++
					return nil
				case errors.Is(err, errWrite):
					report.Failed++
				case err != nil:
					return err
				}
				switch c {
				case New:
					report.New++
				case Changed:
					report.Changed++
				default:
					report.Equal++
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return report, err
		}
	}

	s.logger.Info("syncer: run completed",
		slog.Int("new", report.New),
		slog.Int("changed", report.Changed),
		slog.Int("equal", report.Equal),
		slog.Int("failed", report.Failed),
		slog.Bool("dry_run", s.cfg.DryRun))
	return report, nil
}

var (
	errWrite        = errors.New("registry write failed")
	errUnclassified = errors.New("document not comparable")
)

func (s *Syncer) one(ctx context.Context, store storage.Provider, meta models.DocumentMetadata) (Classification, error) {
	data, err := store.Read(meta.Path)
	if err != nil {
		return Equal, err
	}
	doc := s.Bind(meta.Path, data)
	entry := models.SyncEntry{
		Path:     doc.Path,
		Address:  doc.Address,
		Checksum: checksum.Sum(data),
		DryRun:   s.cfg.DryRun,
	}

	remote, found, err := s.reg.Fetch(ctx, doc.Address)
	if err != nil {
		s.logger.Error("syncer: existence check failed",
			slog.String("address", doc.Address), slog.String("error", err.Error()))
		return Equal, fmt.Errorf("syncer: check %s: %w", doc.Path, err)
	}

	c, missing, err := Classify(remote, found, doc.Data, registry.ResolveBase(doc.Address))
	if err != nil {
		s.logger.Error("syncer: cannot compare document",
			slog.String("address", doc.Address), slog.String("error", err.Error()))
		entry.Error = err.Error()
		s.record(ctx, entry)
		return c, fmt.Errorf("%w: %s: %v", errUnclassified, doc.Path, err)
	}
	entry.Classification = c.String()
	entry.Missing = len(missing)
	for _, st := range missing {
		s.logger.Debug("syncer: statement missing remotely",
			slog.String("address", doc.Address), slog.String("statement", st))
	}

	if werr := s.Sync(ctx, doc, c); werr != nil {
		s.logger.Error("syncer: write failed",
			slog.String("address", doc.Address),
			slog.String("classification", c.String()),
			slog.String("error", werr.Error()))
		entry.Error = werr.Error()
		err = fmt.Errorf("%w: %s: %v", errWrite, doc.Path, werr)
	}
	s.record(ctx, entry)
	return c, err
}

func (s *Syncer) record(ctx context.Context, entry models.SyncEntry) {
	if s.cfg.Ledger == nil {
		return
	}
	entry.SyncedAt = time.Now().UTC()
	if err := s.cfg.Ledger.RecordSync(ctx, entry); err != nil {
		s.logger.Warn("syncer: ledger write failed",
			slog.String("path", entry.Path), slog.String("error", err.Error()))
	}
}

// layers groups documents by directory depth, shallowest first.
func layers(docs []models.DocumentMetadata) [][]models.DocumentMetadata {
	byDepth := map[int][]models.DocumentMetadata{}
	for _, d := range docs {
		depth := strings.Count(d.Path, "/")
		byDepth[depth] = append(byDepth[depth], d)
	}
	depths := make([]int, 0, len(byDepth))
	for d := range byDepth {
		depths = append(depths, d)
	}
	sort.Ints(depths)
	out := make([][]models.DocumentMetadata, 0, len(depths))
	for _, d := range depths {
		out = append(out, byDepth[d])
	}
	return out
}
