package internal

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wmo-im/codelists/internal/apperr"
	"github.com/wmo-im/codelists/internal/index"
	"github.com/wmo-im/codelists/internal/sse"
	"github.com/wmo-im/codelists/internal/storage"
)

// testConfig returns a config whose source, output and index live in a
// temporary directory seeded with a two-level taxonomy.
func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	for name, content := range map[string]string{
		"index.csv":       "Name,Description\nocean,Ocean topics\nair,Air quality\n",
		"ocean/index.csv": "Name,Description\nwaves,Wave height\n",
	} {
		p := filepath.Join(src, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := NewDefaultConfig()
	cfg.Source.Dir = src
	cfg.Source.RootName = "th"
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Output.Bundle = filepath.Join(dir, "th.csv")
	cfg.SQLite.Path = filepath.Join(dir, "index.db")
	return cfg
}

func testOptions(cfg *Config) []Option {
	return []Option{WithConfig(cfg), WithLogOutput(io.Discard)}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := RunCompile(context.Background(), false, WithLogOutput(io.Discard)); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestRunCompile(t *testing.T) {
	cfg := testConfig(t)
	if err := RunCompile(context.Background(), false, testOptions(cfg)...); err != nil {
		t.Fatalf("RunCompile: %v", err)
	}

	for _, p := range []string{"th.ttl", "th/ocean.ttl", "th/ocean/waves.ttl", "th/air.ttl"} {
		if _, err := os.Stat(filepath.Join(cfg.Output.Dir, p)); err != nil {
			t.Errorf("missing %s: %v", p, err)
		}
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.GetNode("th/ocean/waves"); err != nil {
		t.Errorf("index not refreshed: %v", err)
	}
}

func TestRunCompile_MissingSource(t *testing.T) {
	cfg := testConfig(t)
	if err := os.Remove(filepath.Join(cfg.Source.Dir, "ocean", "index.csv")); err != nil {
		t.Fatal(err)
	}
	err := RunCompile(context.Background(), false, testOptions(cfg)...)
	if !errors.Is(err, apperr.ErrMissingSource) {
		t.Fatalf("err = %v, want ErrMissingSource", err)
	}
}

func TestRunBundle(t *testing.T) {
	cfg := testConfig(t)
	if err := RunBundle(context.Background(), "", testOptions(cfg)...); err != nil {
		t.Fatalf("RunBundle: %v", err)
	}
	data, err := os.ReadFile(cfg.Output.Bundle)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != "Name\nair\nocean\nocean/waves\n" {
		t.Errorf("bundle = %q", got)
	}
}

func TestRunSync_DryRun(t *testing.T) {
	var gets, writes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gets.Add(1)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writes.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Registry.TestURL = srv.URL
	cfg.Registry.DryRun = true
	if err := RunCompile(context.Background(), false, testOptions(cfg)...); err != nil {
		t.Fatal(err)
	}
	if err := RunSync(context.Background(), "", testOptions(cfg)...); err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	if gets.Load() != 4 || writes.Load() != 0 {
		t.Errorf("gets = %d, writes = %d", gets.Load(), writes.Load())
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	summary, err := db.SyncSummary()
	if err != nil {
		t.Fatal(err)
	}
	if summary["new"] != 4 {
		t.Errorf("ledger summary = %v", summary)
	}
}

func TestRunSync_RejectsBeforeIO(t *testing.T) {
	cfg := testConfig(t)
	cfg.Registry.TestURL = "http://127.0.0.1:1"

	err := RunSync(context.Background(), "", testOptions(cfg)...)
	if !errors.Is(err, apperr.ErrInvalidConfig) || !strings.Contains(err.Error(), "registry") {
		t.Fatalf("missing credentials: err = %v", err)
	}

	cfg.Registry.DryRun = true
	err = RunSync(context.Background(), filepath.Join(t.TempDir(), "absent"), testOptions(cfg)...)
	if !errors.Is(err, apperr.ErrInvalidConfig) {
		t.Fatalf("missing directory: err = %v", err)
	}
	if _, statErr := os.Stat(cfg.SQLite.Path); !os.IsNotExist(statErr) {
		t.Error("index opened before validation")
	}
}

func TestRunSync_LoginFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Registry.TestURL = srv.URL
	cfg.Registry.User, cfg.Registry.Password = "octocat", "wrong"
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	err := RunSync(context.Background(), "", testOptions(cfg)...)
	if !errors.Is(err, apperr.ErrAuthFailed) {
		t.Fatalf("err = %v, want ErrAuthFailed", err)
	}
}

func TestPipeline_PublishesEvents(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewFS(cfg.Output.Dir)
	if err != nil {
		t.Fatal(err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	broker := sse.NewBroker(time.Millisecond)
	defer broker.Close()
	ch := broker.Subscribe()
	defer broker.Unsubscribe(ch)

	app, cleanup, err := newApplication(testOptions(cfg))
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	p := app.pipeline(store, db, broker)

	if err := p.Rebuild(context.Background(), "test"); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if !waitFor(ch, "event: compile.completed") {
		t.Error("compile.completed not published")
	}

	if err := os.Remove(filepath.Join(cfg.Source.Dir, "index.csv")); err != nil {
		t.Fatal(err)
	}
	if err := p.Rebuild(context.Background(), "test"); err == nil {
		t.Fatal("expected rebuild failure")
	}
	if !waitFor(ch, "event: compile.failed") {
		t.Error("compile.failed not published")
	}
	if _, err := store.Read("th/ocean.ttl"); err != nil {
		t.Errorf("failed rebuild removed previous output: %v", err)
	}
}

func waitFor(ch chan []byte, needle string) bool {
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return false
			}
			if strings.Contains(string(msg), needle) {
				return true
			}
		case <-timeout:
			return false
		}
	}
}
