package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (s *sample) Validate() error {
	if s.Count < 0 {
		return errors.New("count must not be negative")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "from-env")
	p := writeFile(t, "name: ${SAMPLE_NAME}\ncount: 2\n")

	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "from-env" || s.Count != 2 {
		t.Errorf("loaded = %+v", s)
	}
}

func TestLoad_KeepsDefaults(t *testing.T) {
	p := writeFile(t, "count: 5\n")
	s := sample{Name: "default"}
	if err := Load(p, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "default" {
		t.Errorf("name = %q, want default", s.Name)
	}
}

func TestLoad_ValidationFails(t *testing.T) {
	p := writeFile(t, "count: -1\n")
	var s sample
	err := Load(p, &s)
	if err == nil || !strings.Contains(err.Error(), "config validation failed") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var s sample
	err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &s)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLoadOptional(t *testing.T) {
	s := sample{Name: "default"}
	loaded, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &s)
	if err != nil || loaded {
		t.Fatalf("missing file: loaded=%v err=%v", loaded, err)
	}
	if s.Name != "default" {
		t.Errorf("name = %q", s.Name)
	}

	bad := sample{Count: -1}
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &bad); err == nil {
		t.Error("defaults are still validated")
	}

	loaded, err = LoadOptional(writeFile(t, "name: file\n"), &s)
	if err != nil || !loaded || s.Name != "file" {
		t.Fatalf("existing file: loaded=%v err=%v s=%+v", loaded, err, s)
	}
}
