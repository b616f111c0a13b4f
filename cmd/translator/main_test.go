package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"study-translate/internal/config"
	"study-translate/internal/service"
	"study-translate/internal/storage"
)

func TestReadInput(t *testing.T) {
	got, err := readInput([]string{"Hello", "world"}, "", strings.NewReader("ignored"))
	if err != nil || got != "Hello world" {
		t.Fatalf("args: got %q, %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(path, []byte("# Notes\n\nText"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err = readInput(nil, path, strings.NewReader("ignored"))
	if err != nil || got != "# Notes\n\nText" {
		t.Fatalf("file: got %q, %v", got, err)
	}

	got, err = readInput(nil, "", strings.NewReader("from stdin"))
	if err != nil || got != "from stdin" {
		t.Fatalf("stdin: got %q, %v", got, err)
	}

	if _, err := readInput(nil, filepath.Join(t.TempDir(), "missing"), nil); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestOpenStore(t *testing.T) {
	s, err := openStore(config.CacheConfig{Backend: config.CacheMemory, Size: 5})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := s.(*storage.MemoryStore); !ok {
		t.Fatalf("expected MemoryStore, got %T", s)
	}

	s, err = openStore(config.CacheConfig{Backend: config.CacheNone})
	if err != nil {
		t.Fatalf("none: %v", err)
	}
	if _, ok := s.(storage.NopStore); !ok {
		t.Fatalf("expected NopStore, got %T", s)
	}

	s, err = openStore(config.CacheConfig{Backend: config.CacheSQLite, Path: filepath.Join(t.TempDir(), "c.db")})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	sq, ok := s.(*storage.SQLiteStorage)
	if !ok {
		t.Fatalf("expected SQLiteStorage, got %T", s)
	}
	sq.Close()
}

func TestResolveTarget(t *testing.T) {
	asked := 0
	ask := func() (string, error) {
		asked++
		return "ja", nil
	}

	if got, err := resolveTarget("fr", true, ask); err != nil || got != "fr" || asked != 0 {
		t.Fatalf("flag: got %q, %v, asked %d", got, err, asked)
	}
	if _, err := resolveTarget("", false, ask); err == nil || asked != 0 {
		t.Fatalf("non-interactive: expected error without prompting, got %v, asked %d", err, asked)
	}
	if got, err := resolveTarget("", true, ask); err != nil || got != "ja" || asked != 1 {
		t.Fatalf("interactive: got %q, %v, asked %d", got, err, asked)
	}
}

func TestPrintChecks(t *testing.T) {
	var out bytes.Buffer
	err := printChecks(&out, []service.CheckResult{
		{Name: "chat"},
		{Name: "deepl", Err: errors.New("DeepL returned status 403")},
	})
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Fatalf("expected a summary error, got %v", err)
	}
	for _, want := range []string{"chat", "ok", "deepl", "status 403"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := printChecks(&out, []service.CheckResult{{Name: "chat"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
