package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Full(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[resolve]
triples = ["x86_64-unknown-linux-gnu", " aarch64-linux-gnu ", ""]
jobs = 4

[catalog]
dir = "build/ukernels"

[trace]
level = "target"
mode = "both"
format = "ndjson"
output = "trace.ndjson"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Root != dir {
		t.Errorf("Root = %q, want %q", cfg.Root, dir)
	}
	if got := strings.Join(cfg.Resolve.Triples, ","); got != "x86_64-unknown-linux-gnu,aarch64-linux-gnu" {
		t.Errorf("Triples = %q", got)
	}
	if cfg.Resolve.Jobs != 4 {
		t.Errorf("Jobs = %d", cfg.Resolve.Jobs)
	}
	if want := filepath.Join(dir, "build", "ukernels"); cfg.CatalogDir() != want {
		t.Errorf("CatalogDir = %q, want %q", cfg.CatalogDir(), want)
	}
	targets, err := cfg.Targets()
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 2 || targets[1].ArchName() != "arm_64" {
		t.Errorf("Targets = %v", targets)
	}
	if cfg.Trace.Level != "target" || cfg.Trace.Mode != "both" {
		t.Errorf("Trace = %+v", cfg.Trace)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
		substr  string
	}{
		{"negative jobs", "[resolve]\njobs = -1\n", ErrInvalidJobs, ""},
		{"empty arch", "[resolve]\ntriples = [\"-linux\"]\n", ErrInvalidTriple, ""},
		{"trace level", "[trace]\nlevel = \"verbose\"\n", ErrInvalidTrace, ""},
		{"trace mode", "[trace]\nmode = \"file\"\n", ErrInvalidTrace, ""},
		{"unknown key", "[resolve]\ntriple = \"x86_64\"\n", nil, "unknown keys: resolve.triple"},
		{"bad toml", "[resolve\n", nil, "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if tt.substr != "" && !strings.Contains(err.Error(), tt.substr) {
				t.Fatalf("err = %v, want %q", err, tt.substr)
			}
		})
	}
}

func TestDiscover_WalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[resolve]\njobs = 2\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg, ok, err := Discover(nested)
	if err != nil || !ok {
		t.Fatalf("Discover: ok=%v err=%v", ok, err)
	}
	if cfg.Resolve.Jobs != 2 || cfg.Path != filepath.Join(root, FileName) {
		t.Errorf("got %+v", cfg)
	}
}

func TestDiscover_NoFile(t *testing.T) {
	cfg, ok, err := Discover(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		// a ukbc.toml above the temp dir would make this test meaningless
		t.Skip("found a ukbc.toml above the temp dir")
	}
	if cfg == nil || cfg.CatalogDir() != "" || len(cfg.Resolve.Triples) != 0 {
		t.Errorf("default config = %+v", cfg)
	}
}

func TestCatalogDir_Absolute(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "cat")
	cfg := &Config{Root: "/elsewhere", Catalog: CatalogConfig{Dir: abs}}
	if cfg.CatalogDir() != abs {
		t.Errorf("CatalogDir = %q", cfg.CatalogDir())
	}
}
