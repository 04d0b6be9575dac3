package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ukernel/internal/config"
	"ukernel/internal/pipeline"
	"ukernel/internal/target"
)

const baseSource = `define void @iree_uk_copy() #0 {
entry:
  ret void
}

attributes #0 = { nounwind "target-cpu"="generic" "tune-cpu"="generic" }
`

const archSource = `define void @iree_uk_mmt4d_x86_64() "target-features"="+avx2" {
entry:
  ret void
}
`

func writeSources(t *testing.T, files map[string]string) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for name, src := range files {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(src), 0o600); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return paths
}

func TestCatalogName(t *testing.T) {
	tests := map[string]string{
		"src/ukernel_bitcode_x86_64.ll": "ukernel_bitcode_x86_64.bc",
		"ukernel_bitcode_64bit_base.ll": "ukernel_bitcode_64bit_base.bc",
		"noext":                         "noext.bc",
	}
	for in, want := range tests {
		if got := catalogName(in); got != want {
			t.Errorf("catalogName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPackThenResolve(t *testing.T) {
	sources := writeSources(t, map[string]string{
		"ukernel_bitcode_64bit_base.ll": baseSource,
		"ukernel_bitcode_x86_64.ll":     archSource,
	})
	out := filepath.Join(t.TempDir(), "catalog")
	written, err := packFiles(out, "x86_64-unknown-unknown-eabi-elf", true, sources)
	if err != nil {
		t.Fatalf("packFiles: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("wrote %v", written)
	}

	tbl, source, err := loadCatalog(out)
	if err != nil {
		t.Fatalf("loadCatalog: %v", err)
	}
	if source != out || tbl.Len() != 2 {
		t.Fatalf("catalog %s with %d entries", source, tbl.Len())
	}

	var listing bytes.Buffer
	if err := renderCatalog(&listing, tbl, false); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(listing.String(), "x86_64-unknown-unknown-eabi-elf"); got != 2 {
		t.Errorf("listing shows the triple %d times:\n%s", got, listing.String())
	}

	results, err := pipeline.Load(context.Background(), &pipeline.Request{
		Targets: []target.Target{target.MustParse("x86_64-pc-linux-gnu")},
		Catalog: tbl,
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !results[0].Base.Found() || !results[0].Arch.Found() {
		t.Fatalf("base %v, arch %v", results[0].Base.Outcome, results[0].Arch.Outcome)
	}

	var report bytes.Buffer
	printResults(&report, results, true)
	for _, want := range []string{"x86_64-pc-linux-gnu", "ukernel_bitcode_64bit_base.bc", "2 target attrs stripped", "@iree_uk_mmt4d_x86_64: target-features"} {
		if !strings.Contains(report.String(), want) {
			t.Errorf("report lacks %q:\n%s", want, report.String())
		}
	}

	emitDir := t.TempDir()
	paths, err := emitLLVM(emitDir, results)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("emitted %v", paths)
	}
	text, err := os.ReadFile(filepath.Join(emitDir, "x86_64-pc-linux-gnu", "ukernel_bitcode_64bit_base.ll"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(text), "target-cpu") || !strings.Contains(string(text), "@iree_uk_copy") {
		t.Errorf("unexpected emitted module:\n%s", text)
	}
}

func TestEmitLLVM_RejectsEscapingTriples(t *testing.T) {
	tbl, _, err := loadCatalog("")
	if err != nil {
		t.Fatal(err)
	}
	results, err := pipeline.Load(context.Background(), &pipeline.Request{
		Targets: []target.Target{target.MustParse("x86_64-pc-linux-gnu")},
		Catalog: tbl,
	})
	if err != nil || !results[0].Base.Found() {
		t.Fatalf("Load: %v", err)
	}
	root := t.TempDir()
	emitDir := filepath.Join(root, "out")
	for _, triple := range []string{"x86_64-../../tmp/x", "x86_64-..\\..\\x", "..", "."} {
		r := results[0]
		r.Target.Triple = triple
		paths, err := emitLLVM(emitDir, []pipeline.TargetResult{r})
		if err == nil || len(paths) != 0 {
			t.Errorf("%s: emitted %v, err %v", triple, paths, err)
		}
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("emit wrote outside its directory: %v", entries)
	}
}

func TestTripleDir(t *testing.T) {
	for _, ok := range []string{"x86_64-pc-linux-gnu", "wasm32", "x86_64..foo"} {
		if got, err := tripleDir(ok); err != nil || got != ok {
			t.Errorf("tripleDir(%q) = %q, %v", ok, got, err)
		}
	}
	for _, bad := range []string{"", ".", "..", "a/b", `a\b`, "c:x", "a\x00b"} {
		if _, err := tripleDir(bad); err == nil {
			t.Errorf("tripleDir(%q) must fail", bad)
		}
	}
}

func TestPackFiles_Errors(t *testing.T) {
	broken := writeSources(t, map[string]string{"broken.ll": "define void @f( {"})
	if _, err := packFiles(t.TempDir(), "", true, broken); err == nil {
		t.Error("invalid IR must be rejected when verifying")
	}
	if written, err := packFiles(t.TempDir(), "", false, broken); err != nil || len(written) != 1 {
		t.Errorf("--no-verify: %v %v", written, err)
	}

	a := writeSources(t, map[string]string{"k.ll": archSource})
	b := writeSources(t, map[string]string{"k.ll": archSource})
	if _, err := packFiles(t.TempDir(), "", true, append(a, b...)); err == nil || !strings.Contains(err.Error(), "both pack to k.bc") {
		t.Errorf("duplicate output name: %v", err)
	}
}

func TestLoadCatalog_Embedded(t *testing.T) {
	tbl, source, err := loadCatalog("")
	if err != nil {
		t.Fatal(err)
	}
	if source != embeddedCatalog || tbl.Len() == 0 {
		t.Fatalf("embedded catalog: %s, %d entries", source, tbl.Len())
	}
	if _, _, err := loadCatalog(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("missing catalog dir must fail")
	}
}

func TestResolveTargets(t *testing.T) {
	got, err := resolveTargets([]string{"riscv64-unknown-elf"}, &config.Config{
		Resolve: config.ResolveConfig{Triples: []string{"x86_64-linux-gnu"}},
	})
	if err != nil || len(got) != 1 || got[0].ArchName() != "riscv_64" {
		t.Fatalf("args must win: %v %v", got, err)
	}

	got, err = resolveTargets(nil, &config.Config{
		Resolve: config.ResolveConfig{Triples: []string{"x86_64-linux-gnu", "armv7-none-eabi"}},
	})
	if err != nil || len(got) != 2 || got[1].ArchName() != "arm_32" {
		t.Fatalf("config triples: %v %v", got, err)
	}

	got, err = resolveTargets(nil, &config.Config{})
	if err != nil || len(got) != 1 || got[0].Triple != target.Host().Triple {
		t.Fatalf("host fallback: %v %v", got, err)
	}

	if _, err := resolveTargets([]string{""}, nil); err == nil {
		t.Error("empty triple must fail")
	}
}

func TestRenderVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	info := versionInfo{Version: "1.2.3", Schema: 1}
	if err := renderVersionJSON(&buf, info, versionOptions{showHash: true}); err != nil {
		t.Fatal(err)
	}
	var payload versionPayload
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Tool != "ukbc" || payload.Version != "1.2.3" || payload.GitCommit != "unknown" || payload.BuildDate != "" {
		t.Errorf("payload = %+v", payload)
	}
}
