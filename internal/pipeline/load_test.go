package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/llir/llvm/ir"

	"ukernel/internal/bitcode"
	"ukernel/internal/catalog"
	"ukernel/internal/observ"
	"ukernel/internal/pipeline"
	"ukernel/internal/target"
	"ukernel/internal/trace"
	"ukernel/internal/ukernel"
)

const kernelIR = `define void @iree_uk_noop() #0 {
entry:
  ret void
}

attributes #0 = { nounwind "target-cpu"="generic" }
`

func entry(t *testing.T, name string) catalog.Entry {
	t.Helper()
	data, err := bitcode.Encode(&bitcode.Envelope{Name: name, IR: []byte(kernelIR)})
	if err != nil {
		t.Fatal(err)
	}
	return catalog.Entry{Name: name, Data: data, Size: len(data)}
}

func table(t *testing.T, entries ...catalog.Entry) *catalog.Table {
	t.Helper()
	tbl, err := catalog.NewTable(entries...)
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func targets(triples ...string) []target.Target {
	out := make([]target.Target, 0, len(triples))
	for _, tr := range triples {
		out = append(out, target.MustParse(tr))
	}
	return out
}

// recordingParser checks that no two concurrent parses share a context.
type recordingParser struct {
	mu       sync.Mutex
	contexts map[*bitcode.Context]int
}

func (p *recordingParser) Parse(data []byte, name string, ctx *bitcode.Context) (*ir.Module, error) {
	p.mu.Lock()
	if p.contexts == nil {
		p.contexts = make(map[*bitcode.Context]int)
	}
	p.contexts[ctx]++
	p.mu.Unlock()
	return bitcode.Parser{}.Parse(data, name, ctx)
}

func TestLoad_MultipleTargets(t *testing.T) {
	tbl := table(t,
		entry(t, ukernel.Base64Name),
		entry(t, ukernel.Base32Name),
		entry(t, "ukernel_bitcode_x86_64.bc"),
	)
	parser := &recordingParser{}
	timer := observ.NewTimer()
	req := &pipeline.Request{
		Targets: targets("x86_64-unknown-linux-gnu", "riscv64-unknown-elf", "i686-pc-windows-msvc", "aarch64-linux-gnu"),
		Catalog: tbl,
		Parser:  parser,
		Jobs:    2,
		Timer:   timer,
	}
	results, err := pipeline.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results", len(results))
	}

	want := []struct {
		triple string
		arch   ukernel.Outcome
		mods   int
	}{
		{"x86_64-unknown-linux-gnu", ukernel.OutcomeFound, 2},
		{"riscv64-unknown-elf", ukernel.OutcomeAbsent, 1},
		{"i686-pc-windows-msvc", ukernel.OutcomeAbsent, 1},
		{"aarch64-linux-gnu", ukernel.OutcomeAbsent, 1},
	}
	for i, w := range want {
		r := results[i]
		if r.Target.Triple != w.triple {
			t.Errorf("result %d is %s, want %s", i, r.Target.Triple, w.triple)
		}
		if !r.Resolved() || !r.Base.Found() {
			t.Errorf("%s: base %v", w.triple, r.Base.Outcome)
		}
		if r.Arch.Outcome != w.arch {
			t.Errorf("%s: arch %v, want %v", w.triple, r.Arch.Outcome, w.arch)
		}
		if got := len(r.Modules()); got != w.mods {
			t.Errorf("%s: %d modules, want %d", w.triple, got, w.mods)
		}
		if r.Context.Len() != w.mods {
			t.Errorf("%s: context owns %d modules", w.triple, r.Context.Len())
		}
	}
	if results[2].Base.Name != ukernel.Base32Name {
		t.Errorf("i686 resolved %s", results[2].Base.Name)
	}
	for ctx, n := range parser.contexts {
		if n > 2 {
			t.Errorf("context %p used for %d parses", ctx, n)
		}
	}
	if len(parser.contexts) != 4 {
		t.Errorf("expected one context per target, got %d", len(parser.contexts))
	}
	if got := len(timer.Report().Phases); got != 4 {
		t.Errorf("timer phases = %d, want 4", got)
	}
}

func TestLoad_BaseFailureStops(t *testing.T) {
	tbl := table(t, entry(t, ukernel.Base64Name))
	req := &pipeline.Request{
		Targets: targets("x86_64-unknown-linux-gnu", "armv7-none-eabi"),
		Catalog: tbl,
		Jobs:    1,
	}
	results, err := pipeline.Load(context.Background(), req)
	if err == nil {
		t.Fatal("expected missing 32-bit base to fail the load")
	}
	var te *pipeline.TargetError
	if !errors.As(err, &te) || te.Triple != "armv7-none-eabi" {
		t.Fatalf("unexpected error %v", err)
	}
	if ukernel.KindOf(err) != ukernel.ErrMissingArtifact {
		t.Fatalf("kind = %v", ukernel.KindOf(err))
	}
	if !results[0].Base.Found() {
		t.Error("earlier target result must be kept")
	}
	if results[1].Arch.Outcome != 0 {
		t.Error("arch must not be resolved after a base failure")
	}
}

func TestLoad_UnsupportedWidth(t *testing.T) {
	req := &pipeline.Request{
		Targets: targets("avr-atmel-none"),
		Catalog: table(t, entry(t, ukernel.Base64Name), entry(t, ukernel.Base32Name)),
	}
	_, err := pipeline.Load(context.Background(), req)
	if ukernel.KindOf(err) != ukernel.ErrUnsupportedTarget {
		t.Fatalf("err = %v", err)
	}
}

func TestLoad_UnknownArchFallsBackToBase(t *testing.T) {
	tbl := table(t, entry(t, ukernel.Base64Name), entry(t, ukernel.Base32Name))
	tests := []struct {
		triple string
		base   string
	}{
		{"powerpc64le-unknown-linux-gnu", ukernel.Base64Name},
		{"s390x-ibm-linux", ukernel.Base64Name},
		{"mips64el-unknown-linux-gnuabi64", ukernel.Base64Name},
		{"mipsel-unknown-linux-gnu", ukernel.Base32Name},
	}
	for _, tt := range tests {
		t.Run(tt.triple, func(t *testing.T) {
			results, err := pipeline.Load(context.Background(), &pipeline.Request{
				Targets: targets(tt.triple),
				Catalog: tbl,
			})
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			r := results[0]
			if !r.Base.Found() || r.Base.Name != tt.base {
				t.Fatalf("base %v %s, want found %s", r.Base.Outcome, r.Base.Name, tt.base)
			}
			if !r.Arch.Absent() || r.Arch.Name != "ukernel_bitcode_unknown.bc" {
				t.Fatalf("arch %v %q, want absent unknown", r.Arch.Outcome, r.Arch.Name)
			}
			if len(r.Modules()) != 1 {
				t.Errorf("%d modules, want 1", len(r.Modules()))
			}
		})
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := &pipeline.Request{
		Targets: targets("x86_64-unknown-linux-gnu"),
		Catalog: table(t, entry(t, ukernel.Base64Name)),
	}
	results, err := pipeline.Load(ctx, req)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if results[0].Resolved() {
		t.Fatal("canceled load must not resolve targets")
	}
}

func TestLoad_Traces(t *testing.T) {
	ring := trace.NewRingTracer(64, trace.LevelModule)
	ctx := trace.WithTracer(context.Background(), ring)
	req := &pipeline.Request{
		Targets: targets("x86_64-unknown-linux-gnu"),
		Catalog: table(t, entry(t, ukernel.Base64Name)),
	}
	if _, err := pipeline.Load(ctx, req); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, ev := range ring.Snapshot() {
		names = append(names, ev.Kind.String()+":"+ev.Name)
	}
	joined := strings.Join(names, " ")
	for _, want := range []string{
		"begin:load",
		"begin:target:x86_64-unknown-linux-gnu",
		"point:module:" + ukernel.Base64Name,
		"point:module:ukernel_bitcode_x86_64.bc",
		"end:load",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in %s", want, joined)
		}
	}
}

func TestLoad_Empty(t *testing.T) {
	if res, err := pipeline.Load(context.Background(), &pipeline.Request{}); err != nil || res != nil {
		t.Fatalf("empty load: %v %v", res, err)
	}
	if _, err := pipeline.Load(context.Background(), nil); err == nil {
		t.Fatal("nil request must fail")
	}
}
