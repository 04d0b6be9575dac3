// Package pipeline loads the micro-kernel modules for a set of compilation
// targets, resolving targets in parallel.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/llir/llvm/ir"
	"golang.org/x/sync/errgroup"

	"ukernel/internal/bitcode"
	"ukernel/internal/catalog"
	"ukernel/internal/observ"
	"ukernel/internal/target"
	"ukernel/internal/trace"
	"ukernel/internal/ukernel"
)

// Request configures a Load.
type Request struct {
	Targets []target.Target
	Catalog catalog.Provider
	Parser  ukernel.Parser // nil means bitcode.Parser
	Jobs    int            // <= 0 means GOMAXPROCS
	Timer   *observ.Timer  // optional
}

// TargetResult holds everything resolved for one target.
type TargetResult struct {
	Target   target.Target
	Context  *bitcode.Context // owns Base.Module and Arch.Module
	Base     ukernel.Result
	Arch     ukernel.Result
	Duration time.Duration
}

// Resolved reports whether the target was processed at all; targets skipped
// after another target failed have zero results.
func (r TargetResult) Resolved() bool {
	return r.Base.Outcome != 0
}

// Modules returns the modules to link for the target: the base module first,
// then the arch module when one exists.
func (r TargetResult) Modules() []*ir.Module {
	var mods []*ir.Module
	if r.Base.Found() {
		mods = append(mods, r.Base.Module)
	}
	if r.Arch.Found() {
		mods = append(mods, r.Arch.Module)
	}
	return mods
}

// TargetError wraps the failure of one target.
type TargetError struct {
	Triple string
	Err    error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("%s: %v", e.Triple, e.Err)
}

func (e *TargetError) Unwrap() error { return e.Err }

// Load resolves base and arch modules for every requested target. Results
// are returned in request order. A Failed base or arch result stops the
// load and is returned as a *TargetError; an Absent arch module is not an
// error. Results gathered before the failure are still returned.
func Load(ctx context.Context, req *Request) ([]TargetResult, error) {
	if req == nil {
		return nil, fmt.Errorf("missing load request")
	}
	if len(req.Targets) == 0 {
		return nil, nil
	}

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "load", trace.ParentSpan(ctx))
	defer span.End(strconv.Itoa(len(req.Targets)) + " targets")

	resolver := &ukernel.Resolver{Catalog: req.Catalog, Parser: req.Parser}
	if resolver.Parser == nil {
		resolver.Parser = bitcode.Parser{}
	}

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// каждый воркер пишет только в свой индекс, мьютекс не нужен
	results := make([]TargetResult, len(req.Targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(req.Targets)))

	for i, tgt := range req.Targets {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			res := resolveTarget(resolver, tracer, span.ID(), tgt)
			results[i] = res
			req.Timer.Record("resolve "+tgt.Triple, res.Duration, summarize(res))
			if res.Base.Failed() {
				return &TargetError{Triple: tgt.Triple, Err: res.Base.Err}
			}
			if res.Arch.Failed() {
				return &TargetError{Triple: tgt.Triple, Err: res.Arch.Err}
			}
			return nil
		})
	}

	// errgroup keeps the first error, so sibling cancellations never mask
	// the failing target
	if err := g.Wait(); err != nil {
		span.WithExtra("error", err.Error())
		return results, err
	}
	return results, nil
}

func resolveTarget(r *ukernel.Resolver, tracer trace.Tracer, parent uint64, tgt target.Target) TargetResult {
	start := time.Now()
	span := trace.Begin(tracer, trace.ScopeTarget, "target:"+tgt.Triple, parent)

	res := TargetResult{Target: tgt, Context: bitcode.NewContext()}
	res.Base = r.ResolveBase(tgt, res.Context)
	traceModule(tracer, span.ID(), res.Base)
	if !res.Base.Failed() {
		res.Arch = r.ResolveArch(tgt, res.Context)
		traceModule(tracer, span.ID(), res.Arch)
	}

	res.Duration = time.Since(start)
	span.WithExtra("base", res.Base.Outcome.String())
	if res.Arch.Outcome != 0 {
		span.WithExtra("arch", res.Arch.Outcome.String())
	}
	span.End(tgt.ArchName())
	return res
}

func traceModule(t trace.Tracer, parent uint64, r ukernel.Result) {
	extra := map[string]string{"outcome": r.Outcome.String()}
	if r.Found() {
		extra["funcs"] = strconv.Itoa(len(r.Module.Funcs))
		extra["stripped"] = strconv.Itoa(r.Stripped)
	}
	detail := ""
	if r.Err != nil {
		detail = r.Err.Error()
	}
	name := r.Name
	if name == "" {
		name = "<none>"
	}
	trace.Point(t, trace.ScopeModule, "module:"+name, detail, parent, extra)
}

func summarize(r TargetResult) string {
	s := "base " + r.Base.Outcome.String()
	if r.Arch.Outcome != 0 {
		s += ", arch " + r.Arch.Outcome.String()
	}
	return s
}
