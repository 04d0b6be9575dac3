// Package trace records what the micro-kernel loader does, for debugging
// target selection and catalog packaging problems.
//
// # Usage
//
//	ukbc resolve --trace=- --trace-level=module x86_64-unknown-linux-gnu
//
// # Levels
//
//   - LevelOff: No tracing
//   - LevelError: Only ring dumps after a failed load
//   - LevelPhase: Load boundaries
//   - LevelTarget: Per-target resolution
//   - LevelModule: Every resolved module
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeTarget, "target:x86_64", parentID)
//	defer span.End("")
//
// The resolver packages themselves never trace; spans are opened by the
// pipeline that drives them.
package trace
