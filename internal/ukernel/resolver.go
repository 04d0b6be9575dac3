// Package ukernel resolves the precompiled micro-kernel IR modules that
// match a compilation target.
//
// Every target gets exactly one base module, selected by pointer width, and
// at most one architecture-specific module. The base module is mandatory and
// is stripped of the CPU and feature attributes of whatever toolchain built
// it, so the caller's target settings apply once it is linked in.
// Architecture modules are optional and returned as-is.
//
// Resolvers hold no state between calls and are safe for concurrent use as
// long as every call gets its own *bitcode.Context.
package ukernel

import (
	"fmt"

	"github.com/llir/llvm/ir"

	"ukernel/internal/bitcode"
	"ukernel/internal/catalog"
)

// Machine is the view of a compilation target the resolver needs.
type Machine interface {
	IsArch64Bit() bool
	IsArch32Bit() bool
	ArchName() string
}

// Parser turns a catalog blob into a module owned by ctx.
type Parser interface {
	Parse(data []byte, name string, ctx *bitcode.Context) (*ir.Module, error)
}

// Resolver looks up and parses micro-kernel modules from a catalog.
type Resolver struct {
	Catalog catalog.Provider
	Parser  Parser
}

// New returns a resolver over p using the llir-backed parser.
func New(p catalog.Provider) *Resolver {
	return &Resolver{Catalog: p, Parser: bitcode.Parser{}}
}

// ResolveBase loads the architecture-generic module for m's pointer width
// and sanitizes its function attributes. The result is never Absent.
func (r *Resolver) ResolveBase(m Machine, ctx *bitcode.Context) Result {
	name, ok := BaseName(m)
	if !ok {
		return failed(&Error{Kind: ErrUnsupportedTarget, Msg: "unsupported target width"})
	}
	mod, present, err := r.load(name, ctx)
	if err != nil {
		return failed(err)
	}
	if !present {
		return failed(&Error{Kind: ErrMissingArtifact, Name: name, Msg: "mandatory base module missing"})
	}
	res := found(name, mod)
	res.Stripped = Sanitize(mod)
	return res
}

// ResolveArch loads the module specialized for m's architecture. Absent is
// the normal outcome for architectures without specialized kernels.
func (r *Resolver) ResolveArch(m Machine, ctx *bitcode.Context) Result {
	if m == nil {
		return failed(&Error{Kind: ErrUnsupportedTarget, Msg: "missing target"})
	}
	name, err := ArchFileName(m.ArchName())
	if err != nil {
		return failed(&Error{Kind: ErrUnsupportedTarget, Msg: err.Error()})
	}
	mod, present, lerr := r.load(name, ctx)
	if lerr != nil {
		return failed(lerr)
	}
	if !present {
		return absent(name)
	}
	return found(name, mod)
}

func (r *Resolver) load(name string, ctx *bitcode.Context) (*ir.Module, bool, *Error) {
	entry, ok := catalog.Lookup(r.Catalog, name)
	if !ok {
		return nil, false, nil
	}
	parser := r.Parser
	if parser == nil {
		parser = bitcode.Parser{}
	}
	if entry.Size < 0 || entry.Size > len(entry.Data) {
		return nil, true, &Error{Kind: ErrParse, Name: name, Err: fmt.Errorf("%s: entry size %d exceeds data length %d", name, entry.Size, len(entry.Data))}
	}
	mod, err := parser.Parse(entry.Data[:entry.Size], entry.Name, ctx)
	if err != nil {
		return nil, true, &Error{Kind: ErrParse, Name: name, Err: err}
	}
	if mod == nil {
		return nil, true, &Error{Kind: ErrParse, Name: name, Err: fmt.Errorf("%s: parser returned no module", name)}
	}
	return mod, true, nil
}
