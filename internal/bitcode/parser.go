package bitcode

import (
	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"
)

// Context owns the modules parsed into it. It is not safe for concurrent
// use: every goroutine resolving modules needs its own Context.
type Context struct {
	modules []*ir.Module
}

// NewContext returns an empty parsing context.
func NewContext() *Context {
	return &Context{}
}

// Modules returns the modules parsed into c, in parse order.
func (c *Context) Modules() []*ir.Module {
	if c == nil {
		return nil
	}
	return c.modules
}

// Len returns how many modules c owns.
func (c *Context) Len() int {
	if c == nil {
		return 0
	}
	return len(c.modules)
}

// Parser decodes catalog blobs with llir's textual IR parser.
type Parser struct{}

// Parse decodes data as an Envelope and parses its IR into ctx.
func (Parser) Parse(data []byte, name string, ctx *Context) (*ir.Module, error) {
	if ctx == nil {
		return nil, &ParseError{Name: name, Msg: "missing parse context"}
	}
	env, err := Decode(data, name)
	if err != nil {
		return nil, err
	}
	m, err := asm.ParseBytes(name, env.IR)
	if err != nil {
		return nil, &ParseError{Name: name, Msg: "invalid IR", Err: err}
	}
	if m.SourceFilename == "" {
		m.SourceFilename = name
	}
	ctx.modules = append(ctx.modules, m)
	return m, nil
}
