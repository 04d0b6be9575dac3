package ukernel

import "github.com/llir/llvm/ir"

// Outcome discriminates a Result.
type Outcome uint8

const (
	// OutcomeFound means the module was located and parsed.
	OutcomeFound Outcome = iota + 1
	// OutcomeAbsent means no module exists for the target. Not an error.
	OutcomeAbsent
	// OutcomeFailed means resolution hit an error; see Result.Err.
	OutcomeFailed
)

// String returns the string representation of Outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeAbsent:
		return "absent"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of resolving one micro-kernel module.
// Module is set only for OutcomeFound, Err only for OutcomeFailed.
type Result struct {
	Outcome Outcome
	Name    string // catalog name that was queried, if one was derived
	Module  *ir.Module
	Err     error

	// Stripped counts target attributes removed by sanitization.
	Stripped int
}

func found(name string, m *ir.Module) Result {
	return Result{Outcome: OutcomeFound, Name: name, Module: m}
}

func absent(name string) Result {
	return Result{Outcome: OutcomeAbsent, Name: name}
}

func failed(err *Error) Result {
	return Result{Outcome: OutcomeFailed, Name: err.Name, Err: err}
}

// Found reports whether r carries a module.
func (r Result) Found() bool { return r.Outcome == OutcomeFound }

// Absent reports whether r is the non-error "nothing to load" outcome.
func (r Result) Absent() bool { return r.Outcome == OutcomeAbsent }

// Failed reports whether r is an error outcome.
func (r Result) Failed() bool { return r.Outcome == OutcomeFailed }
