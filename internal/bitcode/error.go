package bitcode

import "fmt"

// ParseError reports a blob that could not be turned into a module, either
// because the container is malformed or the IR inside does not parse.
type ParseError struct {
	Name string // catalog name of the blob
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Name, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Msg)
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
