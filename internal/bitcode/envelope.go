// Package bitcode reads and writes the catalog's IR containers and parses
// their payload into llir modules.
package bitcode

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when Envelope format changes
const EnvelopeSchema uint16 = 1

const (
	envelopeMagic = "UKBC"
	headerSize    = len(envelopeMagic) + 4
)

// Envelope is the msgpack payload of a catalog blob.
type Envelope struct {
	Schema uint16 `msgpack:"schema"`
	Name   string `msgpack:"name"`
	Triple string `msgpack:"triple"` // triple the IR was produced for, informational
	IR     []byte `msgpack:"ir"`     // textual LLVM IR
}

// Encode serializes env as magic, little-endian uint32 payload length and
// the msgpack payload. A zero Schema is filled with EnvelopeSchema.
func Encode(env *Envelope) ([]byte, error) {
	if env == nil {
		return nil, fmt.Errorf("missing envelope")
	}
	e := *env
	if e.Schema == 0 {
		e.Schema = EnvelopeSchema
	}
	payload, err := msgpack.Marshal(&e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope %q: %w", e.Name, err)
	}
	n, err := safecast.Conv[uint32](len(payload))
	if err != nil {
		return nil, fmt.Errorf("envelope %q payload too large: %w", e.Name, err)
	}
	buf := make([]byte, headerSize, headerSize+len(payload))
	copy(buf, envelopeMagic)
	binary.LittleEndian.PutUint32(buf[len(envelopeMagic):], n)
	return append(buf, payload...), nil
}

// Decode parses a blob produced by Encode. name is only used for
// diagnostics; errors are *ParseError.
func Decode(data []byte, name string) (*Envelope, error) {
	if len(data) < headerSize {
		return nil, &ParseError{Name: name, Msg: fmt.Sprintf("truncated header: %d bytes", len(data))}
	}
	if !bytes.Equal(data[:len(envelopeMagic)], []byte(envelopeMagic)) {
		return nil, &ParseError{Name: name, Msg: fmt.Sprintf("bad magic %q", data[:len(envelopeMagic)])}
	}
	declared := binary.LittleEndian.Uint32(data[len(envelopeMagic):headerSize])
	payload := data[headerSize:]
	n, err := safecast.Conv[uint32](len(payload))
	if err != nil || n != declared {
		return nil, &ParseError{Name: name, Msg: fmt.Sprintf("payload length %d does not match header %d", len(payload), declared)}
	}

	var env Envelope
	if err := msgpack.Unmarshal(payload, &env); err != nil {
		return nil, &ParseError{Name: name, Msg: "malformed payload", Err: err}
	}
	if env.Schema != EnvelopeSchema {
		return nil, &ParseError{Name: name, Msg: fmt.Sprintf("unsupported schema %d (want %d)", env.Schema, EnvelopeSchema)}
	}
	if len(env.IR) == 0 {
		return nil, &ParseError{Name: name, Msg: "empty IR payload"}
	}
	return &env, nil
}
