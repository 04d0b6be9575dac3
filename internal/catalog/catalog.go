// Package catalog provides read-only lookup over the table of named
// precompiled IR blobs that ships inside the compiler binary.
package catalog

import (
	"fmt"
	"io/fs"
	"path"
)

// Entry is a single named blob of the catalog.
type Entry struct {
	Name string
	Data []byte
	Size int
}

// Provider exposes the catalog entries. Implementations must return the same
// sequence on every call and never mutate it.
type Provider interface {
	Entries() []Entry
}

// Lookup scans p for an entry whose name equals name exactly.
// When p contains duplicate names the first one in iteration order wins;
// Table rejects duplicates at construction so this only matters for
// hand-rolled providers.
func Lookup(p Provider, name string) (Entry, bool) {
	if p == nil || name == "" {
		return Entry{}, false
	}
	for _, e := range p.Entries() {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Table is a fixed, immutable Provider.
type Table struct {
	entries []Entry
}

// NewTable builds a table from entries. Names must be unique and non-empty,
// and every Size must match len(Data).
func NewTable(entries ...Entry) (*Table, error) {
	seen := make(map[string]struct{}, len(entries))
	out := make([]Entry, 0, len(entries))
	for i, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("catalog entry %d has empty name", i)
		}
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %q", e.Name)
		}
		if e.Size != len(e.Data) {
			return nil, fmt.Errorf("catalog entry %q: size %d does not match data length %d", e.Name, e.Size, len(e.Data))
		}
		seen[e.Name] = struct{}{}
		out = append(out, e)
	}
	return &Table{entries: out}, nil
}

// Entries implements Provider.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	return t.entries
}

// Lookup is a shorthand for Lookup(t, name).
func (t *Table) Lookup(name string) (Entry, bool) {
	return Lookup(t, name)
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Names returns entry names in table order.
func (t *Table) Names() []string {
	names := make([]string, 0, t.Len())
	for _, e := range t.Entries() {
		names = append(names, e.Name)
	}
	return names
}

// FromFS loads every *.bc file directly under dir of fsys into a table.
// Entries come out sorted by name since fs.ReadDir sorts. Subdirectories are
// ignored.
func FromFS(fsys fs.FS, dir string) (*Table, error) {
	if dir == "" {
		dir = "."
	}
	dirEntries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog dir %q: %w", dir, err)
	}
	entries := make([]Entry, 0, len(dirEntries))
	for _, d := range dirEntries {
		if d.IsDir() || path.Ext(d.Name()) != ".bc" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, d.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog entry %q: %w", d.Name(), err)
		}
		entries = append(entries, Entry{Name: d.Name(), Data: data, Size: len(data)})
	}
	return NewTable(entries...)
}
