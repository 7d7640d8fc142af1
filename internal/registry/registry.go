// Package registry implements the on-disk registry format: a persistent map
// from flake references to the references they redirect to.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nixflake/nixflake/internal/errdefs"
	"github.com/nixflake/nixflake/internal/flakeref"
)

const currentVersion = 1

// Entry is one redirection held by a Registry.
type Entry struct {
	From flakeref.Ref
	To   flakeref.Ref
}

// Registry is an in-memory map of flake reference redirections, as read from
// or written to a registry.json file. Add and Remove modify it in place.
type Registry struct {
	Version int
	Entries []Entry
}

// New returns an empty, current-version registry.
func New() *Registry {
	return &Registry{Version: currentVersion}
}

// Lookup returns the redirection target for ref, if one is present.
func (r *Registry) Lookup(ref flakeref.Ref) (flakeref.Ref, bool) {
	if r == nil {
		return flakeref.Ref{}, false
	}
	for _, e := range r.Entries {
		if e.From.Equal(ref) {
			return e.To, true
		}
	}
	return flakeref.Ref{}, false
}

// Add inserts or replaces the redirection for from.
func (r *Registry) Add(from, to flakeref.Ref) {
	for i, e := range r.Entries {
		if e.From.Equal(from) {
			r.Entries[i].To = to
			return
		}
	}
	r.Entries = append(r.Entries, Entry{From: from, To: to})
}

// Remove deletes the redirection for from, reporting whether it existed.
func (r *Registry) Remove(from flakeref.Ref) bool {
	for i, e := range r.Entries {
		if e.From.Equal(from) {
			r.Entries = append(r.Entries[:i], r.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// wireFormat mirrors the on-disk JSON shape:
//
//	{"version":1,"flakes":{"<ref>":{"uri":"<ref>"}}}
type wireFormat struct {
	Version int                  `json:"version"`
	Flakes  map[string]wireEntry `json:"flakes"`
}

type wireEntry struct {
	URI string `json:"uri"`
}

// Load reads a registry from path. A missing file yields an empty registry,
// not an error.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, errdefs.Wrapf(err, "load registry %s", path)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, errdefs.Wrapf(err, "load registry %s", path)
	}
	return reg, nil
}

// Parse decodes registry JSON from an in-memory buffer.
func Parse(data []byte) (*Registry, error) {
	var wire wireFormat
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, errdefs.Wrap(err, "parse registry")
	}
	if wire.Version != currentVersion {
		return nil, fmt.Errorf("%w: got version %d, want %d", errdefs.ErrVersionMismatch, wire.Version, currentVersion)
	}
	reg := &Registry{Version: wire.Version}
	for k, v := range wire.Flakes {
		from, err := flakeref.Parse(k)
		if err != nil {
			return nil, errdefs.Wrapf(err, "registry key %q", k)
		}
		to, err := flakeref.Parse(v.URI)
		if err != nil {
			return nil, errdefs.Wrapf(err, "registry entry %q", v.URI)
		}
		reg.Entries = append(reg.Entries, Entry{From: from, To: to})
	}
	return reg, nil
}

// Marshal renders the registry to its canonical 4-space-indented JSON form.
// encoding/json sorts map keys, which is what gives the output its
// deterministic, reproducible byte sequence.
func (r *Registry) Marshal() ([]byte, error) {
	version := r.Version
	if version == 0 {
		version = currentVersion
	}
	wire := wireFormat{Version: version, Flakes: make(map[string]wireEntry, len(r.Entries))}
	for _, e := range r.Entries {
		wire.Flakes[e.From.String()] = wireEntry{URI: e.To.String()}
	}
	return json.MarshalIndent(wire, "", "    ")
}

// Save atomically writes the registry to path: a temp file in the same
// directory is written and fsynced, then renamed over the destination so a
// crash never leaves a truncated registry on disk.
func (r *Registry) Save(path string) (err error) {
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errdefs.Wrapf(err, "create registry directory %s", dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errdefs.Wrap(err, "create temp registry file")
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errdefs.Wrap(err, "write registry")
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errdefs.Wrap(err, "sync registry")
	}
	if err = tmp.Close(); err != nil {
		return errdefs.Wrap(err, "close registry")
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return errdefs.Wrapf(err, "replace registry %s", path)
	}
	return nil
}
