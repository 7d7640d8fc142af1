// Package lockfile implements the canonical on-disk lock-file format: a
// recursive, immutability-checked serialization of a resolved flake
// dependency closure.
package lockfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nixflake/nixflake/internal/errdefs"
	"github.com/nixflake/nixflake/internal/flakeref"
)

const currentVersion = 1

// FlakeEntry is one flake's pinned position within a lock file: its own
// resolved reference plus the same shape recursively for its dependencies.
type FlakeEntry struct {
	URI              flakeref.Ref
	NonFlakeRequires map[string]flakeref.Ref
	Requires         map[string]FlakeEntry
}

// LockFile is the root of a resolved dependency closure.
type LockFile struct {
	Version          int
	NonFlakeRequires map[string]flakeref.Ref
	Requires         map[string]FlakeEntry
}

// New returns an empty, current-version lock file.
func New() *LockFile {
	return &LockFile{Version: currentVersion}
}

type wireLockFile struct {
	Version          int                   `json:"version"`
	NonFlakeRequires map[string]wireRef    `json:"nonFlakeRequires,omitempty"`
	Requires         map[string]wireEntry  `json:"requires,omitempty"`
}

type wireEntry struct {
	URI              string                `json:"uri"`
	NonFlakeRequires map[string]wireRef    `json:"nonFlakeRequires,omitempty"`
	Requires         map[string]wireEntry  `json:"requires,omitempty"`
}

type wireRef struct {
	URI string `json:"uri"`
}

func toWireEntry(e FlakeEntry) wireEntry {
	w := wireEntry{URI: e.URI.String()}
	if len(e.NonFlakeRequires) > 0 {
		w.NonFlakeRequires = toWireRefMap(e.NonFlakeRequires)
	}
	if len(e.Requires) > 0 {
		w.Requires = toWireEntryMap(e.Requires)
	}
	return w
}

func toWireRefMap(m map[string]flakeref.Ref) map[string]wireRef {
	out := make(map[string]wireRef, len(m))
	for k, v := range m {
		out[k] = wireRef{URI: v.String()}
	}
	return out
}

func toWireEntryMap(m map[string]FlakeEntry) map[string]wireEntry {
	out := make(map[string]wireEntry, len(m))
	for k, v := range m {
		out[k] = toWireEntry(v)
	}
	return out
}

// Marshal renders the lock file to its canonical 4-space-indented JSON form.
func (l *LockFile) Marshal() ([]byte, error) {
	version := l.Version
	if version == 0 {
		version = currentVersion
	}
	wire := wireLockFile{Version: version}
	if len(l.NonFlakeRequires) > 0 {
		wire.NonFlakeRequires = toWireRefMap(l.NonFlakeRequires)
	}
	if len(l.Requires) > 0 {
		wire.Requires = toWireEntryMap(l.Requires)
	}
	return json.MarshalIndent(wire, "", "    ")
}

func fromWireEntry(w wireEntry) (FlakeEntry, error) {
	uri, err := flakeref.Parse(w.URI)
	if err != nil {
		return FlakeEntry{}, errdefs.Wrapf(err, "lock entry uri %q", w.URI)
	}
	if !uri.IsImmutable() {
		return FlakeEntry{}, fmt.Errorf("%w: %s", errdefs.ErrPurityViolation, w.URI)
	}
	e := FlakeEntry{URI: uri}
	if len(w.NonFlakeRequires) > 0 {
		m, err := fromWireRefMap(w.NonFlakeRequires)
		if err != nil {
			return FlakeEntry{}, err
		}
		e.NonFlakeRequires = m
	}
	if len(w.Requires) > 0 {
		m, err := fromWireEntryMap(w.Requires)
		if err != nil {
			return FlakeEntry{}, err
		}
		e.Requires = m
	}
	return e, nil
}

func fromWireRefMap(m map[string]wireRef) (map[string]flakeref.Ref, error) {
	out := make(map[string]flakeref.Ref, len(m))
	for k, v := range m {
		ref, err := flakeref.Parse(v.URI)
		if err != nil {
			return nil, errdefs.Wrapf(err, "lock entry uri %q", v.URI)
		}
		if !ref.IsImmutable() {
			return nil, fmt.Errorf("%w: %s", errdefs.ErrPurityViolation, v.URI)
		}
		out[k] = ref
	}
	return out, nil
}

func fromWireEntryMap(m map[string]wireEntry) (map[string]FlakeEntry, error) {
	out := make(map[string]FlakeEntry, len(m))
	for k, v := range m {
		e, err := fromWireEntry(v)
		if err != nil {
			return nil, err
		}
		out[k] = e
	}
	return out, nil
}

// Parse decodes a lock file from an in-memory buffer, enforcing that every
// uri it names is immutable (invariant: a lock file pins exact revisions).
func Parse(data []byte) (*LockFile, error) {
	var wire wireLockFile
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, errdefs.Wrap(err, "parse lock file")
	}
	if wire.Version != currentVersion {
		return nil, fmt.Errorf("%w: got version %d, want %d", errdefs.ErrVersionMismatch, wire.Version, currentVersion)
	}
	l := &LockFile{Version: wire.Version}
	if len(wire.NonFlakeRequires) > 0 {
		m, err := fromWireRefMap(wire.NonFlakeRequires)
		if err != nil {
			return nil, err
		}
		l.NonFlakeRequires = m
	}
	if len(wire.Requires) > 0 {
		m, err := fromWireEntryMap(wire.Requires)
		if err != nil {
			return nil, err
		}
		l.Requires = m
	}
	return l, nil
}

// Load reads a lock file from path. A missing file yields an empty lock
// file, matching the registry codec's convention.
func Load(path string) (*LockFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, errdefs.Wrapf(err, "load lock file %s", path)
	}
	return Parse(data)
}

// Save atomically writes the lock file to path.
func (l *LockFile) Save(path string) (err error) {
	data, err := l.Marshal()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errdefs.Wrapf(err, "create lock file directory %s", dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errdefs.Wrap(err, "create temp lock file")
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errdefs.Wrap(err, "write lock file")
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errdefs.Wrap(err, "sync lock file")
	}
	if err = tmp.Close(); err != nil {
		return errdefs.Wrap(err, "close lock file")
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return errdefs.Wrapf(err, "replace lock file %s", path)
	}
	return nil
}
