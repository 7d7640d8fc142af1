// Package eval implements the expression-evaluator adapter the flake loader
// depends on. In this implementation a flake.nix file is a Tengo script that
// assigns to a fixed set of well-known globals; the adapter compiles and runs
// it in a sandboxed module set and projects the results back as Go values.
package eval

import (
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/nixflake/nixflake/internal/errdefs"
)

// Attrs is the evaluated attribute set of a flake.nix file.
type Attrs struct {
	compiled *tengo.Compiled
	source   []byte
}

// EvalFile compiles and runs the Tengo script in source, returning its
// resulting attribute set. The script runs with only a fixed, non-I/O
// standard-library module set available, so evaluation cannot reach the
// network or filesystem beyond what it was given.
func EvalFile(source []byte) (*Attrs, error) {
	script := tengo.NewScript(source)
	script.SetImports(stdlib.GetModuleMap("text", "math", "times"))

	compiled, err := script.Run()
	if err != nil {
		return nil, errdefs.Wrap(err, "evaluate flake script")
	}
	return &Attrs{compiled: compiled, source: source}, nil
}

// CallProvides invokes the script's "provides" function with deps bound as
// its argument, returning the projected result. Tengo exposes no way to call
// an already-compiled function value directly, so the script is recompiled
// with deps injected as a global and a trailing call appended -- the same
// inject-then-run shape EvalFile itself uses, just with one more statement.
func (a *Attrs) CallProvides(deps map[string]interface{}) (interface{}, error) {
	const callSuffix = "\n__providesResult := provides(__providesDeps)\n"
	script := tengo.NewScript(append(append([]byte{}, a.source...), []byte(callSuffix)...))
	script.SetImports(stdlib.GetModuleMap("text", "math", "times"))
	if err := script.Add("__providesDeps", deps); err != nil {
		return nil, errdefs.Wrap(err, "bind provides arguments")
	}

	compiled, err := script.Run()
	if err != nil {
		return nil, errdefs.Wrap(err, "invoke provides")
	}
	v := compiled.Get("__providesResult")
	if v == nil {
		return nil, nil
	}
	return v.Value(), nil
}

// String projects attr as a string. Coercion failures and missing
// attributes are reported identically, matching the "required attribute"
// contract the flake loader enforces.
func (a *Attrs) String(attr string) (string, bool) {
	v := a.compiled.Get(attr)
	if v == nil {
		return "", false
	}
	s, ok := v.Value().(string)
	return s, ok
}

// StringList projects attr as a list of strings.
func (a *Attrs) StringList(attr string) ([]string, bool) {
	v := a.compiled.Get(attr)
	if v == nil {
		return nil, false
	}
	raw, ok := v.Value().([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// StringMap projects attr as a map of string to string, used for
// nonFlakeRequires (alias -> reference string).
func (a *Attrs) StringMap(attr string) (map[string]string, bool) {
	v := a.compiled.Get(attr)
	if v == nil {
		return nil, false
	}
	raw, ok := v.Value().(map[string]interface{})
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(raw))
	for k, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out[k] = s
	}
	return out, true
}

// HasFunction reports whether attr is bound to a callable value, used to
// check the required "provides" attribute without invoking it.
func (a *Attrs) HasFunction(attr string) bool {
	v := a.compiled.Get(attr)
	if v == nil {
		return false
	}
	switch v.Value().(type) {
	case *tengo.CompiledFunction, *tengo.UserFunction, *tengo.BuiltinFunction:
		return true
	default:
		return false
	}
}

// RequireString is a convenience wrapper that turns a missing/malformed
// required attribute into the resolver's standard error kind.
func (a *Attrs) RequireString(attr string) (string, error) {
	s, ok := a.String(attr)
	if !ok {
		return "", fmt.Errorf("%w: %q", errdefs.ErrMissingFlakeAttribute, attr)
	}
	return s, nil
}
