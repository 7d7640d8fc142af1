// Package resolver implements registry-stack lookup: rewriting an indirect
// flake reference through a stack of registries until a direct reference is
// reached, detecting cycles along the way.
package resolver

import (
	"fmt"
	"strings"

	"github.com/nixflake/nixflake/internal/errdefs"
	"github.com/nixflake/nixflake/internal/flakeref"
	"github.com/nixflake/nixflake/internal/logging"
	"github.com/nixflake/nixflake/internal/registry"
)

// LookupFlake rewrites ref through stack until a direct reference is reached.
//
// At each step, if the current reference matches a registry entry, the
// redirection target is used, but any ref/rev refinement the caller supplied
// on an alias is preserved onto the target: a user who pins "nixpkgs?rev=..."
// expects that pin to survive the alias's indirection. A target already seen
// during this lookup is a cycle.
func LookupFlake(stack *registry.Stack, ref flakeref.Ref) (flakeref.Ref, error) {
	return lookup(stack, ref, nil)
}

func lookup(stack *registry.Stack, ref flakeref.Ref, trail []flakeref.Ref) (flakeref.Ref, error) {
	for _, reg := range stack.Ordered() {
		// A registry entry is keyed by an alias's base identity; a ref/rev
		// refinement the caller attached (e.g. "nixpkgs?rev=...") must not
		// prevent the match, only override the resolved target below.
		target, ok := reg.Lookup(ref.BaseRef())
		if !ok {
			continue
		}
		if ref.Ref != "" {
			target.Ref = ref.Ref
		}
		if ref.Rev != "" {
			target.Rev = ref.Rev
		}
		for _, seen := range trail {
			if seen.Equal(target) {
				return flakeref.Ref{}, fmt.Errorf("%w: %s", errdefs.ErrCycleInRegistry, trailString(append(trail, target)))
			}
		}
		logging.Debug("registry lookup", logging.Fields{"from": ref.String(), "to": target.String()})
		return lookup(stack, target, append(trail, target))
	}
	if ref.IsDirect() {
		return ref, nil
	}
	return flakeref.Ref{}, fmt.Errorf("%w: %s", errdefs.ErrUnresolvedIndirectRef, ref.String())
}

func trailString(trail []flakeref.Ref) string {
	parts := make([]string, len(trail))
	for i, r := range trail {
		parts[i] = r.String()
	}
	return strings.Join(parts, " -> ")
}
