package flake

import (
	"context"
	"fmt"

	"github.com/nixflake/nixflake/internal/errdefs"
	"github.com/nixflake/nixflake/internal/flakeref"
	"github.com/nixflake/nixflake/internal/lockfile"
	"github.com/nixflake/nixflake/internal/registry"
	"github.com/nixflake/nixflake/internal/resolver"
)

// Dependencies is a node in the resolved dependency tree: a loaded flake
// together with its own recursively resolved flake and non-flake
// dependencies. The tree is not deduplicated across diamond dependencies;
// see DESIGN.md.
type Dependencies struct {
	Flake        *Flake
	FlakeDeps    []*Dependencies
	NonFlakeDeps []*NonFlake
}

// ResolveFlake resolves ref through stack and recursively loads its full
// dependency closure. Only the root call is exempt from the purity rule;
// every recursive descent is fetched with impureTop false, so when pure is
// true each dependency must already be pinned to a rev.
func (l *Loader) ResolveFlake(ctx context.Context, ref flakeref.Ref, stack *registry.Stack, pure bool) (*Dependencies, error) {
	return l.resolveFlake(ctx, ref, stack, pure, true, make(map[string]struct{}))
}

func (l *Loader) resolveFlake(ctx context.Context, ref flakeref.Ref, stack *registry.Stack, pure, impureTop bool, visiting map[string]struct{}) (*Dependencies, error) {
	resolved, err := resolver.LookupFlake(stack, ref)
	if err != nil {
		return nil, err
	}

	key := resolved.String()
	if _, ok := visiting[key]; ok {
		return nil, fmt.Errorf("%w: %s", errdefs.ErrDependencyCycle, key)
	}
	visiting[key] = struct{}{}
	defer delete(visiting, key)

	f, err := l.GetFlake(ctx, resolved, pure, impureTop)
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{Flake: f}

	for alias, nfRef := range f.NonFlakeRequires {
		nfResolved, err := resolver.LookupFlake(stack, nfRef)
		if err != nil {
			return nil, errdefs.Wrapf(err, "nonFlakeRequires %q of %s", alias, f.ID)
		}
		nf, err := l.GetNonFlake(ctx, alias, nfResolved, pure, false)
		if err != nil {
			return nil, errdefs.Wrapf(err, "nonFlakeRequires %q of %s", alias, f.ID)
		}
		deps.NonFlakeDeps = append(deps.NonFlakeDeps, nf)
	}

	for _, req := range f.Requires {
		child, err := l.resolveFlake(ctx, req, stack, pure, false, visiting)
		if err != nil {
			return nil, errdefs.Wrapf(err, "requires %q of %s", req.String(), f.ID)
		}
		deps.FlakeDeps = append(deps.FlakeDeps, child)
	}

	return deps, nil
}

// ToLockFile serializes the resolved closure into a LockFile, keyed at each
// level by the dependency's flake id or non-flake alias.
func (d *Dependencies) ToLockFile() *lockfile.LockFile {
	lf := lockfile.New()
	entry := d.toEntry()
	lf.NonFlakeRequires = entry.NonFlakeRequires
	lf.Requires = entry.Requires
	return lf
}

func (d *Dependencies) toEntry() lockfile.FlakeEntry {
	entry := lockfile.FlakeEntry{URI: d.Flake.Ref}
	if len(d.NonFlakeDeps) > 0 {
		entry.NonFlakeRequires = make(map[string]flakeref.Ref, len(d.NonFlakeDeps))
		for _, nf := range d.NonFlakeDeps {
			entry.NonFlakeRequires[nf.Alias] = nf.Ref
		}
	}
	if len(d.FlakeDeps) > 0 {
		entry.Requires = make(map[string]lockfile.FlakeEntry, len(d.FlakeDeps))
		for _, child := range d.FlakeDeps {
			entry.Requires[child.Flake.ID] = child.toEntry()
		}
	}
	return entry
}
