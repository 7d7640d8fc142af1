package flake

// Value is the attribute set exposed to a consumer (typically the
// evaluator) for one flake in a resolved closure: its metadata plus a
// narrowed view of only its own declared dependencies. This intentionally
// does not share the whole-closure scope with every dependency -- each
// flake's provides function only ever sees what it actually required.
type Value struct {
	ID          string
	Description string
	OutPath     string
	RevCount    int
	Deps        map[string]*Value

	// Provides invokes the flake's "provides" function, partially applied to
	// its own declared dependencies only -- never the full resolved closure.
	Provides func() (interface{}, error)
}

// MakeFlakeValue builds the Value tree for d, the adapter between a resolved
// Dependencies closure and a consumer that wants to inject it as a single
// attribute set keyed by flake id.
func MakeFlakeValue(d *Dependencies) *Value {
	v := &Value{
		ID:          d.Flake.ID,
		Description: d.Flake.Description,
		OutPath:     d.Flake.Path,
		RevCount:    d.Flake.RevCount,
	}
	if len(d.FlakeDeps) > 0 {
		v.Deps = make(map[string]*Value, len(d.FlakeDeps))
		for _, child := range d.FlakeDeps {
			v.Deps[child.Flake.ID] = MakeFlakeValue(child)
		}
	}

	flake := d.Flake
	ownDeps := declaredDepsAttr(d.FlakeDeps)
	v.Provides = func() (interface{}, error) { return flake.CallProvides(ownDeps) }
	return v
}

// declaredDepsAttr projects a flake's own direct dependencies into the
// map passed to its "provides" function -- scoped to what it actually
// required, not the whole resolved closure.
func declaredDepsAttr(deps []*Dependencies) map[string]interface{} {
	out := make(map[string]interface{}, len(deps))
	for _, d := range deps {
		out[d.Flake.ID] = map[string]interface{}{
			"id":          d.Flake.ID,
			"description": d.Flake.Description,
			"outPath":     d.Flake.Path,
			"revCount":    int64(d.Flake.RevCount),
		}
	}
	return out
}
