// Package flakeref implements the polymorphic flake reference algebra: parsing,
// canonical string rendering, equality, and the immutability/directness predicates
// the rest of the resolver depends on.
package flakeref

import (
	"fmt"
	"strings"
)

// Kind discriminates the reference variants. A Ref is a closed sum type: exactly
// one Kind is active and only the fields relevant to that Kind are meaningful.
type Kind int

const (
	// KindAlias is an indirect name resolved through a registry stack.
	KindAlias Kind = iota
	// KindGitHub is a hosted git repository fetched as a tarball.
	KindGitHub
	// KindGit is an arbitrary git remote fetched by cloning.
	KindGit
	// KindPath is a local directory that must contain a .git subdirectory.
	KindPath
)

func (k Kind) String() string {
	switch k {
	case KindAlias:
		return "alias"
	case KindGitHub:
		return "github"
	case KindGit:
		return "git"
	case KindPath:
		return "path"
	default:
		return "unknown"
	}
}

// Ref is a flake reference. Zero value is not a valid reference.
type Ref struct {
	Kind Kind

	// Name holds the alias identifier for KindAlias.
	Name string
	// Owner and Repo hold the repository coordinates for KindGitHub.
	Owner string
	Repo  string
	// URI holds the git remote (KindGit) or local filesystem path (KindPath).
	URI string

	// Ref is an optional branch or tag refinement; empty means unset.
	Ref string
	// Rev is an optional 40-hex-character commit refinement; empty means unset.
	Rev string
}

const revLen = 40

func isHex(s string) bool {
	if len(s) != revLen {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// Parse parses the canonical string form of a flake reference.
//
// Recognized forms:
//
//	github:OWNER/REPO[/REF][?rev=HEX]
//	git+URI[?ref=REF&rev=HEX]   (also accepted bare as git://...)
//	file://PATH  or a bare path starting with '/', './' or '../' (or '.', '..')
//	OWNER/REPO[/REF]            (no scheme: same as github:OWNER/REPO[/REF])
//	NAME[?ref=REF&rev=HEX]      (alias, anything else)
//
// An alias takes its refinements only from the query string: "NAME/REF"
// parses as the GitHub shorthand, not as an alias with a ref.
func Parse(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, fmt.Errorf("flakeref: empty reference")
	}

	switch {
	case strings.HasPrefix(s, "github:"):
		return parseGitHub(strings.TrimPrefix(s, "github:"))
	case strings.HasPrefix(s, "git+"):
		return parseGit(strings.TrimPrefix(s, "git+"))
	case strings.HasPrefix(s, "git://"):
		return parseGit(s)
	case strings.HasPrefix(s, "file://"):
		return parsePath(strings.TrimPrefix(s, "file://"))
	case strings.HasPrefix(s, "/") || strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../") || s == "." || s == "..":
		return parsePath(s)
	case strings.Contains(s, "/") && !strings.Contains(s, "@") && looksLikeOwnerRepo(s):
		// A bare "owner/repo" with no scheme is treated the same as github:owner/repo
		// for ergonomics, matching the common shorthand.
		return parseGitHub(s)
	default:
		name, query := splitQuery(s)
		r := Ref{Kind: KindAlias, Name: name}
		applyQuery(&r, query)
		return r, nil
	}
}

func looksLikeOwnerRepo(s string) bool {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) < 2 {
		return false
	}
	return parts[0] != "" && !strings.ContainsAny(parts[0], ":?")
}

func parseGitHub(rest string) (Ref, error) {
	path, query := splitQuery(rest)
	segs := strings.Split(path, "/")
	if len(segs) < 2 || segs[0] == "" || segs[1] == "" {
		return Ref{}, fmt.Errorf("flakeref: malformed github reference %q", rest)
	}
	r := Ref{Kind: KindGitHub, Owner: segs[0], Repo: segs[1]}
	if len(segs) >= 3 && segs[2] != "" {
		r.Ref = segs[2]
	}
	applyQuery(&r, query)
	return r, nil
}

func parseGit(rest string) (Ref, error) {
	uri, query := splitQuery(rest)
	if uri == "" {
		return Ref{}, fmt.Errorf("flakeref: empty git uri")
	}
	r := Ref{Kind: KindGit, URI: uri}
	applyQuery(&r, query)
	return r, nil
}

func parsePath(rest string) (Ref, error) {
	path, query := splitQuery(rest)
	if path == "" {
		return Ref{}, fmt.Errorf("flakeref: empty path")
	}
	r := Ref{Kind: KindPath, URI: path}
	applyQuery(&r, query)
	return r, nil
}

func splitQuery(s string) (path, query string) {
	if i := strings.IndexByte(s, '?'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

func applyQuery(r *Ref, query string) {
	if query == "" {
		return
	}
	for _, kv := range strings.Split(query, "&") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch k {
		case "rev":
			r.Rev = v
		case "ref":
			r.Ref = v
		}
	}
}

// String renders the canonical form of the reference. Parse(r.String()) == r.
func (r Ref) String() string {
	var b strings.Builder
	switch r.Kind {
	case KindAlias:
		b.WriteString(r.Name)
	case KindGitHub:
		b.WriteString("github:")
		b.WriteString(r.Owner)
		b.WriteByte('/')
		b.WriteString(r.Repo)
		if r.Ref != "" {
			b.WriteByte('/')
			b.WriteString(r.Ref)
		}
	case KindGit:
		b.WriteString("git+")
		b.WriteString(r.URI)
	case KindPath:
		b.WriteString("file://")
		b.WriteString(r.URI)
	}
	var qs []string
	if r.Kind != KindGitHub && r.Ref != "" {
		qs = append(qs, "ref="+r.Ref)
	}
	if r.Rev != "" {
		qs = append(qs, "rev="+r.Rev)
	}
	if len(qs) > 0 {
		b.WriteByte('?')
		b.WriteString(strings.Join(qs, "&"))
	}
	return b.String()
}

// Equal reports whether two references are structurally identical.
func (r Ref) Equal(o Ref) bool {
	return r == o
}

// IsImmutable reports whether the reference is pinned to an exact commit.
func (r Ref) IsImmutable() bool {
	return r.Rev != ""
}

// IsDirect reports whether the reference can be fetched without going through a
// registry lookup. Every variant except Alias is direct.
func (r Ref) IsDirect() bool {
	return r.Kind != KindAlias
}

// BaseRef returns the reference with its Ref and Rev refinements cleared.
func (r Ref) BaseRef() Ref {
	r.Ref = ""
	r.Rev = ""
	return r
}

// WithRev returns a copy of the reference pinned to the given commit hash.
func (r Ref) WithRev(rev string) Ref {
	r.Rev = rev
	return r
}

// ValidRev reports whether s is a well-formed 40-character hex commit hash.
func ValidRev(s string) bool {
	return isHex(s)
}
