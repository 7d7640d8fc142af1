package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/nixflake/nixflake/internal/errdefs"
)

// githubClient downloads GitHub tarballs and validates the ETag-derived
// commit hash the API returns: the ETag value itself carries the resolved
// commit. Caching is by age of the local copy only; requests are plain GETs
// with no If-None-Match or If-Modified-Since header.
type githubClient struct {
	client    *http.Client
	userAgent string
	baseURL   string
}

func newGitHubClient(timeout time.Duration, userAgent string) *githubClient {
	return &githubClient{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		baseURL:   "https://api.github.com",
	}
}

// fetchTarball downloads the tarball for owner/repo at revOrRef into cacheDir
// and returns the local archive path and the resolved 40-hex commit. When ttl
// is zero a cached copy is reused whatever its age (used for pinned
// revisions, which are immutable and thus cacheable indefinitely); a positive
// ttl reuses a cached copy younger than ttl without any network round trip.
// Otherwise the tarball is downloaded again.
func (c *githubClient) fetchTarball(ctx context.Context, cacheDir, owner, repo, revOrRef string, ttl time.Duration) (string, string, error) {
	cachedPath := filepath.Join(cacheDir, fmt.Sprintf("%s-%s-%s.tar", owner, repo, sanitizeSegment(revOrRef)))
	cachedRevPath := cachedPath + ".rev"

	if ttl > 0 {
		if info, err := os.Stat(cachedPath); err == nil && time.Since(info.ModTime()) < ttl {
			if rev, err := os.ReadFile(cachedRevPath); err == nil {
				return cachedPath, string(rev), nil
			}
		}
	} else if rev, err := os.ReadFile(cachedRevPath); err == nil {
		if _, err := os.Stat(cachedPath); err == nil {
			return cachedPath, string(rev), nil
		}
	}

	url := fmt.Sprintf("%s/repos/%s/%s/tarball/%s", c.baseURL, owner, repo, revOrRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", errdefs.Wrap(err, "build github request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", errdefs.Wrapf(err, "download %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("github tarball request for %s returned status %d", url, resp.StatusCode)
	}

	rev, err := parseETag(resp.Header.Get("ETag"))
	if err != nil {
		return "", "", err
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", "", errdefs.Wrap(err, "create tarball cache dir")
	}
	if err := writeAtomic(cachedPath, resp.Body); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(cachedRevPath, []byte(rev), 0o644); err != nil {
		return "", "", errdefs.Wrap(err, "write cached rev")
	}
	return cachedPath, rev, nil
}

func sanitizeSegment(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
			out[i] = c
		default:
			out[i] = '-'
		}
	}
	return string(out)
}

// parseETag extracts the 40-hex commit hash from a GitHub tarball response's
// ETag header. A valid ETag is exactly 42 characters: a double quote, 40 hex
// digits, and a closing double quote.
func parseETag(etag string) (string, error) {
	const wantLen = 42
	if len(etag) != wantLen || etag[0] != '"' || etag[wantLen-1] != '"' {
		return "", fmt.Errorf("%w: %q", errdefs.ErrMalformedETag, etag)
	}
	hex := etag[1 : wantLen-1]
	for _, c := range hex {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return "", fmt.Errorf("%w: %q", errdefs.ErrMalformedETag, etag)
		}
	}
	return hex, nil
}

func writeAtomic(dst string, r io.Reader) (err error) {
	dir := filepath.Dir(dst)
	tmp, err := os.CreateTemp(dir, filepath.Base(dst)+".tmp-*")
	if err != nil {
		return errdefs.Wrap(err, "create temp tarball")
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return errdefs.Wrap(err, "write tarball")
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errdefs.Wrap(err, "sync tarball")
	}
	if err = tmp.Close(); err != nil {
		return errdefs.Wrap(err, "close tarball")
	}
	if err = os.Rename(tmpPath, dst); err != nil {
		return errdefs.Wrapf(err, "replace %s", dst)
	}
	return nil
}
