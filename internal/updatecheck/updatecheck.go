// Package updatecheck caches the latest published cdd version so the status
// line can advertise updates without touching the network.
package updatecheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// TTL is how long a cached result stays fresh.
const TTL = time.Hour

// CacheFile is the cache name under <claude_home>/cache.
const CacheFile = "cdd-update-check.json"

// Result is the cached outcome of one registry query.
type Result struct {
	Current   string    `json:"current"`
	Latest    *string   `json:"latest"`
	HasUpdate bool      `json:"hasUpdate"`
	CheckedAt time.Time `json:"checkedAt"`
	Error     string    `json:"error,omitempty"`
}

// CachePath returns the cache location for home.
func CachePath(home string) string {
	return filepath.Join(home, "cache", CacheFile)
}

// ReadCache loads the cached result. ok is false when the cache is missing
// or malformed.
func ReadCache(home string) (Result, bool) {
	data, err := os.ReadFile(CachePath(home))
	if err != nil {
		return Result{}, false
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, false
	}
	return r, true
}

// WriteCache stores r atomically.
func WriteCache(home string, r Result) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding update cache: %w", err)
	}
	path := CachePath(home)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing update cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming update cache: %w", err)
	}
	return nil
}

// Fresh reports whether r was checked less than TTL before now.
func (r Result) Fresh(now time.Time) bool {
	if r.CheckedAt.IsZero() {
		return false
	}
	return now.Sub(r.CheckedAt) < TTL
}

// Available returns the newer version, if the cache records one.
func (r Result) Available() (string, bool) {
	if !r.HasUpdate || r.Latest == nil || *r.Latest == "" {
		return "", false
	}
	return *r.Latest, true
}

// Compare orders dotted versions numerically over their first three
// components. Missing or non-numeric parts count as zero.
func Compare(a, b string) int {
	pa, pb := parts(a), parts(b)
	for i := 0; i < 3; i++ {
		switch {
		case pa[i] > pb[i]:
			return 1
		case pa[i] < pb[i]:
			return -1
		}
	}
	return 0
}

func parts(v string) [3]int {
	var out [3]int
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	for i, s := range strings.Split(v, ".") {
		if i >= 3 {
			break
		}
		// Drop pre-release and build suffixes such as "3-beta.1".
		if j := strings.IndexAny(s, "-+"); j >= 0 {
			s = s[:j]
		}
		n, _ := strconv.Atoi(s)
		out[i] = n
	}
	return out
}

// Checker queries the package registry.
type Checker struct {
	Client      *http.Client
	RegistryURL string
	Now         func() time.Time
}

var errNoVersion = errors.New("registry response has no version")

// Check fetches the latest version and returns the result to cache. A
// failed query still yields a result, with Error set to "network", so
// callers do not retry until the cache expires.
func (c *Checker) Check(ctx context.Context, current string) Result {
	r := Result{Current: current, CheckedAt: c.now().UTC()}
	latest, err := c.latest(ctx)
	if err != nil {
		r.Error = "network"
		return r
	}
	r.Latest = &latest
	r.HasUpdate = Compare(latest, current) > 0
	return r
}

func (c *Checker) latest(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RegistryURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("query registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("registry returned %d", resp.StatusCode)
	}
	var pkg struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&pkg); err != nil {
		return "", fmt.Errorf("decoding registry response: %w", err)
	}
	if pkg.Version == "" {
		return "", errNoVersion
	}
	return pkg.Version, nil
}

func (c *Checker) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
