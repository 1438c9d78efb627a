package hooks

import (
	"context"
	"net/http"
	"time"

	"github.com/papapumpkin/cdd/internal/hookinput"
	"github.com/papapumpkin/cdd/internal/install"
	"github.com/papapumpkin/cdd/internal/updatecheck"
)

// updateStdinTimeout bounds the wait for the (unused) hook input.
const updateStdinTimeout = time.Second

// runUpdateCheck schedules a background registry query when the cached
// result is stale. With Fetch set it is the background query itself.
func runUpdateCheck(ctx context.Context, env *Env) error {
	home := env.Settings.ClaudeHome
	if env.Fetch {
		checker := &updatecheck.Checker{
			Client:      &http.Client{Timeout: env.Settings.HTTPTimeout()},
			RegistryURL: env.Settings.RegistryURL,
			Now:         env.Now,
		}
		return updatecheck.WriteCache(home, checker.Check(ctx, CurrentVersion(home, env.Version)))
	}

	// Drain the host input so the host is not left writing to a closed pipe.
	hookinput.FromFileJSON(env.Stdin, updateStdinTimeout, new(any))

	if r, ok := updatecheck.ReadCache(home); ok && r.Fresh(env.Now()) {
		return nil
	}
	if env.StartFetch == nil {
		return nil
	}
	return env.StartFetch()
}

// CurrentVersion is the installed version, else the build version, else
// 0.0.0.
func CurrentVersion(claudeHome, build string) string {
	if v, ok := install.InstalledVersion(claudeHome); ok {
		return v
	}
	if build != "" && build != "dev" {
		return build
	}
	return "0.0.0"
}
