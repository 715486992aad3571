// Package provenance identifies the code revision that produced a run.
package provenance

import (
	"context"
	"os/exec"
	"runtime/debug"
	"strings"
	"time"
)

// Unknown is returned when no revision can be determined.
const Unknown = "unknown"

var readBuildInfo = debug.ReadBuildInfo

var gitRevision = func(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "git", "rev-parse", "HEAD").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// CodeRevision returns override when set, then the vcs.revision stamped
// into the binary, then the checkout's HEAD, else Unknown. A dirty build
// is suffixed with "-dirty".
func CodeRevision(ctx context.Context, override string) string {
	if s := strings.TrimSpace(override); s != "" {
		return s
	}

	if info, ok := readBuildInfo(); ok {
		var rev string
		var dirty bool
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				rev = s.Value
			case "vcs.modified":
				dirty = s.Value == "true"
			}
		}
		if rev != "" {
			if dirty {
				rev += "-dirty"
			}
			return rev
		}
	}

	if rev, err := gitRevision(ctx); err == nil && rev != "" {
		return rev
	}
	return Unknown
}
