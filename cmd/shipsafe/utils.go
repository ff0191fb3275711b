package shipsafe

import (
	"runtime/debug"
	"time"

	semver3 "github.com/blang/semver"
	semver "github.com/blang/semver/v4"
	"github.com/rhysd/go-github-selfupdate/selfupdate"

	"github.com/shipsafe/shipsafe/internal/update"
)

func selfUpdate() error {
	v := version
	// fall back to the VCS revision when no version was stamped
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(v) == 0 {
				v = s.Value
			}
		}
	}
	ver, err := semver.ParseTolerant(v)
	if err != nil {
		ver = semver.MustParse("0.0.0")
	}
	_, err = selfupdate.UpdateSelf(semver3.MustParse(ver.String()), update.Repo)
	return err
}

func pickString(cli string, local, global *string) string {
	if cli != "" {
		return cli
	}
	if local != nil && *local != "" {
		return *local
	}
	if global != nil && *global != "" {
		return *global
	}
	return ""
}

func pickInt(cli int, local, global *int) int {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickInt64(cli int64, local, global *int64) int64 {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickDuration(cli, local, global time.Duration) time.Duration {
	for _, d := range []time.Duration{cli, local, global} {
		if d > 0 {
			return d
		}
	}
	return 0
}

// pickBool lets an explicitly set CLI flag win; otherwise local, then
// global, then def.
func pickBool(cli bool, cliSet bool, local, global *bool, def bool) bool {
	if cliSet {
		return cli
	}
	if local != nil {
		return *local
	}
	if global != nil {
		return *global
	}
	return def
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
