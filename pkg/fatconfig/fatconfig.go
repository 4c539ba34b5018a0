// Package fatconfig is git-fat's configuration facade: a typed view over
// two tiers of real git configuration, modeled on the shape of the
// teacher's layered pkg/config.Manager (multiple backing stores,
// resolved in precedence order) but collapsed to the two tiers git-fat
// actually has, since the backing store here is git's own config
// grammar, not a bespoke JSON hierarchy.
//
// Tier 1 is the repository's tracked `.gitfat` file; tier 2 is ordinary
// `git config` (repository then global, as git itself resolves it).
// Lookups try tier 1 first and fall back to tier 2 exactly as the
// original's gitconfig_get(name, file) recurses once without `file` on a
// miss — this lets `rsync.sshuser` be set machine-wide in `~/.gitconfig`
// while `rsync.remote` stays checked into `.gitfat` per repository.
package fatconfig

import (
	"strings"

	"github.com/gitfat-go/gitfat/pkg/vcs"
)

// Config resolves git-fat's own settings through a VCS adapter.
type Config struct {
	v        vcs.VCS
	filePath string // absolute path to the tracked .gitfat file
}

// New constructs a Config backed by v, scoped to the .gitfat file at
// filePath (typically `<toplevel>/.gitfat`).
func New(v vcs.VCS, filePath string) Config {
	return Config{v: v, filePath: filePath}
}

// Get resolves key using the file-then-fallback precedence.
func (c Config) Get(key string) (string, bool, error) {
	if v, ok, err := c.v.ConfigGetFile(c.filePath, key); err != nil {
		return "", false, err
	} else if ok {
		return v, true, nil
	}
	return c.v.ConfigGet(key)
}

// Remote returns rsync.remote, the sync target host:path.
func (c Config) Remote() (string, bool, error) { return c.Get("rsync.remote") }

// SSHUser returns rsync.sshuser, if set.
func (c Config) SSHUser() (string, bool, error) { return c.Get("rsync.sshuser") }

// SSHPort returns rsync.sshport, if set.
func (c Config) SSHPort() (string, bool, error) { return c.Get("rsync.sshport") }

// Options returns rsync.options split on whitespace, ready to append to
// an rsync invocation's argument list — mirrors the original's
// `options.split(" ")` passthrough in get_rsync_command.
func (c Config) Options() ([]string, error) {
	raw, ok, err := c.Get("rsync.options")
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	return strings.Fields(raw), nil
}
