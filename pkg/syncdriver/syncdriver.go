// Package syncdriver drives the external `rsync` copy tool that moves
// git-fat blobs to and from a remote, per spec.md §4.6. The object list
// is handed to rsync on stdin, NUL-delimited (`--from0 --files-from=-`),
// exactly as the original's get_rsync_command/cmd_push/cmd_pull build it.
package syncdriver

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/gitfat-go/gitfat/pkg/fatutil/errs"
	"github.com/gitfat-go/gitfat/pkg/fatutil/logger"
	"github.com/gitfat-go/gitfat/pkg/objectstore"
	"github.com/gitfat-go/gitfat/pkg/placeholder"
	"github.com/gitfat-go/gitfat/pkg/reconciler"
	"github.com/gitfat-go/gitfat/pkg/scanner"
	"github.com/gitfat-go/gitfat/pkg/vcs"
)

const pkgName = "syncdriver"

// RemoteConfig is the subset of fatconfig.Config the sync driver needs,
// narrowed to an interface so this package doesn't import fatconfig
// directly (fatconfig itself depends on vcs, not the other way around).
type RemoteConfig interface {
	Remote() (string, bool, error)
	SSHUser() (string, bool, error)
	SSHPort() (string, bool, error)
	Options() ([]string, error)
}

// Push copies every locally-stored blob referenced by history (or, if
// all is set, referenced by any ref) to the remote.
func Push(ctx context.Context, v vcs.VCS, store objectstore.Store, cfg RemoteConfig, all bool) error {
	referenced, err := scanner.ReferencedObjects(ctx, v, placeholder.MagicLengths(), scanner.Options{All: all, Rev: "HEAD"})
	if err != nil {
		return err
	}

	catalog, err := store.List()
	if err != nil {
		return err
	}
	catalogSet := make(map[placeholder.Digest]struct{}, len(catalog))
	for _, d := range catalog {
		catalogSet[d] = struct{}{}
	}

	var toSend []placeholder.Digest
	for d := range referenced {
		if _, have := catalogSet[d]; have {
			toSend = append(toSend, d)
		}
	}

	return runRsync(ctx, cfg, true, store.Dir(), toSend)
}

// Pull copies every blob referenced by the requested revisions/patterns
// that isn't already stored locally, then checks out whatever became
// available. revs mirrors the original's loose argument parsing: each
// 40-character entry is rev-parsed, and the last one that resolves wins
// (matching cmd_pull's overwrite-in-a-loop behavior) — callers typically
// pass at most one.
func Pull(ctx context.Context, v vcs.VCS, store objectstore.Store, cfg RemoteConfig, revs []string, patterns []string, all bool) error {
	rev := "HEAD"
	for _, r := range revs {
		if len(r) != 40 {
			continue
		}
		if resolved, err := v.RevParse(r); err == nil && resolved != "" {
			rev = resolved
		}
	}

	referenced, err := scanner.ReferencedObjects(ctx, v, placeholder.MagicLengths(), scanner.Options{All: all, Rev: rev})
	if err != nil {
		return err
	}

	catalog, err := store.List()
	if err != nil {
		return err
	}
	catalogSet := make(map[placeholder.Digest]struct{}, len(catalog))
	for _, d := range catalog {
		catalogSet[d] = struct{}{}
	}

	missing := make(map[placeholder.Digest]struct{})
	for d := range referenced {
		if _, have := catalogSet[d]; !have {
			missing[d] = struct{}{}
		}
	}

	var toFetch []placeholder.Digest
	if all {
		// --all ignores path scoping and fetches every missing referenced
		// object, matching the original's documented (if questionable)
		// behavior — see SPEC_FULL.md §7 Open Question 1.
		for d := range missing {
			toFetch = append(toFetch, d)
		}
	} else {
		orphans, err := reconciler.OrphanFiles(ctx, v, placeholder.MagicLengths(), patterns)
		if err != nil {
			return err
		}
		orphanDigests := make(map[placeholder.Digest]struct{}, len(orphans))
		for _, o := range orphans {
			orphanDigests[o.Digest] = struct{}{}
		}
		for d := range missing {
			if _, inScope := orphanDigests[d]; inScope {
				toFetch = append(toFetch, d)
			}
		}
	}

	if err := runRsync(ctx, cfg, false, store.Dir(), toFetch); err != nil {
		return err
	}

	_, err = reconciler.Checkout(ctx, v, store, false)
	return err
}

// runRsync drives `rsync --progress --ignore-existing --from0
// --files-from=- [--rsh=ssh ...] [options...] src/ dst/`, feeding
// digests as a NUL-delimited list on stdin.
func runRsync(ctx context.Context, cfg RemoteConfig, push bool, objDir string, digests []placeholder.Digest) error {
	remote, ok, err := cfg.Remote()
	if err != nil {
		return err
	}
	if !ok || remote == "" {
		return errs.New(pkgName, errs.CodeMissingConfig, "runRsync", "no rsync.remote configured", nil)
	}

	args := []string{"--progress", "--ignore-existing", "--from0", "--files-from=-"}

	rsh := sshRshOption(cfg)
	if rsh != "" {
		args = append(args, "--rsh="+rsh)
	}

	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	args = append(args, opts...)

	if push {
		args = append(args, objDir+"/", remote+"/")
	} else {
		args = append(args, remote+"/", objDir+"/")
	}

	logger.Debug("syncdriver: executing rsync", "push", push, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, "rsync", args...)
	var stdin bytes.Buffer
	for i, d := range digests {
		if i > 0 {
			stdin.WriteByte(0)
		}
		stdin.WriteString(string(d))
	}
	if len(digests) > 0 {
		stdin.WriteByte(0)
	}
	cmd.Stdin = &stdin

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return errs.WithExitCode(
				errs.New(pkgName, errs.CodeChildProcessFailure, "runRsync", strings.TrimSpace(stderr.String()), err),
				exitErr.ExitCode())
		}
		return errs.New(pkgName, errs.CodeChildProcessFailure, "runRsync", strings.TrimSpace(stderr.String()), err)
	}
	return nil
}

func sshRshOption(cfg RemoteConfig) string {
	user, hasUser, _ := cfg.SSHUser()
	port, hasPort, _ := cfg.SSHPort()
	if !hasUser && !hasPort {
		return ""
	}
	var b strings.Builder
	b.WriteString("ssh")
	if hasUser {
		b.WriteString(" -l ")
		b.WriteString(user)
	}
	if hasPort {
		b.WriteString(" -p ")
		b.WriteString(port)
	}
	return b.String()
}
