package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gitfat-go/gitfat/pkg/fatconfig"
	"github.com/gitfat-go/gitfat/pkg/fatutil/errs"
	"github.com/gitfat-go/gitfat/pkg/objectstore"
	"github.com/gitfat-go/gitfat/pkg/placeholder"
	"github.com/gitfat-go/gitfat/pkg/vcs"
)

const pkgName = "main"

// repoContext bundles the handles every subcommand needs: a live VCS
// adapter rooted at the repository, the blob store under its git-dir,
// the placeholder codec (version resolved from GIT_FAT_VERSION), and
// the .gitfat config facade.
type repoContext struct {
	vcs    *vcs.ExecVCS
	store  *objectstore.FileStore
	codec  placeholder.Codec
	config fatconfig.Config
}

// newRepoContext resolves the current repository from the working
// directory and wires up every C1-C8 collaborator a subcommand needs.
func newRepoContext(ctx context.Context) (*repoContext, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errs.New(pkgName, errs.CodeIOError, "newRepoContext", "get working directory", err)
	}

	v := &vcs.ExecVCS{Dir: cwd}

	gitDir, err := v.GitDir()
	if err != nil {
		return nil, errs.New(pkgName, errs.CodeNotInitialized, "newRepoContext", "not a git repository", err)
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(cwd, gitDir)
	}

	toplevel, err := v.Toplevel()
	if err != nil {
		return nil, errs.New(pkgName, errs.CodeNotInitialized, "newRepoContext", "resolve toplevel", err)
	}

	store, err := objectstore.NewFileStore(filepath.Join(gitDir, "fat", "objects"))
	if err != nil {
		return nil, err
	}

	version := placeholder.V2
	if os.Getenv("GIT_FAT_VERSION") == "1" {
		version = placeholder.V1
	}

	cfg := fatconfig.New(v, filepath.Join(toplevel, ".gitfat"))

	return &repoContext{
		vcs:    v,
		store:  store,
		codec:  placeholder.NewCodec(version),
		config: cfg,
	}, nil
}
