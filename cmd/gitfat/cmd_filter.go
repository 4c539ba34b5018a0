package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gitfat-go/gitfat/pkg/filter"
)

func newFilterCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "filter-clean",
		Short:  "Git clean filter: replace large-file content with a placeholder",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := newRepoContext(cmd.Context())
			if err != nil {
				return err
			}
			return filter.Clean(os.Stdin, os.Stdout, rc.store, rc.codec)
		},
	}
}

func newFilterSmudgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "filter-smudge",
		Short:  "Git smudge filter: expand a placeholder back to its real content",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := newRepoContext(cmd.Context())
			if err != nil {
				return err
			}
			return filter.Smudge(os.Stdin, os.Stdout, rc.store)
		},
	}
}
