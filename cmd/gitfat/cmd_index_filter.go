package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitfat-go/gitfat/cmd/ui"
	"github.com/gitfat-go/gitfat/pkg/maintenance"
)

func newIndexFilterCmd() *cobra.Command {
	var manageAttributes bool

	cmd := &cobra.Command{
		Use:   "index-filter <list-file>",
		Short: "Rewrite listed blobs through the clean filter (history rewrite support)",
		Long: `Intended to run under a history rewrite (git filter-branch's
--index-filter, or an equivalent filter-repo callback). list-file names
one tracked path per line; every blob at that path in the current index
is replaced with its clean-filtered placeholder. Already-rewritten
blobs are memoized, so re-running the rewrite over the same history is
cheap.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := newRepoContext(cmd.Context())
			if err != nil {
				return err
			}

			if err := maintenance.IndexFilter(cmd.Context(), rc.vcs, rc.store, rc.codec, args[0], manageAttributes); err != nil {
				return err
			}

			fmt.Println(ui.SuccessMessage("index rewritten"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&manageAttributes, "manage-gitattributes", false, "also update .gitattributes for the rewritten paths")
	return cmd
}
