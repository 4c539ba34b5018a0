package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitfat-go/gitfat/cmd/ui"
	"github.com/gitfat-go/gitfat/pkg/syncdriver"
)

func newPullCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "pull [<rev>...] [-- <path>...]",
		Short: "Fetch missing blobs from the remote and check them out",
		Long: `Fetches every blob referenced by one revision that isn't already
stored locally, then checks out whatever became available. Of the given
revision arguments only 40-character ones are considered, and the last
of those that resolves is used; HEAD is used otherwise. Paths after --
limit the fetch to blobs of matching placeholder files in the working
tree, unless --all is given, in which case every missing object
referenced by any ref is fetched regardless of path.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := newRepoContext(cmd.Context())
			if err != nil {
				return err
			}

			var revs, patterns []string
			if dash := cmd.ArgsLenAtDash(); dash < 0 {
				revs = args
			} else {
				revs = args[:dash]
				patterns = args[dash:]
			}

			if err := syncdriver.Pull(cmd.Context(), rc.vcs, rc.store, rc.config, revs, patterns, all); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMessage("pull complete"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "fetch every missing referenced object, ignoring path scoping")
	return cmd
}
