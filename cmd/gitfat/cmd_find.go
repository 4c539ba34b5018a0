package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gitfat-go/gitfat/cmd/ui"
	"github.com/gitfat-go/gitfat/pkg/fatutil/errs"
	"github.com/gitfat-go/gitfat/pkg/maintenance"
)

func newFindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <threshold-bytes>",
		Short: "List paths that have ever held a blob larger than threshold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errs.New(pkgName, errs.CodeIOError, "find", "threshold must be an integer byte count", err)
			}

			rc, err := newRepoContext(cmd.Context())
			if err != nil {
				return err
			}

			results, err := maintenance.Find(cmd.Context(), rc.vcs, threshold)
			if err != nil {
				return err
			}

			for _, r := range results {
				fmt.Println(ui.FindLine(r.Path, r.MaxSize, r.Count))
			}

			return nil
		},
	}
}
