package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitfat-go/gitfat/cmd/ui"
	"github.com/gitfat-go/gitfat/pkg/syncdriver"
)

func newPushCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Copy locally-stored blobs referenced by history to the remote",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := newRepoContext(cmd.Context())
			if err != nil {
				return err
			}
			if err := syncdriver.Push(cmd.Context(), rc.vcs, rc.store, rc.config, all); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMessage("push complete"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "push objects referenced by every ref, not just HEAD")
	return cmd
}
