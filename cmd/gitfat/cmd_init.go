package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitfat-go/gitfat/cmd/ui"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Configure the clean/smudge filters in this repository",
		Long: `Writes filter.fat.clean and filter.fat.smudge into this repository's
git config as "git-fat filter-clean" and "git-fat filter-smudge". Running
init again is a no-op.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := newRepoContext(cmd.Context())
			if err != nil {
				return err
			}

			if err := rc.vcs.ConfigSet("filter.fat.clean", "git-fat filter-clean"); err != nil {
				return err
			}
			if err := rc.vcs.ConfigSet("filter.fat.smudge", "git-fat filter-smudge"); err != nil {
				return err
			}

			fmt.Println(ui.SuccessMessage("git-fat filters configured"))
			return nil
		},
	}
}
