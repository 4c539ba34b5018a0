package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitfat-go/gitfat/cmd/ui"
	"github.com/gitfat-go/gitfat/pkg/maintenance"
)

func newGCCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Delete stored blobs nothing in history references any longer",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := newRepoContext(cmd.Context())
			if err != nil {
				return err
			}

			report, err := maintenance.GC(cmd.Context(), rc.vcs, rc.store)
			if err != nil {
				return err
			}

			var freed int64
			for _, r := range report.Removed {
				freed += r.Bytes
				fmt.Println(ui.FormatBlobLine(ui.StateRemoved, r.Digest.String(), ""))
			}
			fmt.Println(ui.GCSummary(len(report.Removed), freed))

			return nil
		},
	}
}
