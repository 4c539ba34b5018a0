package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitfat-go/gitfat/cmd/ui"
	"github.com/gitfat-go/gitfat/pkg/fatutil/errs"
	"github.com/gitfat-go/gitfat/pkg/maintenance"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Recompute every stored blob's digest and report mismatches",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := newRepoContext(cmd.Context())
			if err != nil {
				return err
			}

			report, err := maintenance.Verify(rc.store)
			if err != nil {
				return err
			}

			catalog, err := rc.store.List()
			if err != nil {
				return err
			}

			for _, c := range report.Corrupted {
				fmt.Println(ui.FormatBlobLine(ui.StateCorrupt, c.Digest.String(), "actual: "+c.DataHash.String()))
			}
			fmt.Println(ui.VerifySummary(len(catalog), len(report.Corrupted)))

			if len(report.Corrupted) > 0 {
				return errs.WithExitCode(errs.New(pkgName, errs.CodeCorruptBlob, "verify",
					fmt.Sprintf("%d object(s) failed verification", len(report.Corrupted)), nil), 1)
			}
			return nil
		},
	}
}
