package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitfat-go/gitfat/cmd/ui"
	"github.com/gitfat-go/gitfat/pkg/reconciler"
)

func newCheckoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Restore every placeholder whose blob is available locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := newRepoContext(cmd.Context())
			if err != nil {
				return err
			}

			result, err := reconciler.Checkout(cmd.Context(), rc.vcs, rc.store, true)
			if err != nil {
				return err
			}

			for _, o := range result.Restored {
				fmt.Println(ui.FormatBlobLine(ui.StateRestored, o.Digest.String(), o.Path))
			}
			for _, o := range result.Missing {
				fmt.Println(ui.FormatBlobLine(ui.StateOrphan, o.Digest.String(), o.Path))
			}

			return nil
		},
	}
}
