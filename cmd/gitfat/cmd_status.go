package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitfat-go/gitfat/cmd/ui"
	"github.com/gitfat-go/gitfat/pkg/placeholder"
	"github.com/gitfat-go/gitfat/pkg/scanner"
)

func newStatusCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show orphan and garbage objects",
		Long: `Prints two lists: orphan objects (referenced by history but missing from
the local store) and garbage objects (in the local store but no longer
referenced). With --all, also lists every object history currently
references, not just the orphans.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := newRepoContext(cmd.Context())
			if err != nil {
				return err
			}

			referenced, err := scanner.ReferencedObjects(cmd.Context(), rc.vcs, placeholder.MagicLengths(), scanner.Options{Rev: "HEAD", All: all})
			if err != nil {
				return err
			}
			catalog, err := rc.store.List()
			if err != nil {
				return err
			}
			catalogSet := make(map[placeholder.Digest]struct{}, len(catalog))
			for _, d := range catalog {
				catalogSet[d] = struct{}{}
			}

			var orphans []placeholder.Digest
			for d := range referenced {
				if _, have := catalogSet[d]; !have {
					orphans = append(orphans, d)
				}
			}
			var garbage []placeholder.Digest
			for _, d := range catalog {
				if _, ref := referenced[d]; !ref {
					garbage = append(garbage, d)
				}
			}

			fmt.Println(ui.Header(" git-fat status "))

			if len(orphans) > 0 {
				fmt.Println(ui.Section("Orphan objects:"))
				for _, d := range orphans {
					fmt.Printf("  %s  %s\n", ui.Yellow(ui.IconOrphan), ui.Cyan(d.String()))
				}
			}

			if len(garbage) > 0 {
				fmt.Println(ui.Section("Garbage objects:"))
				for _, d := range garbage {
					fmt.Printf("  %s  %s\n", ui.Red(ui.IconDeleted), ui.Cyan(d.String()))
				}
			}

			if all {
				fmt.Println(ui.Section("Referenced objects:"))
				for d := range referenced {
					fmt.Printf("  %s  %s\n", ui.Green(ui.IconCheck), ui.Cyan(d.String()))
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "also list every object referenced by history")
	return cmd
}
