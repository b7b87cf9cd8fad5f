package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/existflow/oahu/internal/index"
	"github.com/existflow/oahu/internal/model"
)

func newClearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear [kind...]",
		Short: "Remove cached records",
		Long: `Remove every cached record of the given kinds, or of all kinds when none
is given. The remote service is not touched.

Examples:
  oahu clear
  oahu clear videos images --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := model.Kinds()
			if len(args) > 0 {
				kinds = kinds[:0]
				for _, name := range args {
					k, err := parseKind(name)
					if err != nil {
						return err
					}
					kinds = append(kinds, k)
				}
			}

			out := cmd.OutOrStdout()
			if !force && !confirm(cmd.InOrStdin(), out, "Are you sure you want to clear the cache? (y/N): ") {
				fmt.Fprintln(out, "Aborted.")
				return nil
			}

			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			for _, kind := range kinds {
				recs, err := a.repo.FindTagged(ctx, kind, index.AllTag)
				if err != nil {
					return fmt.Errorf("failed to list %s: %w", kind.Collection(), err)
				}
				for _, rec := range recs {
					if err := a.repo.Destroy(ctx, rec); err != nil {
						return fmt.Errorf("failed to remove %s %s: %w", kind, rec.Meta().ID, err)
					}
				}
				fmt.Fprintf(out, "✓ Cleared %d %s\n", len(recs), kind.Collection())
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Do not ask for confirmation")
	return cmd
}
