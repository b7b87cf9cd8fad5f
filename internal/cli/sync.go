package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/existflow/oahu/internal/model"
	oahusync "github.com/existflow/oahu/internal/sync"
)

func newSyncCmd() *cobra.Command {
	var (
		kindName    string
		unpublished bool
	)

	cmd := &cobra.Command{
		Use:   "sync [id]",
		Short: "Refresh the cache from the remote service",
		Long: `Refresh cached records and their children from the remote service.

Without an id every published record of the kind is synced.

Examples:
  oahu sync                  # Sync all published projects
  oahu sync --unpublished    # Include unpublished projects
  oahu sync 4f2a...          # Sync one project
  oahu sync --kind videos v1 # Sync one video`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			kind, err := parseKind(kindName)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				res, err := a.engine.Sync(cmd.Context(), kind, args[0])
				if err != nil {
					return fmt.Errorf("sync failed: %w", err)
				}
				printSyncResult(out, res)
				return nil
			}

			var filters map[string]any
			if !unpublished {
				filters = map[string]any{"published": true}
			}
			fmt.Fprintf(out, "🔄 Syncing %s...\n", kind.Collection())
			bulk, err := a.engine.SyncAll(cmd.Context(), kind, filters)
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			for _, res := range bulk.Results {
				printSyncResult(out, res)
			}
			for id, err := range bulk.Failed {
				fmt.Fprintf(out, "%s %s: %v\n", ErrorStyle.Render("✗"), id, err)
			}
			fmt.Fprintf(out, "Synced %d, failed %d\n", len(bulk.Results), len(bulk.Failed))
			if len(bulk.Failed) > 0 {
				return fmt.Errorf("%d %s failed to sync", len(bulk.Failed), kind.Collection())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kindName, "kind", "k", string(model.KindProject), "Record kind to sync")
	cmd.Flags().BoolVar(&unpublished, "unpublished", false, "Include unpublished records in a bulk sync")
	return cmd
}

func printSyncResult(w io.Writer, res *oahusync.Result) {
	meta := res.Record.Meta()
	status := MutedStyle.Render("unchanged")
	if res.Changed {
		status = SuccessStyle.Render("updated")
	}
	label := meta.ID
	if meta.Slug != "" {
		label = fmt.Sprintf("%s (%s)", meta.Slug, meta.ID)
	}
	fmt.Fprintf(w, "✓ %s %s  rev=%s  children=%d  %s\n",
		res.Record.Kind(), label, shortRev(meta.Revision), res.Children, status)
	for _, s := range res.Skipped {
		fmt.Fprintf(w, "  %s skipped %s item %q (%s): %v\n",
			WarningStyle.Render("⚠"), s.Collection, s.ID, s.Discriminator, s.Err)
	}
}
