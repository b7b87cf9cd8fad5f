package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/existflow/oahu/internal/index"
	"github.com/existflow/oahu/internal/model"
)

func newListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list <kind>",
		Aliases: []string{"ls"},
		Short:   "List cached records of a kind",
		Long: `List every cached record of a kind.

Examples:
  oahu list projects
  oahu ls apps --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			recs, err := a.repo.FindTagged(cmd.Context(), kind, index.AllTag)
			if err != nil {
				return fmt.Errorf("failed to list %s: %w", kind.Collection(), err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, recs)
			}
			if len(recs) == 0 {
				fmt.Fprintf(out, "No cached %s. Fetch some with: oahu sync\n", kind.Collection())
				return nil
			}
			printRecords(out, kind, recs)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	return cmd
}

func printRecords(w io.Writer, kind model.Kind, recs []model.Record) {
	printHeader(w, fmt.Sprintf("%s (%d)", kind.Collection(), len(recs)))
	for _, rec := range recs {
		meta := rec.Meta()
		fmt.Fprintf(w, "  %-26s %-10s %s\n", meta.ID, shortRev(meta.Revision), recordLabel(rec))
	}
}

// recordLabel is the most readable name a record carries
func recordLabel(rec model.Record) string {
	meta := rec.Meta()
	var parts []string
	if p, ok := rec.(*model.Project); ok && p.Title != "" {
		parts = append(parts, p.Title)
	} else if meta.Name != "" {
		parts = append(parts, meta.Name)
	}
	if meta.Slug != "" {
		parts = append(parts, MutedStyle.Render("["+meta.Slug+"]"))
	}
	if !meta.UpdatedAt.IsZero() {
		parts = append(parts, MutedStyle.Render(meta.UpdatedAt.Format("2006-01-02")))
	}
	return strings.Join(parts, " ")
}
