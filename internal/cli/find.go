package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/existflow/oahu/internal/errs"
	"github.com/existflow/oahu/internal/index"
)

func newFindCmd() *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "find <kind> <id>",
		Short: "Show a record, fetching it on a cache miss",
		Long: `Show a record as JSON. A record missing from the cache is fetched from
the remote service and cached.

Examples:
  oahu find project 4f2a...
  oahu find videos v1 --local`,
		Args: cobra.ExactArgs(2),
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

			find := a.repo.Find
			if local {
				find = a.repo.Get
			}
			rec, err := find(cmd.Context(), kind, args[1])
			if errs.IsNotFound(err) {
				return fmt.Errorf("%s %s not found", kind, args[1])
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "Only look in the local cache")
	return cmd
}

func newFindByCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "find-by <kind> <key> <value>",
		Short: "Look up cached records by an indexed attribute",
		Long: `Look up cached records through their index, e.g. projects by slug or
resources by project_id. Prints the first match unless --all is given.

Examples:
  oahu find-by project slug my-film
  oahu find-by videos project_id 4f2a... --all`,
		Args: cobra.ExactArgs(3),
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

			recs, err := a.repo.FindTagged(cmd.Context(), kind, index.Tag(args[1], args[2]))
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				return fmt.Errorf("no %s with %s=%q", kind, args[1], args[2])
			}
			if all {
				return printJSON(cmd.OutOrStdout(), recs)
			}
			return printJSON(cmd.OutOrStdout(), recs[0])
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Print every match")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
