package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/existflow/oahu/internal/errs"
)

func newDestroyCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "destroy <kind> <id>",
		Aliases: []string{"delete", "rm"},
		Short:   "Remove a record from the local cache",
		Long: `Remove a record from the local cache and its index. Children stay
cached; the remote service is not touched.

Examples:
  oahu destroy app a1
  oahu rm videos v1 --force`,
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

			ctx := cmd.Context()
			rec, err := a.repo.Get(ctx, kind, args[1])
			if errs.IsNotFound(err) {
				return fmt.Errorf("%s %s is not cached", kind, args[1])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !force {
				fmt.Fprintf(out, "About to remove %s %s %s\n", kind, args[1], recordLabel(rec))
				if !confirm(cmd.InOrStdin(), out, "Are you sure? [y/N]: ") {
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
			}

			if err := a.repo.Destroy(ctx, rec); err != nil {
				return fmt.Errorf("failed to remove %s %s: %w", kind, args[1], err)
			}
			fmt.Fprintf(out, "🗑️  Removed %s %s\n", kind, args[1])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Do not ask for confirmation")
	return cmd
}

// confirm asks a yes/no question, defaulting to no
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
