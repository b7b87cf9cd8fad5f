package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/existflow/oahu/internal/logger"
	"github.com/existflow/oahu/internal/remote"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Act on behalf of a player account",
		Long: `Calls signed as a player account rather than as the consumer.

Examples:
  oahu account me u42
  oahu account like u42 v1
  oahu account event u42 share object_id=v1 network=twitter`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "me <account-id>",
		Short: "Show the account's profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := accountFor(args[0])
			if err != nil {
				return err
			}
			raw, err := acct.Me(cmd.Context())
			if err != nil {
				return err
			}
			return printRaw(cmd, raw)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "like <account-id> <object-id>",
		Short: "Like a project or resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := accountFor(args[0])
			if err != nil {
				return err
			}
			raw, err := acct.Like(cmd.Context(), args[1], nil)
			if err != nil {
				return err
			}
			return printRaw(cmd, raw)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "event <account-id> <action> [key=value...]",
		Short: "Record an event",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parsePairs(args[2:])
			if err != nil {
				return err
			}
			acct, err := accountFor(args[0])
			if err != nil {
				return err
			}
			raw, err := acct.Event(cmd.Context(), args[1], data, nil)
			if err != nil {
				return err
			}
			return printRaw(cmd, raw)
		},
	})

	return cmd
}

func accountFor(id string) (*remote.Account, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return remote.NewClient(remote.OptionsFromConfig(cfg), logger.L()).Account(id), nil
}

// parsePairs turns key=value arguments into event data
func parsePairs(pairs []string) (map[string]any, error) {
	data := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		data[k] = v
	}
	return data, nil
}

func printRaw(cmd *cobra.Command, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), v)
}
