package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/existflow/oahu/internal/config"
)

func newConfigCmd() *cobra.Command {
	var (
		endpoint    string
		appID       string
		clientID    string
		consumerID  string
		store       string
		storeDSN    string
		askSecret   bool
		serverToken string
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Long: `Show the current settings, or change them with flags. The consumer secret
is read from the terminal with --secret so it never lands in shell history.

Examples:
  oahu config
  oahu config --app-id 4f2a... --consumer-id c1 --client-id cl1 --secret
  oahu config --store postgres --store-dsn postgres://localhost/oahu`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			changed := false
			set := func(flag string, dst *string, v string) {
				if cmd.Flags().Changed(flag) {
					*dst = v
					changed = true
				}
			}
			set("endpoint", &cfg.Endpoint, endpoint)
			set("app-id", &cfg.AppID, appID)
			set("client-id", &cfg.ClientID, clientID)
			set("consumer-id", &cfg.ConsumerID, consumerID)
			set("store", &cfg.Store, store)
			set("store-dsn", &cfg.StoreDSN, storeDSN)
			set("server-token", &cfg.ServerToken, serverToken)

			if askSecret {
				secret, err := readSecret(cmd.InOrStdin(), out, "Consumer secret: ")
				if err != nil {
					return err
				}
				cfg.ConsumerSecret = secret
				changed = true
			}

			if changed {
				var err error
				if configPath != "" {
					err = cfg.SaveTo(configPath)
				} else {
					err = cfg.Save()
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(out, SuccessStyle.Render("✓ Settings saved"))
			}
			printConfig(out, cfg)
			return nil
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Remote service URL")
	cmd.Flags().StringVar(&appID, "app-id", "", "Application id")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Client id used in request signatures")
	cmd.Flags().StringVar(&consumerID, "consumer-id", "", "Consumer id")
	cmd.Flags().StringVar(&store, "store", "", "Local store: memory, sqlite, postgres or redis")
	cmd.Flags().StringVar(&storeDSN, "store-dsn", "", "Store location: file path, postgres URL or redis address")
	cmd.Flags().StringVar(&serverToken, "server-token", "", "Bearer token required by the mirror server")
	cmd.Flags().BoolVar(&askSecret, "secret", false, "Prompt for the consumer secret")
	return cmd
}

// readSecret reads a line without echo when in is a terminal
func readSecret(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read secret: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func printConfig(w io.Writer, c *config.Config) {
	secret := MutedStyle.Render("(not set)")
	if c.ConsumerSecret != "" {
		secret = "********"
	}
	printHeader(w, "Settings")
	rows := [][2]string{
		{"endpoint", c.Endpoint},
		{"app_id", c.AppID},
		{"client_id", c.ClientID},
		{"consumer_id", c.ConsumerID},
		{"consumer_secret", secret},
		{"header_prefix", c.HeaderPrefix},
		{"timeout", c.Timeout.String()},
		{"store", c.Store},
		{"store_dsn", c.StoreDSN},
		{"listen_addr", c.ListenAddr},
		{"log_level", c.LogLevel},
		{"log_file", c.LogFile},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %-16s %s\n", r[0], r[1])
	}
}
