package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type appKey struct{}

// newRootCmd builds the command tree. The returned func releases whatever
// the command bootstrapped and must run after Execute, whether it failed
// or not.
func newRootCmd() (*cobra.Command, func()) {
	var (
		opts bootstrapOptions
		a    *app
	)

	root := &cobra.Command{
		Use:   "breeze",
		Short: "Read-only client for the ICICI Direct Breeze API",
		Long: `breeze authenticates against the ICICI Direct Breeze API and reads
account state: funds, portfolio holdings, open orders and order history.

Credentials are read from the environment (or a .env file):
  BREEZE_API_KEY, BREEZE_SECRET_KEY, BREEZE_SESSION_TOKEN, BREEZE_ACCOUNT_ID,
  BREEZE_BASE_URL (optional), ENVIRONMENT (optional)

Examples:
  breeze check
  breeze balance
  breeze orders --history --days 30`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to YAML client settings")
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "env files to load (default .env)")
	root.PersistentFlags().BoolVar(&opts.noStore, "no-store", false, "do not reuse or persist session tokens")

	root.AddCommand(
		newCheckCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newBalanceCmd(),
		newPortfolioCmd(),
		newOrdersCmd(),
		newConfigCmd(),
	)

	cleanup := func() {
		if a != nil {
			a.shutdown(context.Background())
		}
	}
	return root, cleanup
}

func appFrom(cmd *cobra.Command) *app {
	if cmd.Context() == nil {
		return nil
	}
	a, _ := cmd.Context().Value(appKey{}).(*app)
	return a
}

func printJSON(w io.Writer, title string, v any) error {
	fmt.Fprintf(w, "\n%s:\n", title)
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
