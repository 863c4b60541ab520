package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"breeze-trading-bot/internal/broker/breeze"
	"breeze-trading-bot/internal/store"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			s, err := a.login(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Authenticated as %s, session valid until %s\n",
				s.UserID, s.ExpiresAt().Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Terminate the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			if _, ok := a.sessions.Restore(cmd.Context(), a.creds); !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No active session")
				return nil
			}
			if err := a.logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show account funds",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			if _, err := a.ensureSession(cmd.Context()); err != nil {
				return err
			}
			balance, err := a.account.GetAccountBalance(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), "Account Balance", balance)
		},
	}
}

func newPortfolioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio",
		Short: "Show portfolio holdings",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			if _, err := a.ensureSession(cmd.Context()); err != nil {
				return err
			}
			holdings, err := a.account.GetPortfolio(cmd.Context())
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), "Portfolio Holdings", holdings); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Total holdings: %d\n", len(holdings))
			return nil
		},
	}
}

func newOrdersCmd() *cobra.Command {
	var (
		history bool
		days    int
	)
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Show open orders, or order history with --history",
		Long: `List orders that are still working (PENDING, OPEN, PARTIALLY_FILLED).

With --history, list every order placed in the last --days days.

Example:
  breeze orders --history --days 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			if _, err := a.ensureSession(cmd.Context()); err != nil {
				return err
			}
			if history {
				orders, err := a.account.GetOrderHistory(cmd.Context(), days)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), fmt.Sprintf("Order History (%d days)", days), orders); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Total orders: %d\n", len(orders))
				return nil
			}
			orders, err := a.account.GetOpenOrders(cmd.Context())
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), "Open Orders", orders); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Total open orders: %d\n", len(orders))
			return nil
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "show order history instead of open orders")
	cmd.Flags().IntVar(&days, "days", breeze.DefaultHistoryDays, "history look-back in days")
	return cmd
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the non-secret configuration and validate it",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			w := cmd.OutOrStdout()
			printCredentials(w, a)
			fmt.Fprintf(w, "  http_timeout: %s\n", a.cfg.HTTP.Timeout)
			fmt.Fprintf(w, "  session_validity: %s\n", a.cfg.Session.Validity)
			fmt.Fprintf(w, "  session_store: %t\n", a.store != nil)
			return store.ValidateCredentials(a.creds)
		},
	}
}

// newCheckCmd runs the end-to-end sequence: configuration, authentication,
// balance, portfolio, open orders, order history. Logout always runs once
// authentication succeeded.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run the full read-only API check",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			section(w, "Testing Configuration")
			printCredentials(w, a)
			if err := store.ValidateCredentials(a.creds); err != nil {
				fmt.Fprintln(w, "❌ Configuration is invalid")
				return err
			}
			fmt.Fprintln(w, "✅ Configuration is valid")

			section(w, "Testing Authentication")
			if _, err := a.login(ctx); err != nil {
				fmt.Fprintln(w, "❌ Authentication failed!")
				return err
			}
			fmt.Fprintln(w, "✅ Authentication successful!")

			defer func() {
				section(w, "Logging Out")
				if logoutErr := a.logout(ctx); logoutErr != nil {
					fmt.Fprintf(w, "⚠️  Remote logout failed: %v\n", logoutErr)
					return
				}
				fmt.Fprintln(w, "✅ Logged out")
			}()

			var failed []string
			step := func(title string, fn func() error) {
				section(w, title)
				if stepErr := fn(); stepErr != nil {
					fmt.Fprintf(w, "❌ %v\n", stepErr)
					failed = append(failed, title)
				}
			}

			step("Testing Account Balance", func() error {
				balance, err := a.account.GetAccountBalance(ctx)
				if err != nil {
					return err
				}
				return printJSON(w, "Account Balance", balance)
			})
			step("Testing Portfolio", func() error {
				holdings, err := a.account.GetPortfolio(ctx)
				if err != nil {
					return err
				}
				if err := printJSON(w, "Portfolio Holdings", holdings); err != nil {
					return err
				}
				fmt.Fprintf(w, "Total holdings: %d\n", len(holdings))
				return nil
			})
			step("Testing Open Orders", func() error {
				orders, err := a.account.GetOpenOrders(ctx)
				if err != nil {
					return err
				}
				if err := printJSON(w, "Open Orders", orders); err != nil {
					return err
				}
				fmt.Fprintf(w, "Total open orders: %d\n", len(orders))
				return nil
			})
			step("Testing Order History", func() error {
				orders, err := a.account.GetOrderHistory(ctx, breeze.DefaultHistoryDays)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "Orders in the last %d days: %d\n", breeze.DefaultHistoryDays, len(orders))
				return nil
			})

			if len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed: %s", len(failed), strings.Join(failed, ", "))
			}
			return nil
		},
	}
}

func section(w io.Writer, title string) {
	line := strings.Repeat("=", 50)
	fmt.Fprintf(w, "\n%s\n %s\n%s\n", line, title, line)
}

func printCredentials(w io.Writer, a *app) {
	fmt.Fprintln(w, "Configuration loaded:")
	red := a.creds.Redacted()
	for _, k := range []string{"api_key", "account_id", "base_url", "environment", "session_token"} {
		fmt.Fprintf(w, "  %s: %s\n", k, red[k])
	}
}
