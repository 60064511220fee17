package cmd

import (
	"errors"
	"fmt"

	"github.com/iksnae/sahayak/internal"
	"github.com/spf13/cobra"
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check configuration, local state and backend reachability",
	Long: `Check the health of sahayak by verifying:
  • Configuration can be loaded
  • The local state database is readable
  • The Sahayak backend answers
  • Whether a session is active

This command is useful for debugging connection issues. Pass --verbose for
paths and backend details.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sectionStyle.Render("🔍 Sahayak Health Check"))
		fmt.Fprintln(out)

		// Step 1: Configuration
		fmt.Fprintln(out, infoStyle.Render("Step 1: Loading configuration..."))
		a, err := openApp(cmd.Context())
		if err != nil {
			internal.PrintError(out, "Configuration or state could not be loaded: %v", err)
			return errors.New("healthcheck failed")
		}
		defer a.Close()
		internal.PrintSuccess(out, "Configuration loaded")
		if verbose {
			fmt.Fprintf(out, "   Backend: %s\n", a.cfg.APIURL)
			fmt.Fprintf(out, "   State database: %s\n", a.persist.Path())
			fmt.Fprintf(out, "   Cache: %s\n", a.cache.GetCacheDir())
			fmt.Fprintf(out, "   Timeout: %s\n", a.cfg.RequestTimeout)
		}
		fmt.Fprintln(out)

		failed := false

		// Step 2: Local state
		fmt.Fprintln(out, infoStyle.Render("Step 2: Checking local state..."))
		if err := a.persist.Ping(cmd.Context()); err != nil {
			internal.PrintError(out, "State database unavailable: %v", err)
			failed = true
		} else {
			internal.PrintSuccess(out, "State database readable")
			if verbose {
				entries, err := a.persist.Entries(cmd.Context())
				if err != nil {
					internal.PrintWarning(out, "Could not list stored keys: %v", err)
				}
				for _, e := range entries {
					fmt.Fprintf(out, "   Stored: %s (updated %s)\n", e.Key, e.UpdatedAt.Format("2006-01-02 15:04"))
				}
			}
		}
		if schemes := a.store.State().Schemes; len(schemes) > 0 {
			internal.PrintSuccess(out, "%d scheme(s) cached", len(schemes))
		} else {
			internal.PrintWarning(out, "No cached schemes")
		}
		fmt.Fprintln(out)

		// Step 3: Backend
		fmt.Fprintln(out, infoStyle.Render("Step 3: Contacting backend..."))
		msg, err := a.client.Ping(cmd.Context())
		if err != nil {
			internal.PrintError(out, "Backend unreachable: %s", describeError(err))
			if verbose {
				fmt.Fprintf(out, "   %v\n", err)
			}
			failed = true
		} else {
			internal.PrintSuccess(out, "Backend reachable")
			if verbose && msg.Message != "" {
				fmt.Fprintf(out, "   %s\n", msg.Message)
			}
		}
		fmt.Fprintln(out)

		// Step 4: Session
		fmt.Fprintln(out, infoStyle.Render("Step 4: Checking session..."))
		st := a.store.State()
		if st.IsAuthenticated {
			internal.PrintSuccess(out, "Logged in as %s", st.User.Email)
			if !failed {
				if err := a.store.RefreshUser(cmd.Context()); err != nil {
					internal.PrintWarning(out, "Session could not be verified: %s", describeError(err))
				} else {
					internal.PrintSuccess(out, "Session verified")
				}
			}
		} else {
			internal.PrintWarning(out, "Not logged in")
		}
		fmt.Fprintf(out, "   Language: %s\n", st.Language.DisplayName())
		fmt.Fprintln(out)

		if failed {
			fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
			return errors.New("healthcheck failed")
		}
		fmt.Fprintln(out, successStyle.Render("✅ All checks passed"))
		internal.LogDebug("Healthcheck complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}
