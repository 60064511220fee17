package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iksnae/sahayak/internal"
	"github.com/spf13/cobra"
)

var (
	schemesOffline  bool
	schemesCategory string
	schemesSearch   string
	schemesNewOnly  bool
	schemesClear    bool

	schemeRemote bool
)

var schemesCmd = &cobra.Command{
	Use:   "schemes",
	Short: "List government schemes",
	Long: `List government schemes from the Sahayak backend. The list is cached
locally; with --offline, or when the backend cannot be reached, the cached
list is shown instead.`,
	Args: cobra.NoArgs,
	RunE: runSchemesList,
}

var schemesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List government schemes (same as 'schemes')",
	Args:  cobra.NoArgs,
	RunE:  runSchemesList,
}

func runSchemesList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if schemesClear {
		if err := a.cache.ClearCache(); err != nil {
			internal.LogWarn("Failed to clear cache: %v", err)
		} else {
			internal.LogInfo("Cache cleared")
		}
	}

	if !schemesOffline {
		_ = internal.ShowProgress(cmd.Context(), "Fetching schemes", func() error {
			a.store.FetchSchemes(cmd.Context())
			return nil
		})
		if a.store.State().SchemesFetchedAt.IsZero() {
			internal.PrintWarning(out, "Could not reach the backend, showing cached schemes")
		}
	}

	st := a.store.State()
	schemes := st.Schemes
	if schemesClear && st.SchemesFetchedAt.IsZero() {
		// restored from the cache that was just cleared
		schemes = nil
	}
	displaySchemes(out, filterSchemes(schemes, schemesCategory, schemesSearch, schemesNewOnly))
	return nil
}

var schemesShowCmd = &cobra.Command{
	Use:   "show <scheme-id>",
	Short: "Show one scheme in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		id := args[0]
		scheme, ok := a.store.Scheme(id)
		if !ok || schemeRemote {
			scheme, err = a.store.FetchScheme(cmd.Context(), id)
			if errors.Is(err, internal.ErrSchemeNotFound) {
				return fmt.Errorf("scheme %q not found", id)
			}
			if err != nil {
				return fmt.Errorf("failed to load scheme: %s", describeError(err))
			}
		}
		displayScheme(cmd.OutOrStdout(), scheme)
		return nil
	},
}

var schemesRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Ask the backend to pull schemes from the official source",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		var message string
		steps := []internal.ProgressStep{
			{Message: "Refreshing from source", Fn: func() error {
				var err error
				message, err = a.store.RefreshSchemesFromSource(cmd.Context())
				return err
			}},
			{Message: "Fetching schemes", Fn: func() error {
				a.store.FetchSchemes(cmd.Context())
				if a.store.State().SchemesFetchedAt.IsZero() {
					return errors.New("scheme list could not be downloaded")
				}
				return nil
			}},
		}
		if err := internal.ShowProgressWithSteps(cmd.Context(), steps); err != nil {
			return fmt.Errorf("refresh failed: %s", describeError(err))
		}

		out := cmd.OutOrStdout()
		if message != "" {
			internal.PrintInfo(out, "%s", message)
		}
		internal.PrintSuccess(out, "%s schemes available", countStyle.Render(fmt.Sprint(len(a.store.State().Schemes))))
		return nil
	},
}

var schemesExplainCmd = &cobra.Command{
	Use:   "explain <scheme-id>",
	Short: "Get a plain-language explanation of a scheme",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		var text string
		err = internal.ShowProgress(cmd.Context(), "Asking Sahayak", func() error {
			var err error
			text, err = a.store.ExplainScheme(cmd.Context(), args[0])
			return err
		})
		if errors.Is(err, internal.ErrSchemeNotFound) || internal.KindOf(err) == internal.FailureNotFound {
			return fmt.Errorf("scheme %q not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to explain scheme: %s", describeError(err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

// filterSchemes applies the list filters; matching is case-insensitive
func filterSchemes(schemes []internal.Scheme, category, search string, newOnly bool) []internal.Scheme {
	category = strings.ToLower(strings.TrimSpace(category))
	search = strings.ToLower(strings.TrimSpace(search))

	var out []internal.Scheme
	for _, s := range schemes {
		if newOnly && !s.IsNew {
			continue
		}
		if category != "" && strings.ToLower(s.Category) != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(s.Title), search) &&
			!strings.Contains(strings.ToLower(s.Description), search) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func init() {
	rootCmd.AddCommand(schemesCmd)
	schemesCmd.AddCommand(schemesListCmd, schemesShowCmd, schemesRefreshCmd, schemesExplainCmd)

	for _, c := range []*cobra.Command{schemesCmd, schemesListCmd} {
		c.Flags().BoolVar(&schemesOffline, "offline", false, "Show the cached list without contacting the backend")
		c.Flags().StringVar(&schemesCategory, "category", "", "Only show schemes in this category")
		c.Flags().StringVarP(&schemesSearch, "search", "s", "", "Only show schemes whose title or description contains this text")
		c.Flags().BoolVar(&schemesNewOnly, "new", false, "Only show newly added schemes")
		c.Flags().BoolVar(&schemesClear, "clear-cache", false, "Clear the local scheme cache first")
	}

	schemesShowCmd.Flags().BoolVar(&schemeRemote, "remote", false, "Always load the scheme from the backend")
}
