package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iksnae/sahayak/internal"
	"github.com/spf13/cobra"
)

var (
	profileName     string
	profileMobile   string
	profileRole     string
	profileLanguage string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or edit your profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.requireLogin()
		if err != nil {
			return err
		}
		displayUser(cmd.OutOrStdout(), user, a.store.State().Language)
		return nil
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update profile fields",
	Long: `Update your name, mobile number, role or preferred language. Only the
flags you pass are changed. If the backend rejects the edit your previous
profile is kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if !flags.Changed("name") && !flags.Changed("mobile") && !flags.Changed("role") && !flags.Changed("language") {
			return errors.New("nothing to update, pass at least one of --name, --mobile, --role, --language")
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.requireLogin()
		if err != nil {
			return err
		}
		if flags.Changed("name") {
			if strings.TrimSpace(profileName) == "" {
				return errors.New("--name cannot be empty")
			}
			user.Name = strings.TrimSpace(profileName)
		}
		if flags.Changed("mobile") {
			user.MobileNo = strings.TrimSpace(profileMobile)
		}
		if flags.Changed("role") {
			user.Role = internal.Role(strings.ToLower(strings.TrimSpace(profileRole)))
		}
		if flags.Changed("language") {
			lang, err := internal.ParseLanguage(profileLanguage)
			if err != nil {
				return err
			}
			user.Language = lang
		}

		err = internal.ShowProgress(cmd.Context(), "Saving profile", func() error {
			return a.store.UpdateProfile(cmd.Context(), user)
		})
		if err != nil {
			return fmt.Errorf("profile update failed: %s", describeError(err))
		}

		internal.PrintSuccess(cmd.OutOrStdout(), "Profile updated")
		displayUser(cmd.OutOrStdout(), *a.store.State().User, a.store.State().Language)
		return nil
	},
}

var languageCmd = &cobra.Command{
	Use:   "language [en|hi|mr]",
	Short: "Show or change the interface language",
	Long: `Without an argument, print the current language. With one, switch to it.
The choice is remembered across logins.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		if len(args) == 0 {
			lang := a.store.State().Language
			fmt.Fprintf(out, "%s (%s)\n", lang.DisplayName(), lang)
			return nil
		}

		if err := a.store.SetLanguage(cmd.Context(), internal.Language(args[0])); err != nil {
			return err
		}
		lang := a.store.State().Language
		internal.PrintSuccess(out, "Language set to %s (%s)", lang.DisplayName(), lang)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd, languageCmd)
	profileCmd.AddCommand(profileUpdateCmd)

	profileUpdateCmd.Flags().StringVar(&profileName, "name", "", "Full name")
	profileUpdateCmd.Flags().StringVar(&profileMobile, "mobile", "", "Mobile number")
	profileUpdateCmd.Flags().StringVar(&profileRole, "role", "", "Occupation")
	profileUpdateCmd.Flags().StringVar(&profileLanguage, "language", "", "Preferred language (en, hi, mr)")
}
