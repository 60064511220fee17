package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/sahayak/internal"
	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string

	signupName     string
	signupEmail    string
	signupPassword string
	signupMobile   string
	signupRole     string
	signupLanguage string

	whoamiRefresh bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to Sahayak",
	Long: `Log in with your email and password. The session is kept in the local
state database until you log out. If --password is omitted it is read from
standard input.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(loginEmail) == "" {
			return errors.New("--email is required")
		}
		password, err := readPassword(cmd, loginPassword)
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		err = internal.ShowProgress(cmd.Context(), "Logging in", func() error {
			return a.store.Login(cmd.Context(), strings.TrimSpace(loginEmail), password)
		})
		if err != nil {
			return fmt.Errorf("login failed: %s", describeError(err))
		}

		user := a.store.State().User
		internal.PrintSuccess(cmd.OutOrStdout(), "Logged in as %s (%s)", user.Name, user.Email)
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a Sahayak account",
	Long: `Create an account and log in to it.

Roles: farmer, student, self_employed, salaried, unemployed, other.
Languages: en, hi, mr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := internal.Registration{
			Name:     strings.TrimSpace(signupName),
			Email:    strings.TrimSpace(signupEmail),
			MobileNo: strings.TrimSpace(signupMobile),
			Role:     internal.Role(strings.ToLower(strings.TrimSpace(signupRole))),
		}
		switch {
		case reg.Name == "":
			return errors.New("--name is required")
		case reg.Email == "":
			return errors.New("--email is required")
		case reg.MobileNo == "":
			return errors.New("--mobile is required")
		}
		if signupLanguage != "" {
			lang, err := internal.ParseLanguage(signupLanguage)
			if err != nil {
				return err
			}
			reg.Language = lang
		}
		password, err := readPassword(cmd, signupPassword)
		if err != nil {
			return err
		}
		reg.Password = password

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		err = internal.ShowProgress(cmd.Context(), "Creating account", func() error {
			return a.store.Signup(cmd.Context(), reg)
		})
		if err != nil {
			return fmt.Errorf("signup failed: %s", describeError(err))
		}

		internal.PrintSuccess(cmd.OutOrStdout(), "Welcome, %s! You are now logged in.", a.store.State().User.Name)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget the saved session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		wasLoggedIn := a.store.State().IsAuthenticated
		a.store.Logout(cmd.Context())
		if wasLoggedIn {
			internal.PrintSuccess(cmd.OutOrStdout(), "Logged out")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
		}
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		if !a.store.State().IsAuthenticated {
			fmt.Fprintln(out, "Not logged in")
			return nil
		}
		if whoamiRefresh {
			if err := a.store.RefreshUser(cmd.Context()); err != nil {
				return fmt.Errorf("failed to refresh profile: %s", describeError(err))
			}
		}

		st := a.store.State()
		fmt.Fprintf(out, "%s %s\n", titleStyle.Render(st.User.Name), idStyle.Render("<"+st.User.Email+">"))
		return nil
	},
}

// readPassword returns flagValue or reads one line from stdin
func readPassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr())
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}

func init() {
	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, whoamiCmd)

	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Account password (read from stdin if omitted)")

	signupCmd.Flags().StringVar(&signupName, "name", "", "Full name")
	signupCmd.Flags().StringVarP(&signupEmail, "email", "e", "", "Email address")
	signupCmd.Flags().StringVarP(&signupPassword, "password", "p", "", "Password (read from stdin if omitted)")
	signupCmd.Flags().StringVar(&signupMobile, "mobile", "", "Mobile number")
	signupCmd.Flags().StringVar(&signupRole, "role", "", "Occupation (farmer, student, self_employed, salaried, unemployed, other)")
	signupCmd.Flags().StringVar(&signupLanguage, "language", "", "Preferred language (en, hi, mr)")

	whoamiCmd.Flags().BoolVar(&whoamiRefresh, "refresh", false, "Re-read the profile from the backend")
}
