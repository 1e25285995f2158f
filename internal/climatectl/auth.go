package climatectl

import (
	"fmt"

	"github.com/spf13/cobra"

	"climatecentre/internal/session"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the bearer token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if email == "" {
			return fmt.Errorf("--email is required")
		}
		if password == "" {
			return fmt.Errorf("--password is required")
		}

		mgr, _, err := newManager(cmd.Context())
		if err != nil {
			return err
		}
		defer mgr.Close()

		if err := mgr.SignIn(cmd.Context(), email, password); err != nil {
			return fmt.Errorf("sign-in failed: %w", err)
		}

		st := mgr.State()
		fmt.Printf("Signed in as %s\n", st.User.Email)
		if st.IsAdmin {
			fmt.Println("Admin access granted.")
		} else {
			fmt.Println("This account has no admin access; content commands will be refused.")
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		mgr, _, err := newManager(cmd.Context())
		if err != nil {
			return err
		}
		defer mgr.Close()

		if mgr.State().User == nil {
			fmt.Println("Not signed in.")
			return nil
		}
		mgr.SignOut(cmd.Context())
		fmt.Println("Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		mgr, _, err := newManager(cmd.Context())
		if err != nil {
			return err
		}
		defer mgr.Close()

		st := mgr.State()
		switch session.Evaluate(st) {
		case session.StatusGranted:
			fmt.Printf("%s (admin)\n", st.User.Email)
		case session.StatusForbidden:
			fmt.Printf("%s\n", st.User.Email)
		default:
			fmt.Println("Not signed in.")
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().String("email", "", "account email (required)")
	loginCmd.Flags().String("password", "", "account password (required)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}
