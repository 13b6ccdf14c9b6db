package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sociusfit/internal/client/api"
	"github.com/dmitrijs2005/sociusfit/internal/client/auth"
	"github.com/dmitrijs2005/sociusfit/internal/common"
	"github.com/dmitrijs2005/sociusfit/internal/cryptox"
	"github.com/spf13/cobra"
)

func loginCmd(app func() *App) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			addr, err := a.prompt.text(email, "Email")
			if err != nil {
				return err
			}
			password, err := a.prompt.password()
			if err != nil {
				return err
			}
			defer cryptox.Wipe(password)

			sess, err := a.session.Login(cmd.Context(), addr, string(password))
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(a.out, "Logged in as %s\n", displayName(sess.User, addr))
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func registerCmd(app func() *App) *cobra.Command {
	var firstName, lastName, email string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and store its session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			var err error
			if firstName, err = a.prompt.text(firstName, "First name"); err != nil {
				return err
			}
			if lastName, err = a.prompt.text(lastName, "Last name"); err != nil {
				return err
			}
			if email, err = a.prompt.text(email, "Email"); err != nil {
				return err
			}
			password, err := a.prompt.password()
			if err != nil {
				return err
			}
			defer cryptox.Wipe(password)

			sess, err := a.session.Register(cmd.Context(), firstName, lastName, email, string(password))
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(a.out, "Welcome, %s\n", displayName(sess.User, email))
			return nil
		},
	}
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func logoutCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			if err := a.session.Logout(cmd.Context()); err != nil {
				return describe(err)
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func statusCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			token, ok := a.session.GetToken()
			if !ok {
				fmt.Fprintln(a.out, "Not logged in")
				return nil
			}

			rec := a.store.Snapshot()
			fmt.Fprintf(a.out, "Logged in (user %s)\n", orUnknown(rec.UserID))
			if claims, ok := auth.PeekClaims(token); ok && !claims.ExpiresAt.IsZero() {
				fmt.Fprintf(a.out, "Access token expires %s\n", claims.ExpiresAt.Local().Format(time.RFC1123))
			}
			if rec.RefreshToken == "" {
				fmt.Fprintln(a.out, "No refresh token: you will be asked to log in when the access token expires")
			}
			return nil
		},
	}
}

func meCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in user's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			u, err := a.session.CurrentUser(cmd.Context())
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(a.out, "%s %s <%s>\n", u.FirstName, u.LastName, u.Email)
			if !u.ProfileComplete {
				fmt.Fprintln(a.out, "Profile incomplete")
			}
			return nil
		},
	}
}

// describe turns session errors into messages for the terminal.
func describe(err error) error {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr
	case errors.Is(err, common.ErrInvalidCredentials):
		return errors.New("wrong email or password")
	case errors.Is(err, common.ErrAlreadyExists):
		return errors.New("an account with this email already exists")
	case errors.Is(err, common.ErrNotAuthenticated), errors.Is(err, common.ErrSessionExpired):
		return errors.New("not logged in, run `sociusfit login`")
	case errors.Is(err, common.ErrNetwork):
		return fmt.Errorf("cannot reach the server: %w", err)
	case errors.Is(err, common.ErrStorageUnavailable):
		return fmt.Errorf("local session storage failed: %w", err)
	default:
		return err
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func displayName(u *api.User, fallback string) string {
	if u == nil || u.FirstName == "" {
		return fallback
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
