package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/mrsinham/medbrain/internal/config"
)

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print the session token to export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")

			if email == "" || password == "" {
				if err := promptCredentials(&email, &password); err != nil {
					return err
				}
			}

			a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("signing in: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(cmd.ErrOrStderr(), "Signed in as %s\n", id.DisplayName())
			fmt.Fprintf(out, "export %s_TOKEN=%s\n", config.EnvPrefix, id.Token)
			return nil
		},
	}
	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password (prompted when omitted)")
	return cmd
}

// promptCredentials asks for whatever is missing.
func promptCredentials(email, password *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(email).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("email is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(password).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("password is required")
					}
					return nil
				}),
		),
	).WithShowHelp(false)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("sign in cancelled")
		}
		return err
	}
	return nil
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who is signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.identity(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", id.DisplayName(), id.Email)
			if !id.ExpiresAt.IsZero() {
				fmt.Fprintf(out, "Session expires %s (in %s)\n",
					id.ExpiresAt.Local().Format(time.RFC1123),
					time.Until(id.ExpiresAt).Round(time.Minute))
			}
			return nil
		},
	}
}
