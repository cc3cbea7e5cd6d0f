package cli

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/metaltracker/internal/client/client"
	"github.com/dmitrijs2005/metaltracker/internal/client/models"
	"github.com/spf13/cobra"
)

var errAPIKeyMode = errors.New("an API key is configured; unset it to manage the stored session")

func (a *App) registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register [email]",
		Short: "Create an account and log in",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.auth.UsesAPIKey() {
				return errAPIKeyMode
			}
			email, password, err := a.credentials(args, true)
			if err != nil {
				return err
			}
			if err := a.auth.Register(cmd.Context(), email, password); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Registered and logged in as %s\n", email)
			return nil
		},
	}
}

func (a *App) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [email]",
		Short: "Log in with email and password",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.auth.UsesAPIKey() {
				return errAPIKeyMode
			}
			email, password, err := a.credentials(args, false)
			if err != nil {
				return err
			}
			if err := a.auth.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s\n", email)
			return nil
		},
	}
}

func (a *App) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.auth.UsesAPIKey() {
				return errAPIKeyMode
			}
			if err := a.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func (a *App) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current account and tier usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				user *models.User
				tier *models.TierInfo
			)
			err := a.auth.Do(ctx, func(auth client.Auth) error {
				var err error
				if user, err = a.api.Me(ctx, auth); err != nil {
					return err
				}
				tier, err = a.api.TierInfo(ctx, auth)
				return err
			})
			if err != nil {
				return err
			}

			if a.json {
				return a.printJSON(map[string]any{"user": user, "tier": tier})
			}
			method := "session"
			if a.auth.UsesAPIKey() {
				method = "api key"
			}
			fmt.Fprintf(a.out, "%s (id %d, via %s)\n", user.Email, user.ID, method)
			fmt.Fprintf(a.out, "Tier: %s, positions %d/%d\n", tier.Tier, tier.PositionsCount, tier.PositionsLimit)
			if user.IsAdmin {
				fmt.Fprintln(a.out, "Administrator")
			}
			return nil
		},
	}
}
