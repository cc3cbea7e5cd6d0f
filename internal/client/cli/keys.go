package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/metaltracker/internal/client/client"
	"github.com/dmitrijs2005/metaltracker/internal/client/models"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (a *App) keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List your API keys",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				var keys []models.APIKey
				err := a.auth.Do(ctx, func(auth client.Auth) error {
					var err error
					keys, err = a.api.ListKeys(ctx, auth)
					return err
				})
				if err != nil {
					return err
				}
				if a.json {
					return a.printJSON(keys)
				}
				if len(keys) == 0 {
					fmt.Fprintln(a.out, "No API keys")
					return nil
				}
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tPREFIX\tCREATED\tLAST USED")
				for _, k := range keys {
					name, lastUsed := "-", "never"
					if k.Name != nil {
						name = *k.Name
					}
					if k.LastUsedAt != nil {
						lastUsed = humanize.Time(*k.LastUsedAt)
					}
					fmt.Fprintf(tw, "%d\t%s\t%s...\t%s\t%s\n", k.ID, name, k.KeyPrefix, k.CreatedAt.Format("2006-01-02"), lastUsed)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "create [label]",
			Short: "Create an API key; the key is printed once",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				var label string
				if len(args) == 1 {
					label = args[0]
				}
				var key *models.CreatedKey
				err := a.auth.Do(ctx, func(auth client.Auth) error {
					var err error
					key, err = a.api.CreateKey(ctx, auth, label)
					return err
				})
				if err != nil {
					return err
				}
				if a.json {
					return a.printJSON(key)
				}
				fmt.Fprintf(a.out, "Created key %d\n%s\n", key.ID, key.Key)
				fmt.Fprintln(a.out, "Store it now, it will not be shown again.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "revoke <id>",
			Short: "Revoke an API key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid key id %q", args[0])
				}
				err = a.auth.Do(ctx, func(auth client.Auth) error {
					return a.api.RevokeKey(ctx, auth, id)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Revoked key %d\n", id)
				return nil
			},
		},
	)
	return cmd
}
