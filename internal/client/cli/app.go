// Package cli implements the commands of the Metal Tracker terminal client.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/dmitrijs2005/metaltracker/internal/client/client"
	"github.com/dmitrijs2005/metaltracker/internal/client/services"
	"github.com/spf13/cobra"
)

type App struct {
	api    *client.Client
	auth   *services.AuthService
	in     *bufio.Reader
	out    io.Writer
	noEcho func() ([]byte, error)
	json   bool
}

func NewApp(api *client.Client, auth *services.AuthService, in io.Reader, out io.Writer) *App {
	return &App{
		api:    api,
		auth:   auth,
		in:     bufio.NewReader(in),
		out:    out,
		noEcho: terminalPassword(in),
	}
}

// Execute runs the command named by args.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.out)
	return root.ExecuteContext(ctx)
}

func (a *App) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "metaltracker [flags] <command>",
		Short:         "Metal Tracker terminal client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&a.json, "json", false, "print raw JSON")

	root.AddCommand(
		a.registerCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.keysCmd(),
		a.positionsCmd(),
		a.summaryCmd(),
		a.pricesCmd(),
	)
	return root
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
