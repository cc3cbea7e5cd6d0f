package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/metaltracker/internal/client/client"
	"github.com/dmitrijs2005/metaltracker/internal/client/models"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func eur(v float64) string {
	return humanize.FormatFloat("#,###.##", v) + " EUR"
}

func (a *App) positionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "List your positions with current values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var positions []models.Position
			err := a.auth.Do(ctx, func(auth client.Auth) error {
				var err error
				positions, err = a.api.ListPositions(ctx, auth)
				return err
			})
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(positions)
			}
			if len(positions) == 0 {
				fmt.Fprintln(a.out, "No positions")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tMETAL\tPRODUCT\tQTY\tWEIGHT\tPURCHASED\tPAID\tVALUE\tP/L")
			for _, p := range positions {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%g\t%.2f g\t%s\t%s\t%s\t%+.2f%%\n",
					p.ID, p.MetalType, p.ProductType, p.Quantity, p.WeightGrams, p.PurchaseDate,
					eur(p.PurchasePriceEUR), eur(p.CurrentValueEUR), p.ProfitLossPercent)
			}
			return tw.Flush()
		},
	}
}

func (a *App) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show portfolio totals per metal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var sum *models.Summary
			err := a.auth.Do(ctx, func(auth client.Auth) error {
				var err error
				sum, err = a.api.Summary(ctx, auth)
				return err
			})
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(sum)
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "METAL\tPOSITIONS\tWEIGHT\tPAID\tVALUE\tP/L")
			for _, m := range models.Metals {
				ms, ok := sum.ByMetal[m]
				if !ok || ms.PositionsCount == 0 {
					continue
				}
				fmt.Fprintf(tw, "%s\t%d\t%.2f g\t%s\t%s\t%+.2f%%\n",
					m, ms.PositionsCount, ms.WeightGrams, eur(ms.PurchaseValueEUR), eur(ms.CurrentValueEUR), ms.ProfitLossPercent)
			}
			fmt.Fprintf(tw, "total\t%d\t\t%s\t%s\t%+.2f%%\n",
				sum.PositionsCount, eur(sum.TotalPurchaseValueEUR), eur(sum.TotalCurrentValueEUR), sum.TotalProfitLossPercent)
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Prices: %s, %s\n", sum.PriceSource, humanize.Time(sum.LastUpdated))
			return nil
		},
	}
}

func (a *App) pricesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prices",
		Short: "Show current spot prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := a.api.Prices(cmd.Context())
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(q)
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "METAL\tPER GRAM\tPER OZ")
			for _, m := range models.Metals {
				p, ok := q.Prices[m]
				if !ok {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", m, eur(p.PerGramEUR), eur(p.PerOunceEUR))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Source: %s\n", q.Source)
			return nil
		},
	}
}
