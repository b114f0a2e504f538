package main

import (
	"fmt"
	"text/tabwriter"

	"soulforge/internal/domain/outcome"

	"github.com/spf13/cobra"
)

func newCurveCmd(g *globalFlags) *cobra.Command {
	var (
		from, to int
		kind     string
	)
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Print the grow cost multiplier per level",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if from < 1 || to < from {
				return fmt.Errorf("invalid level range %d..%d", from, to)
			}
			cfg, err := g.tuning()
			if err != nil {
				return err
			}
			var costs map[string]int
			var keys []string
			if kind != "" {
				ck, ok := cfg.Grow.Kinds[kind]
				if !ok {
					return &outcome.ConfigLookupError{Section: "clone kind", Key: kind}
				}
				costs, keys = ck.Cost, ck.CostKeys()
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprint(tw, "LEVEL\tMULT")
			for _, k := range keys {
				fmt.Fprintf(tw, "\t%s", k)
			}
			fmt.Fprintln(tw)
			for level := from; level <= to; level++ {
				mult := outcome.CostMultiplier(level, cfg.Grow.CostCurve)
				fmt.Fprintf(tw, "%d\t%.4f", level, mult)
				scaled := outcome.ScaleCost(costs, mult)
				for _, k := range keys {
					fmt.Fprintf(tw, "\t%d", scaled[k])
				}
				fmt.Fprintln(tw)
			}
			return tw.Flush()
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&from, "from", 1, "first level")
	fl.IntVar(&to, "to", 30, "last level")
	fl.StringVar(&kind, "kind", "", "clone kind whose scaled cost to print")
	return cmd
}
