package agrictl

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ritheshan/agri/internal/services/profit"
)

// selectionFile is the YAML layout read by analyze --file.
type selectionFile struct {
	Selections []profit.Selection `yaml:"selections"`
}

func newCatalogCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the crops known to analyze",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			crops := profit.Catalog()
			return render(cmd.OutOrStdout(), o.output, crops, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "ID\tNAME\tYIELD t/acre\tPERIOD\tDEMAND\tPRICE/kg")
				for _, c := range crops {
					fmt.Fprintf(tw, "%s\t%s\t%g\t%s\t%s\t%s\n", c.ID, c.Name, c.YieldTonnesPerAcre, c.GrowingPeriod, c.MarketDemand, money(c.DefaultPricePerKg))
				}
			})
		},
	}
}

func newAnalyzeCmd(o *options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "analyze [CROP_ID...]",
		Short: "Cost breakdown, margin and break-even price per crop",
		Long: "Analyzes catalog crops with default cost inputs, or the selections of a YAML file\n" +
			"given with --file. With more than one crop the best and worst by profit per acre are reported.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var selections []profit.Selection
			switch {
			case file != "" && len(args) > 0:
				return errors.New("give crop ids or --file, not both")
			case file != "":
				var f selectionFile
				if err := readYAML(file, &f); err != nil {
					return err
				}
				selections = f.Selections
			default:
				for _, id := range args {
					selections = append(selections, profit.Selection{CropID: id, Inputs: profit.DefaultInputs()})
				}
			}

			multi, err := profit.AnalyzeMany(selections)
			if errors.Is(err, profit.ErrNoSelections) {
				return errors.New("nothing to analyze: pass crop ids or --file")
			}
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), o.output, multi, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "CROP\tCOSTS\tREVENUE\tNET PROFIT\tMARGIN\tPER ACRE\tBREAK-EVEN/kg")
				for _, a := range multi.Crops {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", a.Crop.Name,
						money(a.TotalCosts), money(a.GrossRevenue), money(a.NetProfit), pct(a.ProfitMargin), money(a.ProfitPerAcre), money(a.BreakEvenPrice))
				}
				if len(multi.Crops) > 1 {
					fmt.Fprintf(tw, "TOTAL\t%s\t%s\t%s\t%s\t\t\n", money(multi.TotalCosts), money(multi.TotalRevenue), money(multi.TotalProfit), pct(multi.AvgProfitMargin))
					fmt.Fprintf(tw, "best: %s\tworst: %s\n", multi.Best.Crop.Name, multi.Worst.Crop.Name)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with selections and cost inputs")
	return cmd
}
