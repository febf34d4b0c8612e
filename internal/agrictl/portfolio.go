package agrictl

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	ents "github.com/ritheshan/agri/internal/model/entities"
	"github.com/ritheshan/agri/internal/services/profit"
)

// cropFile is the YAML layout read by portfolio:
//
//	crops:
//	  - name: Wheat
//	    area_acres: 2
//	    cost_per_acre: 25000
//	    expected_yield_per_acre: 200
//	    market_price_per_unit: 15
//	    season: Rabi
type cropFile struct {
	Crops []profit.CropDraft `yaml:"crops"`
}

type portfolioReport struct {
	Entries []ents.CropEntry     `json:"entries"`
	Metrics []profit.CropMetrics `json:"metrics"`
	Summary profit.Summary       `json:"summary"`
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func newPortfolioCmd(o *options) *cobra.Command {
	var sortBy string
	cmd := &cobra.Command{
		Use:   "portfolio FILE",
		Short: "Compute per-crop profit and the portfolio summary from a YAML crop list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sortBy != "" && sortBy != "profit" {
				return fmt.Errorf("--sort: unsupported value %q", sortBy)
			}
			var f cropFile
			if err := readYAML(args[0], &f); err != nil {
				return err
			}

			c := profit.NewComparator(nil)
			for i, d := range f.Crops {
				if _, err := c.Add(d); err != nil {
					var ve *profit.ValidationError
					if errors.As(err, &ve) {
						return fmt.Errorf("crops[%d].%s: %s", i, ve.Field, ve.Reason)
					}
					return err
				}
			}
			metrics, sum := c.Portfolio()
			if sortBy == "profit" {
				metrics = profit.RankByProfit(metrics)
			}
			o.log.Debug("portfolio computed", zap.Int("crops", c.Len()), zap.Float64("total_profit", sum.TotalProfit))

			report := portfolioReport{Entries: c.Entries(), Metrics: metrics, Summary: sum}
			return render(cmd.OutOrStdout(), o.output, report, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "CROP\tSEASON\tACRES\tCOST\tREVENUE\tPROFIT\tPROFIT %")
				for _, m := range metrics {
					fmt.Fprintf(tw, "%s\t%s\t%g\t%s\t%s\t%s\t%s\n",
						m.Name, m.Season, m.AreaAcres, money(m.TotalCost), money(m.TotalRevenue), money(m.Profit), pct(m.ProfitPercentage))
				}
				fmt.Fprintf(tw, "TOTAL\t\t\t%s\t%s\t%s\t%s\n",
					money(sum.TotalInvestment), money(sum.TotalRevenue), money(sum.TotalProfit), pct(sum.AvgProfitPercentage))
			})
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", "", `order rows; "profit" ranks by profit descending`)
	return cmd
}
