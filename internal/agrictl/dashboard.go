package agrictl

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ritheshan/agri/internal/services/gateway/app"
	"github.com/ritheshan/agri/internal/services/session"
)

func newDashboardCmd(o *options) *cobra.Command {
	var lat, lon float64
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Weather, alerts and spray window for a location",
		Long:  "Without --lat/--lon the gateway falls back to its default location.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.tokens().Load()
			if errors.Is(err, session.ErrNoSession) {
				return errors.New("not logged in: run agrictl login")
			}
			if err != nil {
				return err
			}

			q := url.Values{}
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
				q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
			}

			gw := app.NewUpstream(app.UpstreamConfig{
				Name:    "gateway",
				BaseURL: o.apiURL,
				Timeout: o.timeout,
				Retry:   app.RetryPolicy{MaxAttempts: 2, Initial: 300 * time.Millisecond},
			}, nil, o.log)
			var data app.DashboardData
			err = gw.GetJSON(cmd.Context(), "/api/dashboard", q, s.Bearer(), &data)
			if errors.Is(err, app.ErrUnauthorized) {
				_ = o.tokens().Clear()
				return errors.New("session expired: run agrictl login")
			}
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), o.output, data, func(tw *tabwriter.Writer) { dashboardTable(tw, data) })
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	return cmd
}

func dashboardTable(tw *tabwriter.Writer, d app.DashboardData) {
	loc := d.Location
	fmt.Fprintf(tw, "location\t%.4f, %.4f (%s)\n", loc.Coordinates.Latitude, loc.Coordinates.Longitude, loc.Source)
	if w := d.Weather; w != nil {
		src := d.WeatherSource
		if src == "" {
			src = "backend"
		}
		fmt.Fprintf(tw, "weather\t%.1f°C, %.0f%% humidity, %.1f m/s wind, %.1f mm rain (%s)\n", w.Temp, w.Humidity, w.WindSpeed, w.Rain, src)
	} else {
		fmt.Fprintln(tw, "weather\tunavailable")
	}
	if d.Recommendations != "" {
		fmt.Fprintf(tw, "advice\t%s\n", d.Recommendations)
	}
	for i, a := range d.Alerts {
		label := ""
		if i == 0 {
			label = "alerts"
		}
		fmt.Fprintf(tw, "%s\t%s\n", label, a)
	}
	if sp := d.Spray; sp != nil {
		fmt.Fprintf(tw, "spray\t%s %s (confidence %.0f%%)\n", sp.Result, sp.Window, sp.Confidence*100)
	} else {
		fmt.Fprintln(tw, "spray\tunavailable")
	}
	if len(d.Degraded) > 0 {
		fmt.Fprintf(tw, "degraded\t%s\n", strings.Join(d.Degraded, ", "))
	}
}
