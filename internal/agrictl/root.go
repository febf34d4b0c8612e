// Package agrictl is the command line front end: portfolio and per-crop
// analysis from YAML files, widget gesture replay, and the dashboard through
// the gateway with a saved login.
package agrictl

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ritheshan/agri/internal/services/session"
	"github.com/ritheshan/agri/pkg/logging"
)

// options is shared by every subcommand through the persistent flags.
type options struct {
	apiURL    string
	authURL   string
	tokenPath string
	output    string
	timeout   time.Duration
	logLevel  string

	log *zap.Logger
}

func (o *options) tokens() session.TokenFile { return session.TokenFile{Path: o.tokenPath} }

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// NewRootCmd builds the command tree. out receives command results; logs go to stderr.
func NewRootCmd(out io.Writer) *cobra.Command {
	o := &options{log: zap.NewNop()}

	root := &cobra.Command{
		Use:           "agrictl",
		Short:         "Crop profit planning and advisory dashboard from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch o.output {
			case "table", "json", "yaml":
			default:
				return fmt.Errorf("--output must be table, json or yaml, got %q", o.output)
			}
			log, err := logging.New("agrictl", o.logLevel, "console")
			if err != nil {
				return err
			}
			o.log = log
			return nil
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&o.apiURL, "api-url", envOr("AGRI_API_URL", "http://localhost:5009"), "gateway base URL")
	pf.StringVar(&o.authURL, "auth-url", envOr("AUTH_URL", envOr("BACKEND_URL", "http://localhost:8000")), "auth service base URL")
	pf.StringVar(&o.tokenPath, "token-file", session.DefaultTokenPath(), "where the login is kept")
	pf.StringVarP(&o.output, "output", "o", "table", "table, json or yaml")
	pf.DurationVar(&o.timeout, "timeout", 10*time.Second, "network timeout")
	pf.StringVar(&o.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newPortfolioCmd(o),
		newAnalyzeCmd(o),
		newCatalogCmd(o),
		newReplayCmd(o),
		newLoginCmd(o),
		newRegisterCmd(o),
		newLogoutCmd(o),
		newDashboardCmd(o),
	)
	return root
}
