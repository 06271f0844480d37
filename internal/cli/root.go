// Package cli implements equivctl, a terminal client for the catalog search and
// equivalence selection used by the console.
package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/portal"
	"github.com/SIM-MBKM/mbkm-equivalence-api/pkg/config"
)

type globalOptions struct {
	baseURL string
	token   string
	timeout time.Duration
	verbose bool
	asJSON  bool
}

// NewRootCmd builds the equivctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "equivctl",
		Short: "Search the subject catalog and edit MBKM course equivalences",
		Long: `equivctl talks to the mobility portal API directly.

Portal settings default to PORTAL_BASE_URL, PORTAL_TOKEN and PORTAL_TIMEOUT
from the environment or a .env file; flags override them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("portal-url") {
				opts.baseURL = cfg.Portal.BaseURL
			}
			if !cmd.Flags().Changed("token") {
				opts.token = cfg.Portal.Token
			}
			if !cmd.Flags().Changed("timeout") {
				opts.timeout = cfg.Portal.Timeout
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.baseURL, "portal-url", "", "Portal API base URL")
	cmd.PersistentFlags().StringVar(&opts.token, "token", "", "Bearer token sent to the portal")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Portal request timeout")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Verbose logging")
	cmd.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "Print JSON instead of a table")

	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newDiffCmd(opts))

	return cmd
}

func (o *globalOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	logr, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logr
}

func (o *globalOptions) client(logr *zap.Logger) *portal.Client {
	return portal.NewClient(o.baseURL, o.token, o.timeout, portal.WithLogger(logr))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
