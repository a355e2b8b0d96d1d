package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/smartscale/internal/config"
)

// ValidateResult is the JSON payload of the validate command.
type ValidateResult struct {
	Path       string `json:"path"`
	MAC        string `json:"mac"`
	Backend    string `json:"backend"`
	GatewayURL string `json:"gateway_url,omitempty"`
	Archive    string `json:"archive,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a config file",
		Long: `Validate a config file without touching storage or the network.

Unknown fields, bad durations and bad timezones are reported. Values
from the environment and the .env file are applied first, as at
startup.

Examples:
  smartscale validate scale.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			if err := config.LoadDotEnv(rootOpts.DotEnv); err != nil {
				return out.Fail(ExitCommandError, ErrCodeConfig, "failed to load credentials", err)
			}
			cfg, err := config.Load(args[0])
			if err != nil {
				return out.Fail(ExitFailure, ErrCodeConfig, fmt.Sprintf("invalid config %s", args[0]), err)
			}

			res := ValidateResult{
				Path:       args[0],
				MAC:        cfg.MAC,
				Backend:    cfg.Storage.Backend,
				GatewayURL: cfg.GatewayURL,
				Archive:    cfg.Archive.Bucket,
			}
			if rootOpts.Format == "json" {
				return out.Success(res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid (mac=%s, storage=%s)\n", res.Path, res.MAC, res.Backend)
			return nil
		},
	}
}
