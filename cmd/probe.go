package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/selimozcann/mainurlhunter/internal/output"
	"github.com/selimozcann/mainurlhunter/internal/util"
)

func newProbeCommand(v *viper.Viper, cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <url>",
		Short: "Print the redirect chain of a URL and the domain it resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v, *cfgFile)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			domain, err := util.NormalizeDomain(args[0])
			if err != nil {
				return fmt.Errorf("parse %q: %w", args[0], err)
			}
			res, err := newResolver(cfg, log)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			resolution, err := res.Resolve(cmd.Context(), domain)
			output.PrintChain(out, resolution.Trace)
			if err != nil {
				return err
			}
			if resolution.Domain == domain {
				fmt.Fprintf(out, "Unchanged: %s\n", domain)
			} else {
				fmt.Fprintf(out, "Moved: %s -> %s\n", domain, resolution.Domain)
			}
			return nil
		},
	}
}
