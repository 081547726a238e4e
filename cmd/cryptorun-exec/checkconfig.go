package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sawpanic/cryptorun-execcore/internal/config"
)

func newCheckConfigCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Validate a settings bundle without starting the engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(path)
			if err != nil {
				fmt.Fprintln(os.Stderr, "config invalid:", err)
				os.Exit(exitConfigInvalid)
			}
			if err := config.Validate(settings); err != nil {
				fmt.Fprintln(os.Stderr, "config invalid:", err)
				os.Exit(exitConfigInvalid)
			}
			fmt.Fprintf(os.Stdout, "config ok: venue=%s risk.max_position_usd=%.2f\n",
				settings.Venue.Name, settings.Risk.MaxPositionUSD)
			os.Exit(exitOK)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "config", "config.yaml", "path to the YAML settings bundle")
	return cmd
}
