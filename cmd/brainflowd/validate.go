package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/david0154/David-BCI/pkg/brainflow"
)

func newValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a configuration file without starting a session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := v.GetString("config")
			if _, err := brainflow.LoadConfig(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config %s looks good\n", path)
			return nil
		},
	}
}
