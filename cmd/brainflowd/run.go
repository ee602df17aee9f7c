package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/david0154/David-BCI/pkg/brainflow"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start a decoding session from the configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			flow, err := brainflow.Conf(v.GetString("config"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return flow.Run(ctx)
		},
	}
}
