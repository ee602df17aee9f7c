package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("BCI")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:           "brainflowd",
		Short:         "Online EEG decoding pipeline daemon",
		Long:          "brainflowd runs an online decoding session: acquisition source → ring buffer → windower → hook chain → decoder → decision sink, with Prometheus metrics on the side.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().String("config", "./data/config.yaml", "path to the session configuration file")
	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.AddCommand(
		newRunCmd(v),
		newValidateCmd(v),
		newStatsCmd(v),
	)
	return rootCmd
}
