// Package cmd wires the draftflow CLI: cobra commands over the
// orchestrator, configured through viper.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/draftflow/draftflow/internal/config"
	"github.com/draftflow/draftflow/internal/errors"
)

// Exit codes. Blocked is not a failure: scripts polling a session treat
// exit 2 as "come back later".
const (
	ExitOK            = 0
	ExitFatal         = 1
	ExitAwaitingInput = 2
)

var rootCmd = &cobra.Command{
	Use:   "draftflow",
	Short: "Resumable content-generation workflow orchestrator",
	Long: `Draftflow drives a content task through plan, generate, review and
revise phases. Every stage boundary passes an approval gate, all state is
persisted as JSON on disk, and a session survives any number of process
restarts: step it, walk away, step it again.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps an Execute error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.IsAwaitingInput(err):
		return ExitAwaitingInput
	default:
		return ExitFatal
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/draftflow/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("DRAFTFLOW")
	// Replace dots with underscores for nested keys in env vars,
	// e.g. DRAFTFLOW_PROVIDER_TYPE for provider.type
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
