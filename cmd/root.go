package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/encore-e2e/internal/config"
	"github.com/xkilldash9x/encore-e2e/internal/observability"
)

// Version is stamped at build time.
var Version = "dev"

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "encore-e2e",
	Short:         "Encore drives a web application through an end-to-end browser scenario.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(); err != nil {
			return fmt.Errorf("failed to initialize configuration: %w", err)
		}

		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "encore-e2e"})
			return err
		}
		loadedConfig = cfg

		observability.InitializeLogger(cfg.Logger)
		observability.GetLogger().Info("Starting encore-e2e", zap.String("version", Version))
		return nil
	},
}

// loadedConfig is populated by the root command's PersistentPreRunE and
// consumed by subcommands.
var loadedConfig *config.Config

// Execute adds all child commands to the root command and runs it with the
// provided context for graceful shutdown.
func Execute(ctx context.Context) error {
	rootCmd.AddCommand(newRunCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			// context.Canceled during graceful shutdown is expected.
			if ctx.Err() == nil {
				logger.Error("Command execution failed", zap.Error(err))
			}
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
}

// initializeConfig reads in the config file and ENV variables if set.
func initializeConfig() error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ENCORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// The target URL and database URL are the values most commonly set
	// from CI; bind them explicitly.
	_ = viper.BindEnv("target.base_url", "ENCORE_TARGET_BASE_URL", "TEST_BASE_URL")
	_ = viper.BindEnv("store.url", "ENCORE_STORE_URL")

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; parsing failures are not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}
