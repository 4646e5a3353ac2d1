// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cursortrail/internal/config"
	"github.com/xkilldash9x/cursortrail/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// viperKeyAnnotation maps a flag onto the config key it overrides.
const viperKeyAnnotation = "cursortrail_viper_key"

// NewRootCommand builds a fresh command tree. Every invocation gets its own
// viper instance, so commands never share configuration state.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:           "cursortrail",
		Short:         "Record real cursor movement and replay it to drive the pointer like a person.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)
			if err := initializeConfig(cmd, v, cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "cursortrail"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("Starting cursortrail", zap.String("version", Version), zap.String("command", cmd.Name()))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./cursortrail.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "override logger.level")
	bindFlag(rootCmd.PersistentFlags(), "log-level", "logger.level")

	rootCmd.AddCommand(newRecordCmd())
	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newListCmd())
	return rootCmd
}

// Execute runs the command tree with ctx and logs a failure before returning it.
func Execute(ctx context.Context) error {
	defer observability.Sync()
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
	}
	return err
}

// bindFlag marks a flag as an override for a config key. The binding itself
// happens in initializeConfig, once the invocation's viper exists.
func bindFlag(flags *pflag.FlagSet, name, key string) {
	if err := flags.SetAnnotation(name, viperKeyAnnotation, []string{key}); err != nil {
		panic(fmt.Sprintf("binding unknown flag %q: %v", name, err))
	}
}

// initializeConfig reads the config file and the CURSORTRAIL_ environment,
// then lets explicitly set flags override both.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.cursortrail")
		v.SetConfigName("cursortrail")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("CURSORTRAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[viperKeyAnnotation]
		if len(keys) == 0 || !f.Changed || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(keys[0], f)
	})
	return bindErr
}

// configFrom returns the configuration loaded by the root command.
func configFrom(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}
