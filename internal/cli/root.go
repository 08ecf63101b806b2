package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clientflow/alertrunner/internal/config"
	"github.com/clientflow/alertrunner/internal/pkg/logger"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "alertrunner",
	Short: "Rule-driven tenant alerting engine",
	Long: `alertrunner evaluates alert rules against tenants on a schedule and in
response to billing and business events, records every dispatch, and
provisions default automation workflows for tenants.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file overriding environment settings (yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("db-driver", "", "database driver: sqlite or postgres")
	rootCmd.PersistentFlags().String("db-path", "", "sqlite database file")

	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("database.driver", rootCmd.PersistentFlags().Lookup("db-driver"))
	_ = viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db-path"))

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newTriggerCmd())
	rootCmd.AddCommand(newRulesCmd())
	rootCmd.AddCommand(newWorkflowsCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newConfigCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintln(os.Stderr, "Error reading config file:", err)
		}
	}

	viper.SetEnvPrefix("ALERTRUNNER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("output", "table")
}

// loadConfig reads the environment configuration and applies overrides from
// flags, ALERTRUNNER_* variables and the optional config file
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, viper.GetViper())
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config, v *viper.Viper) {
	setString := func(key string, dst *string) {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}

	setString("logging.level", &cfg.Logging.Level)
	setString("logging.format", &cfg.Logging.Format)
	setString("database.driver", &cfg.Database.Driver)
	setString("database.path", &cfg.Database.Path)
	setString("database.host", &cfg.Database.Host)
	setString("database.name", &cfg.Database.Name)
	setString("alert.schedule", &cfg.Alert.Schedule)
	setString("alert.timezone", &cfg.Alert.Timezone)
	setString("notification.app_url", &cfg.Notification.AppURL)

	if v.IsSet("server.port") {
		cfg.Server.Port = v.GetInt("server.port")
	}
	if v.IsSet("alert.dispatch_concurrency") {
		cfg.Alert.DispatchConcurrency = v.GetInt("alert.dispatch_concurrency")
	}
	if v.IsSet("alert.scheduler_enabled") {
		cfg.Alert.SchedulerEnabled = v.GetBool("alert.scheduler_enabled")
	}
	if v.IsSet("redis.enabled") {
		cfg.Redis.Enabled = v.GetBool("redis.enabled")
	}
	if v.IsSet("kafka.enabled") {
		cfg.Kafka.Enabled = v.GetBool("kafka.enabled")
	}
}

// newLogger writes to stderr so command output on stdout stays parseable
func newLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
}

func getOutputFormat() string {
	if outputFormat != "" && outputFormat != "table" {
		return outputFormat
	}
	return viper.GetString("output")
}
