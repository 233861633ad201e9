package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/discussions/internal/app"
	"github.com/zjrosen/discussions/internal/config"
	"github.com/zjrosen/discussions/internal/log"
	"github.com/zjrosen/discussions/internal/presentation"
)

const localConfigPath = ".discussions/config.yaml"

var (
	version   = "dev"
	cfgFile   string
	dbPath    string
	debugFlag bool
	cfg       config.Config

	// configPath is the file flag edits are written to.
	configPath string
	logCleanup func()
)

var rootCmd = &cobra.Command{
	Use:   "discussions",
	Short: "Discussion signal handlers for courses and sites",
	Long: `Runs the side effects of forum and course events: response notifications
for new comments, profanity screening of posts, and the discussion-id map
kept in sync with published course structure.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logCleanup != nil {
			logCleanup()
			logCleanup = nil
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .discussions/config.yaml, then ~/.config/discussions/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "",
		"path to the SQLite database (overrides database.path)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"log at debug level to stderr or log.path")

	_ = viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("log.debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("database.path", defaults.Database.Path)
	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("discussion.course_publish_task_delay", defaults.Discussion.CoursePublishTaskDelay)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	viper.SetEnvPrefix("DISCUSSIONS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .discussions/config.yaml (current directory)
		// 2. ~/.config/discussions/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "discussions"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case cfgFile != "" && (os.IsNotExist(err) || errors.As(err, &notFound)):
			// An explicit path that does not exist yet is created on first write.
		case errors.As(err, &notFound):
			// No config file anywhere: create the default one locally.
			if writeErr := config.WriteDefaultConfig(localConfigPath); writeErr == nil {
				viper.SetConfigFile(localConfigPath)
				_ = viper.ReadInConfig()
			}
		default:
			fmt.Fprintf(os.Stderr, "warning: reading config: %v\n", err)
		}
	}

	cfg = config.Defaults()
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: parsing config: %v\n", err)
	}
	cfg.ExpandPaths()

	configPath = viper.ConfigFileUsed()
	if configPath == "" {
		configPath = cfgFile
	}
	if configPath == "" {
		configPath = localConfigPath
	}
}

func initLogging(*cobra.Command, []string) error {
	switch {
	case cfg.Log.Path != "":
		cleanup, err := log.Init(cfg.Log.Path)
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		logCleanup = cleanup
	case cfg.Log.Debug:
		log.InitWriter(os.Stderr)
	default:
		return nil
	}

	level := log.ParseLevel(cfg.Log.Level)
	if cfg.Log.Debug {
		level = log.LevelDebug
	}
	log.SetMinLevel(level)
	log.Debug(log.CatConfig, "Configuration loaded", "config", configPath, "db", cfg.Database.Path)
	return nil
}

// openApp starts the service for one command. Callers close it.
func openApp() (*app.App, error) {
	return app.New(cfg, configPath)
}

func formatter(cmd *cobra.Command) *presentation.Formatter {
	return presentation.NewFormatter(cmd.OutOrStdout())
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
