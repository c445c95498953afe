package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	cfgFile string
	logger  *slog.Logger
)

// legacyEnv maps config keys to the environment variables older deployments use
var legacyEnv = map[string]string{
	"server.host":            "HEL_HOST",
	"server.port":            "HEL_PORT",
	"storage.dir":            "HEL_DATA_DIR",
	"postgres.url":           "DB_URL",
	"defaults.name":          "HEL_USER_DEFAULT_NAME",
	"defaults.height":        "HEL_USER_DEFAULT_HEIGHT",
	"defaults.birthyear":     "HEL_USER_DEFAULT_BIRTHYEAR",
	"defaults.gender":        "HEL_USER_DEFAULT_GENDER",
	"defaults.min_tolerance": "HEL_MIN_TOLERANCE",
	"defaults.max_tolerance": "HEL_MAX_TOLERANCE",
}

var rootCmd = &cobra.Command{
	Use:          "helvetic",
	Short:        "Server for Aria-compatible Wi-Fi bathroom scales",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogger()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	logger = slog.Default()
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.helvetic/config.yaml)")
	rootCmd.PersistentFlags().String("log.level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log.file", "", "also write logs to this file")
	cobra.CheckErr(viper.BindPFlags(rootCmd.PersistentFlags()))

	viper.SetDefault("log.max_size_mb", 10)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.max_backups", 5)
	viper.SetDefault("log.compress", true)
}

func initConfig() {
	if err := godotenv.Load(); err == nil {
		logger.LogAttrs(context.Background(), slog.LevelDebug, "Loaded .env file")
	}
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("/etc/helvetic")
		viper.AddConfigPath("$HOME/.helvetic")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("HEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for key, env := range legacyEnv {
		cobra.CheckErr(viper.BindEnv(key, "HEL_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env))
	}
	if err := viper.ReadInConfig(); err == nil {
		logger.LogAttrs(context.Background(), slog.LevelInfo, "Using config file", slog.String("config", viper.ConfigFileUsed()))
	}
}

func initLogger() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log.level"))); err != nil {
		return err
	}
	var w io.Writer = os.Stderr
	if path := viper.GetString("log.file"); path != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    viper.GetInt("log.max_size_mb"),
			MaxAge:     viper.GetInt("log.max_age_days"),
			MaxBackups: viper.GetInt("log.max_backups"),
			Compress:   viper.GetBool("log.compress"),
		})
	}
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}
