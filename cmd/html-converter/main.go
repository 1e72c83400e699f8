// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the html-converter CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/html-converter/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// logger is configured from log_level and log_json before any command runs.
	logger = logrus.New()

	// loadedSecrets holds values read from .secrets/ at startup.
	loadedSecrets secrets.Store
)

// rootCmd runs the batch when invoked without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "html-converter",
	Short: "Convert a list of web pages to Markdown and JSON",
	Long: `html-converter reads a list of URLs (urls.txt by default), converts each
page to Markdown and a JSON document, and writes the results under one
directory per primary domain (scraping_data/<domain>/).

Each URL gets at most one minute. Failures are recorded and the batch moves
on. When a webhook is configured a per-domain summary is POSTed at the end.
In production mode the URL file is emptied after the run.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(viper.GetString(keyLogLevel), viper.GetBool(keyLogJSON), viper.GetString(keyLogFile))
		if err != nil {
			return err
		}
		logger = l
		if f := viper.ConfigFileUsed(); f != "" {
			logger.WithField("file", f).Debug("using config file")
		}

		s, err := secrets.Load(secrets.DefaultDir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			logger.WithField("keys", s.Keys()).Info("loaded secrets")
		}
		return nil
	},
	RunE: runBatch,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./html-converter.yaml or ~/.config/html-converter/config.yaml)")
	pf.String("urls-file", "", "file listing one URL per line (default urls.txt)")
	pf.String("mode", "", "development or production; production empties the URL file after the run")
	pf.String("dir-save", "", "base output directory (default scraping_data)")
	pf.String("backend", "", "conversion backend: readability or markitdown")
	pf.Duration("timeout", 0, "per-URL conversion budget (default 1m)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.Bool("log-json", false, "emit logs as JSON")
	pf.String("log-file", "", "also write logs to this file, rotated by size")

	bindFlags := map[string]string{
		keyURLsFile: "urls-file",
		keyMode:     "mode",
		keyDirSave:  "dir-save",
		keyBackend:  "backend",
		keyTimeout:  "timeout",
		keyLogLevel: "log-level",
		keyLogJSON:  "log-json",
		keyLogFile:  "log-file",
	}
	for key, flag := range bindFlags {
		if err := viper.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// initConfig layers configuration sources: flags, environment, .env,
// config file, defaults.
func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("html-converter")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "html-converter"))
		}
	}

	setDefaults(viper.GetViper())
	if err := bindEnv(viper.GetViper()); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "warning: reading config:", err)
		}
	}
	if err := mergeDotEnv(viper.GetViper(), ".env"); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
