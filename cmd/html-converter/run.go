// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/html-converter/internal/convert"
	"github.com/pdiddy/html-converter/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Convert every URL in the URL file (same as the bare command)",
	Long: `Run processes the URL file once: each page is converted to Markdown and a
JSON document within the per-URL budget and written under the output
directory. Per-URL failures are logged and reported in the webhook summary;
they never change the exit status. An interrupt stops the run after the
current URL, sends the summary, keeps the URL file and exits non-zero.`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := buildRunConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conv, err := convert.New(ctx, cfg.Conversion)
	if err != nil {
		return fmt.Errorf("creating %s converter: %w", cfg.Conversion.Backend, err)
	}

	logger.WithFields(logrus.Fields{
		"urls_file": cfg.URLsFile,
		"dir_save":  cfg.Output.BaseDir,
		"formats":   cfg.Output.Formats,
		"backend":   cfg.Conversion.Backend,
		"mode":      cfg.Mode,
		"webhook":   cfg.Notify.WebhookURL != "",
	}).Info("starting run")

	_, err = pipeline.New(cfg, conv, logger).Run(ctx)
	return err
}
