// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one batch: load the URL list, convert and write
// each page in order, then notify and clean up.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/html-converter/internal/convert"
	"github.com/pdiddy/html-converter/internal/notify"
	"github.com/pdiddy/html-converter/internal/output"
	"github.com/pdiddy/html-converter/internal/urls"
	"github.com/pdiddy/html-converter/pkg/types"
)

// Runner executes a batch run. It is used once per process.
type Runner struct {
	cfg     types.RunConfig
	driver  *convert.Driver
	writer  *output.Writer
	webhook *notify.Webhook
	log     logrus.FieldLogger
	now     func() time.Time
	newID   func() string
}

// New wires a Runner around conv using cfg. A nil webhook is configured
// when cfg carries no endpoint.
func New(cfg types.RunConfig, conv convert.Converter, log logrus.FieldLogger) *Runner {
	return &Runner{
		cfg:     cfg,
		driver:  convert.NewDriver(conv, cfg.Conversion, log),
		writer:  output.NewWriter(cfg.Output, log),
		webhook: notify.NewWebhook(cfg.Notify),
		log:     log,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Run processes the URL file once. Setup failures and cancellation of ctx
// are returned; conversion, write and notification failures are logged
// and reflected in the summary. Run returns a nil summary when the URL
// list is empty.
//
// A cancelled run stops before the next URL, still sends the summary of
// what was attempted and leaves the URL file untouched.
func (r *Runner) Run(ctx context.Context) (*notify.Summary, error) {
	runID := r.newID()
	log := r.log.WithField("run_id", runID)

	if err := os.MkdirAll(r.cfg.Output.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", r.cfg.Output.BaseDir, err)
	}

	entries, err := urls.Load(r.cfg.URLsFile)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		log.WithField("file", r.cfg.URLsFile).Info("no URLs to process")
		return nil, nil
	}
	log.WithFields(logrus.Fields{"file": r.cfg.URLsFile, "count": len(entries)}).Info("urls loaded")

	started := r.now()
	results := make([]types.ConversionResult, 0, len(entries))
	for i, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		log.WithFields(logrus.Fields{"url": entry.URL, "index": i + 1, "total": len(entries)}).Debug("processing")

		result := r.driver.Convert(ctx, entry)
		if result.Success {
			written, errs := r.writer.Write(result)
			result.Files = written
			for _, e := range errs {
				result.WriteErrors = append(result.WriteErrors, e.Error())
			}
		}
		results = append(results, result)
	}

	summary := notify.BuildSummary(runID, started, r.now(), results)
	// The webhook client's own timeout bounds delivery after an interrupt.
	r.notify(context.WithoutCancel(ctx), log, summary)

	fields := logrus.Fields{
		"attempted": summary.Attempted,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"duration":  notify.FormatDuration(notify.Seconds(summary.Duration())),
	}
	if err := ctx.Err(); err != nil {
		log.WithFields(fields).WithFields(logrus.Fields{
			"stage":     "cleanup",
			"remaining": len(entries) - len(results),
			"file":      r.cfg.URLsFile,
		}).Warn("run interrupted; urls file not cleared")
		return summary, fmt.Errorf("run interrupted: %w", err)
	}

	if err := Cleanup(r.cfg.URLsFile, r.cfg.Mode, log); err != nil {
		log.WithFields(logrus.Fields{"stage": "cleanup", "error": err}).Error("cleanup failed")
	}

	log.WithFields(fields).Info("run finished")
	return summary, nil
}

func (r *Runner) notify(ctx context.Context, log logrus.FieldLogger, summary *notify.Summary) {
	log = log.WithField("stage", "notify")
	if r.webhook == nil {
		log.Info("webhook not configured; skipping notification")
		return
	}
	if err := r.webhook.Send(ctx, summary); err != nil {
		log.WithField("error", err).Error("webhook notification failed")
		return
	}
	log.WithField("groups", len(summary.Groups)).Info("webhook notification sent")
}

// Cleanup truncates the URL file to zero bytes in production mode and
// leaves it untouched otherwise.
func Cleanup(path string, mode types.Mode, log logrus.FieldLogger) error {
	if mode != types.ModeProduction {
		log.WithField("file", path).Info("development mode; urls file not cleared")
		return nil
	}
	if err := os.Truncate(path, 0); err != nil {
		return fmt.Errorf("clearing %s: %w", path, err)
	}
	log.WithField("file", path).Info("urls file cleared")
	return nil
}
