// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pdiddy/html-converter/internal/secrets"
	"github.com/pdiddy/html-converter/pkg/types"
)

// Configuration keys. Each is also read from the environment under its
// lower-case name and its upper-case name.
const (
	keyDirSave        = "dir_save"
	keySaveIn         = "save_in"
	keySaveOptions    = "save_options"
	keySaveName       = "save_name"
	keyWebhook        = "webhook_notification"
	keyMode           = "mode"
	keyURLsFile       = "urls_file"
	keyBackend        = "backend"
	keyTimeout        = "conversion_timeout"
	keyRequestDelay   = "request_delay"
	keyUserAgent      = "user_agent"
	keyMaxRetries     = "max_retries"
	keyWebhookTimeout = "webhook_timeout"
	keyFrontmatter    = "markdown_frontmatter"
	keyLogLevel       = "log_level"
	keyLogJSON        = "log_json"
	keyLogFile        = "log_file"
	keyContainerRT    = "container_runtime"
)

var configKeys = []string{
	keyDirSave, keySaveIn, keySaveOptions, keySaveName, keyWebhook, keyMode,
	keyURLsFile, keyBackend, keyTimeout, keyRequestDelay, keyUserAgent,
	keyMaxRetries, keyWebhookTimeout, keyFrontmatter, keyLogLevel, keyLogJSON, keyLogFile,
	keyContainerRT,
}

// setDefaults registers the built-in values for every key.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()
	v.SetDefault(keyDirSave, d.Output.BaseDir)
	v.SetDefault(keySaveIn, "markdown,json")
	v.SetDefault(keySaveOptions, "markdown:markdown,json:document")
	v.SetDefault(keySaveName, d.Output.NameField)
	v.SetDefault(keyWebhook, "")
	v.SetDefault(keyMode, string(d.Mode))
	v.SetDefault(keyURLsFile, d.URLsFile)
	v.SetDefault(keyBackend, string(d.Conversion.Backend))
	v.SetDefault(keyTimeout, d.Conversion.Budget.String())
	v.SetDefault(keyRequestDelay, "0s")
	v.SetDefault(keyUserAgent, d.Conversion.UserAgent)
	v.SetDefault(keyMaxRetries, d.Conversion.MaxRetries)
	v.SetDefault(keyWebhookTimeout, d.Notify.Timeout.String())
	v.SetDefault(keyFrontmatter, false)
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogJSON, false)
	v.SetDefault(keyLogFile, "")
	v.SetDefault(keyContainerRT, "")
}

// bindEnv maps each key to its lower-case and upper-case environment
// variable, lower-case first.
func bindEnv(v *viper.Viper) error {
	for _, k := range configKeys {
		if err := v.BindEnv(k, k, strings.ToUpper(k)); err != nil {
			return fmt.Errorf("binding environment for %s: %w", k, err)
		}
	}
	return nil
}

// mergeDotEnv layers the known keys from a dotenv file over the loaded
// config file. Environment variables and flags still take precedence. A
// missing file is not an error.
func mergeDotEnv(v *viper.Viper, path string) error {
	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}

	values := make(map[string]any)
	for _, k := range configKeys {
		if env.IsSet(k) {
			values[k] = env.Get(k)
		}
	}
	if len(values) == 0 {
		return nil
	}
	return v.MergeConfigMap(values)
}

// buildRunConfig assembles the run configuration from v. The webhook
// endpoint falls back to the secrets store.
func buildRunConfig(v *viper.Viper, store secrets.Store) (types.RunConfig, error) {
	cfg := types.DefaultConfig()

	cfg.URLsFile = v.GetString(keyURLsFile)
	cfg.Mode = types.ParseMode(v.GetString(keyMode))

	budget, err := durationValue(v, keyTimeout)
	if err != nil {
		return cfg, err
	}
	delay, err := durationValue(v, keyRequestDelay)
	if err != nil {
		return cfg, err
	}
	webhookTimeout, err := durationValue(v, keyWebhookTimeout)
	if err != nil {
		return cfg, err
	}

	ua := v.GetString(keyUserAgent)
	cfg.Conversion.Backend = types.ConversionBackend(strings.ToLower(strings.TrimSpace(v.GetString(keyBackend))))
	cfg.Conversion.Budget = budget
	cfg.Conversion.Timeout = budget
	cfg.Conversion.RequestDelay = delay
	cfg.Conversion.UserAgent = ua
	cfg.Conversion.MaxRetries = v.GetInt(keyMaxRetries)
	cfg.Conversion.ContainerRuntime = strings.ToLower(strings.TrimSpace(v.GetString(keyContainerRT)))

	cfg.Output.BaseDir = strings.TrimLeft(strings.TrimSpace(v.GetString(keyDirSave)), "/")
	if cfg.Output.Formats, err = types.ParseFormats(listValue(v, keySaveIn)); err != nil {
		return cfg, fmt.Errorf("%s: %w", keySaveIn, err)
	}
	fields, err := types.ParseFields(listValue(v, keySaveOptions))
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", keySaveOptions, err)
	}
	for f, field := range fields {
		cfg.Output.Fields[f] = field
	}
	cfg.Output.NameField = strings.ToLower(strings.TrimSpace(v.GetString(keySaveName)))
	cfg.Output.Frontmatter = v.GetBool(keyFrontmatter)

	cfg.Notify.WebhookURL = store.Value(secrets.WebhookURL, strings.TrimSpace(v.GetString(keyWebhook)))
	cfg.Notify.Timeout = webhookTimeout
	cfg.Notify.UserAgent = ua

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// durationValue reads a duration. Bare numbers are seconds.
func durationValue(v *viper.Viper, key string) (time.Duration, error) {
	s := strings.TrimSpace(v.GetString(key))
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, s)
	}
	return d, nil
}

// listValue flattens a list or map setting into the comma-separated text
// form accepted by the parsers in pkg/types. YAML files may give either
// shape; the environment always gives a string.
func listValue(v *viper.Viper, key string) string {
	switch val := v.Get(key).(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return strings.Join(val, ",")
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ",")
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s:%v", k, val[k]))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(val)
	}
}

// newLogger returns a logger writing to stderr at level, as text with full
// timestamps or as JSON. A non-empty file adds a size-rotated copy.
func newLogger(level string, asJSON bool, file string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if file != "" {
		log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}))
	}
	if asJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", keyLogLevel, err)
	}
	log.SetLevel(lvl)
	return log, nil
}
