// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/html-converter/internal/secrets"
	"github.com/pdiddy/html-converter/pkg/types"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	return v
}

func TestBuildRunConfig_Defaults(t *testing.T) {
	cfg, err := buildRunConfig(newViper(t), secrets.Store{})
	require.NoError(t, err)

	assert.Equal(t, "urls.txt", cfg.URLsFile)
	assert.Equal(t, types.ModeDevelopment, cfg.Mode)
	assert.Equal(t, "scraping_data", cfg.Output.BaseDir)
	assert.Equal(t, []types.Format{types.FormatMarkdown, types.FormatJSON}, cfg.Output.Formats)
	assert.Equal(t, types.DefaultFields(), cfg.Output.Fields)
	assert.Equal(t, types.NameFromTitle, cfg.Output.NameField)
	assert.Equal(t, time.Minute, cfg.Conversion.Budget)
	assert.Equal(t, types.BackendReadability, cfg.Conversion.Backend)
	assert.Empty(t, cfg.Notify.WebhookURL)
	assert.Equal(t, 10*time.Second, cfg.Notify.Timeout)
}

func TestBuildRunConfig_Overrides(t *testing.T) {
	v := newViper(t)
	v.Set(keyDirSave, "/exports/pages")
	v.Set(keySaveIn, `["json"]`)
	v.Set(keySaveOptions, "json:text")
	v.Set(keySaveName, "URL")
	v.Set(keyMode, "Production")
	v.Set(keyTimeout, "90")
	v.Set(keyRequestDelay, "250ms")
	v.Set(keyWebhook, " https://hooks.example.com/run ")
	v.Set(keyBackend, "Markitdown")

	cfg, err := buildRunConfig(v, secrets.Store{})
	require.NoError(t, err)

	assert.Equal(t, "exports/pages", cfg.Output.BaseDir, "leading slash is stripped")
	assert.Equal(t, []types.Format{types.FormatJSON}, cfg.Output.Formats)
	assert.Equal(t, types.FieldText, cfg.Output.Fields[types.FormatJSON])
	assert.Equal(t, types.FieldMarkdown, cfg.Output.Fields[types.FormatMarkdown])
	assert.Equal(t, types.NameFromURL, cfg.Output.NameField)
	assert.Equal(t, types.ModeProduction, cfg.Mode)
	assert.Equal(t, 90*time.Second, cfg.Conversion.Budget)
	assert.Equal(t, 250*time.Millisecond, cfg.Conversion.RequestDelay)
	assert.Equal(t, "https://hooks.example.com/run", cfg.Notify.WebhookURL)
	assert.Equal(t, types.BackendMarkitdown, cfg.Conversion.Backend)
}

func TestBuildRunConfig_YAMLShapes(t *testing.T) {
	v := newViper(t)
	v.Set(keySaveIn, []any{"markdown"})
	v.Set(keySaveOptions, map[string]any{"markdown": "text"})

	cfg, err := buildRunConfig(v, secrets.Store{})
	require.NoError(t, err)
	assert.Equal(t, []types.Format{types.FormatMarkdown}, cfg.Output.Formats)
	assert.Equal(t, types.FieldText, cfg.Output.Fields[types.FormatMarkdown])
}

func TestBuildRunConfig_WebhookFromSecrets(t *testing.T) {
	store := secrets.Store{secrets.WebhookURL: "https://secret.example.com"}

	cfg, err := buildRunConfig(newViper(t), store)
	require.NoError(t, err)
	assert.Equal(t, "https://secret.example.com", cfg.Notify.WebhookURL)

	v := newViper(t)
	v.Set(keyWebhook, "https://configured.example.com")
	cfg, err = buildRunConfig(v, store)
	require.NoError(t, err)
	assert.Equal(t, "https://configured.example.com", cfg.Notify.WebhookURL)
}

func TestBuildRunConfig_Invalid(t *testing.T) {
	tests := []struct {
		key, value, errMsg string
	}{
		{keySaveIn, "pdf", "unsupported output format"},
		{keySaveIn, "", "at least one output format"},
		{keySaveOptions, "markdown:document", "cannot be written from the document"},
		{keySaveOptions, "json", "format:field"},
		{keyTimeout, "soon", "invalid duration"},
		{keyTimeout, "0", "must be positive"},
		{keyBackend, "pandoc", "unknown conversion backend"},
		{keySaveName, "slug", "save_name"},
		{keyDirSave, "/", "output directory"},
		{keyContainerRT, "lxc", "container_runtime"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			v := newViper(t)
			v.Set(tt.key, tt.value)
			_, err := buildRunConfig(v, secrets.Store{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestBindEnv(t *testing.T) {
	t.Setenv("MODE", "production")
	t.Setenv("dir_save", "lower")
	t.Setenv("DIR_SAVE", "upper")

	v := newViper(t)
	require.NoError(t, bindEnv(v))
	assert.Equal(t, "production", v.GetString(keyMode))
	assert.Equal(t, "lower", v.GetString(keyDirSave), "lower-case name wins")
}

func TestMergeDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DIR_SAVE=from_dotenv\nsave_in=json\nUNRELATED=1\n"), 0o644))

	v := newViper(t)
	v.SetConfigType("yaml")
	require.NoError(t, v.MergeConfigMap(map[string]any{keyDirSave: "from_yaml", keyMode: "production"}))
	require.NoError(t, mergeDotEnv(v, path))

	assert.Equal(t, "from_dotenv", v.GetString(keyDirSave), ".env overrides the config file")
	assert.Equal(t, "json", v.GetString(keySaveIn))
	assert.Equal(t, "production", v.GetString(keyMode), "config file keys not in .env survive")
	assert.False(t, v.IsSet("unrelated"))

	t.Setenv("dir_save", "from_environment")
	require.NoError(t, bindEnv(v))
	assert.Equal(t, "from_environment", v.GetString(keyDirSave), "environment overrides .env")
}

func TestMergeDotEnv_Missing(t *testing.T) {
	v := newViper(t)
	require.NoError(t, mergeDotEnv(v, filepath.Join(t.TempDir(), ".env")))
	assert.Equal(t, "scraping_data", v.GetString(keyDirSave))
}

func TestDurationValue(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"60", time.Minute},
		{"1.5", 1500 * time.Millisecond},
		{"2m", 2 * time.Minute},
		{"1m0s", time.Minute},
		{"", 0},
	}
	for _, tt := range tests {
		v := viper.New()
		v.Set("d", tt.in)
		got, err := durationValue(v, "d")
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNewLogger(t *testing.T) {
	log, err := newLogger("debug", false, "")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	require.IsType(t, &logrus.TextFormatter{}, log.Formatter)
	assert.Equal(t, "2006-01-02 15:04:05", log.Formatter.(*logrus.TextFormatter).TimestampFormat)

	log, err = newLogger("warn", true, "")
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	_, err = newLogger("loud", false, "")
	assert.Error(t, err)
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "html-converter.log")
	log, err := newLogger("info", true, path)
	require.NoError(t, err)

	log.WithField("stage", "convert").Info("hello")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"stage":"convert"`)
	assert.Contains(t, string(data), `"msg":"hello"`)
}
