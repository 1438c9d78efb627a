// Package config resolves process-level settings for cdd hooks and notifiers.
// Values come from built-in defaults overridden by CDD_* environment
// variables. Project settings live in .cdd/config.yaml and are handled by the
// project package.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "CDD"

// Settings holds the resolved settings for one invocation.
type Settings struct {
	Debug                  bool   `mapstructure:"debug"`
	StdinTimeoutMS         int    `mapstructure:"stdin_timeout_ms"`
	NotifierStdinTimeoutMS int    `mapstructure:"notifier_stdin_timeout_ms"`
	HTTPTimeoutMS          int    `mapstructure:"http_timeout_ms"`
	LockTimeoutMS          int    `mapstructure:"lock_timeout_ms"`
	ClaudeHome             string `mapstructure:"claude_home"`
	TelegramBotToken       string `mapstructure:"telegram_bot_token"`
	TelegramChatID         string `mapstructure:"telegram_chat_id"`
	TelegramAPIURL         string `mapstructure:"telegram_api_url"`
	RegistryURL            string `mapstructure:"registry_url"`
}

// Load reads settings from the environment, applying built-in defaults for
// anything unset. It never fails; unparseable values fall back to defaults.
func Load() Settings {
	v := viper.New()
	v.SetDefault("debug", false)
	v.SetDefault("stdin_timeout_ms", 3000)
	v.SetDefault("notifier_stdin_timeout_ms", 5000)
	v.SetDefault("http_timeout_ms", 10000)
	v.SetDefault("lock_timeout_ms", 200)
	v.SetDefault("claude_home", defaultClaudeHome())
	v.SetDefault("telegram_bot_token", "")
	v.SetDefault("telegram_chat_id", "")
	v.SetDefault("telegram_api_url", "https://api.telegram.org")
	v.SetDefault("registry_url", "https://registry.npmjs.org/contract-driven-dev/latest")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Defaults()
	}
	return s
}

// Defaults returns the built-in settings without consulting the environment.
func Defaults() Settings {
	return Settings{
		StdinTimeoutMS:         3000,
		NotifierStdinTimeoutMS: 5000,
		HTTPTimeoutMS:          10000,
		LockTimeoutMS:          200,
		ClaudeHome:             defaultClaudeHome(),
		TelegramAPIURL:         "https://api.telegram.org",
		RegistryURL:            "https://registry.npmjs.org/contract-driven-dev/latest",
	}
}

// StdinTimeout is the bounded wait for hook input.
func (s Settings) StdinTimeout() time.Duration {
	return millis(s.StdinTimeoutMS, 3000)
}

// NotifierStdinTimeout is the bounded wait for a notifier payload.
func (s Settings) NotifierStdinTimeout() time.Duration {
	return millis(s.NotifierStdinTimeoutMS, 5000)
}

// HTTPTimeout bounds one outbound delivery attempt.
func (s Settings) HTTPTimeout() time.Duration {
	return millis(s.HTTPTimeoutMS, 10000)
}

// LockTimeout bounds how long a snapshot write waits for the advisory lock.
func (s Settings) LockTimeout() time.Duration {
	return millis(s.LockTimeoutMS, 200)
}

func millis(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Millisecond
}

func defaultClaudeHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".claude"
	}
	return filepath.Join(home, ".claude")
}
