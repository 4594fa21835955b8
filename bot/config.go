package bot

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// EnvPrefix prefixes environment variables overriding the config file. Levels
// are separated with "__", e.g. COURSEBOT_BOTS__COURSE_REMINDER__TG_TOKEN.
const EnvPrefix = "COURSEBOT_"

var errMissingFields = errors.New("configuration is missing field(s)")

// FarmConfig keeps configuration of the whole farm.
type FarmConfig struct {
	Log     LogConfig         `koanf:"log"`
	Metrics MetricsConfig     `koanf:"metrics"`
	Bots    map[string]Config `koanf:"bots"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // console or json
}

type MetricsConfig struct {
	Addr string `koanf:"addr"` // empty disables the endpoint
}

// Config keeps bot configuration
type Config struct {
	TgToken       string         `koanf:"tg_token"`
	RetryAttempts int            `koanf:"retry_attempts"`
	RetryDelay    time.Duration  `koanf:"retry_delay"`
	Storage       StorageConfig  `koanf:"storage"`
	Reminder      ReminderConfig `koanf:"reminder"`
}

type StorageConfig struct {
	Type string `koanf:"type"` // postgres or sqlite
	DSN  string `koanf:"dsn"`
}

type ReminderConfig struct {
	AdvanceMinutes         int    `koanf:"advance_minutes"`
	EnableDailyPreview     bool   `koanf:"enable_daily_preview"`
	DailyPreviewTime       string `koanf:"daily_preview_time"` // HH:MM
	PollingIntervalSeconds int    `koanf:"polling_interval_seconds"`
	MatchWeekday           bool   `koanf:"match_weekday"`
	TimeZone               string `koanf:"time_zone"`
}

func farmDefaults() map[string]any {
	return map[string]any{
		"log": map[string]any{
			"level":  "info",
			"format": "console",
		},
		"metrics": map[string]any{
			"addr": "",
		},
	}
}

// botDefaults are applied to every bot found in the configuration
func botDefaults() map[string]any {
	return map[string]any{
		"retry_attempts":                    3,
		"retry_delay":                       "1s",
		"storage.type":                      "postgres",
		"reminder.advance_minutes":          15,
		"reminder.enable_daily_preview":     true,
		"reminder.daily_preview_time":       "21:00",
		"reminder.polling_interval_seconds": 60,
		"reminder.match_weekday":            false,
		"reminder.time_zone":                "Local",
	}
}

// envKey turns COURSEBOT_BOTS__COURSE_REMINDER__TG_TOKEN into
// bots.course_reminder.tg_token
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Load reads configuration from the file, if it's given, and the environment.
func Load(cfgFile string) (*FarmConfig, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(farmDefaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "failed loading defaults")
	}

	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed loading configuration from %q", cfgFile)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "failed loading environment")
	}

	for _, name := range k.MapKeys("bots") {
		for key, val := range botDefaults() {
			path := "bots." + name + "." + key
			if k.Exists(path) {
				continue
			}
			if err := k.Set(path, val); err != nil {
				return nil, errors.Wrapf(err, "failed setting default %q", path)
			}
		}
	}

	var cfg FarmConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed parsing configuration")
	}

	return &cfg, nil
}

// Validate makes sure that all required fields are present in the config
func (c *Config) Validate() error {
	missingFields := []string{}
	if c.TgToken == "" {
		missingFields = append(missingFields, "tg_token")
	}
	if c.Storage.DSN == "" {
		missingFields = append(missingFields, "storage.dsn")
	}

	if len(missingFields) > 0 {
		return errors.Wrap(errMissingFields, strings.Join(missingFields, ", "))
	}

	if c.Reminder.AdvanceMinutes < 0 {
		return errors.Errorf("advance_minutes %d is negative", c.Reminder.AdvanceMinutes)
	}
	if c.Reminder.PollingIntervalSeconds < 0 {
		return errors.Errorf("polling_interval_seconds %d is negative", c.Reminder.PollingIntervalSeconds)
	}

	if _, _, err := c.Reminder.PreviewTime(); err != nil {
		return err
	}
	if _, err := c.Reminder.Location(); err != nil {
		return err
	}

	return nil
}

// PreviewTime returns hour and minute of the daily preview.
func (c *ReminderConfig) PreviewTime() (int, int, error) {
	t, err := time.Parse("15:04", c.DailyPreviewTime)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "daily_preview_time %q isn't in the format HH:MM", c.DailyPreviewTime)
	}
	return t.Hour(), t.Minute(), nil
}

// Location returns the time zone all course times are given in.
func (c *ReminderConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}

	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown time_zone %q", c.TimeZone)
	}
	return loc, nil
}

func (c *ReminderConfig) Advance() time.Duration {
	return time.Duration(c.AdvanceMinutes) * time.Minute
}

func (c *ReminderConfig) PollingInterval() time.Duration {
	return time.Duration(c.PollingIntervalSeconds) * time.Second
}
