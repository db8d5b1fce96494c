package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// viperKeys defines the mapping between config keys and their Viper
// counterparts.
const (
	keyPomodoroDuration   = "presets.pomodoro"
	keyDeepWorkDuration   = "presets.deep_work"
	keyShortBreakDuration = "presets.short_break"
	keyLongBreakDuration  = "presets.long_break"
	keyDefaultPreset      = "settings.default_preset"
	keySessionCmd         = "settings.cmd"
	keyNotifyEnabled      = "notifications.enabled"
	keyCompletionSound    = "sound.completion"
	keyBlockerStartCmd    = "blocker.start_cmd"
	keyBlockerStopCmd     = "blocker.stop_cmd"
)

const (
	minPresetDuration = time.Minute
	maxPresetDuration = 6 * time.Hour
)

// Load reads the configuration file, creating it with defaults if it does
// not exist yet.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(ConfigFilePath())
	v.SetConfigType("yaml")

	setDefaults(v)

	err := v.ReadInConfig()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", errInitFailed, err)
		}

		if err = v.WriteConfig(); err != nil {
			return nil, fmt.Errorf("writing default config failed: %w", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyPomodoroDuration, "25m")
	v.SetDefault(keyDeepWorkDuration, "50m")
	v.SetDefault(keyShortBreakDuration, "5m")
	v.SetDefault(keyLongBreakDuration, "15m")
	v.SetDefault(keyDefaultPreset, PresetPomodoro)
	v.SetDefault(keySessionCmd, "")
	v.SetDefault(keyNotifyEnabled, true)
	v.SetDefault(keyCompletionSound, "")
	v.SetDefault(keyBlockerStartCmd, "")
	v.SetDefault(keyBlockerStopCmd, "")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Presets:       builtinPresets(),
		DefaultPreset: v.GetString(keyDefaultPreset),
		SessionCmd:    v.GetString(keySessionCmd),
		Notification: NotificationConfig{
			Enabled: v.GetBool(keyNotifyEnabled),
		},
		Sound: SoundConfig{
			CompletionSound: v.GetString(keyCompletionSound),
		},
		Blocker: BlockerConfig{
			StartCmd: v.GetString(keyBlockerStartCmd),
			StopCmd:  v.GetString(keyBlockerStopCmd),
		},
	}

	durations := map[string]string{
		PresetPomodoro:   v.GetString(keyPomodoroDuration),
		PresetDeepWork:   v.GetString(keyDeepWorkDuration),
		PresetShortBreak: v.GetString(keyShortBreakDuration),
		PresetLongBreak:  v.GetString(keyLongBreakDuration),
	}

	for name, s := range durations {
		dur, err := parseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid duration for %s: %w", name, err)
		}

		if dur < minPresetDuration || dur > maxPresetDuration {
			return nil, fmt.Errorf("%w: %s is %s", errInvalidDuration, name, dur)
		}

		p := cfg.Presets[name]
		p.Duration = dur
		cfg.Presets[name] = p
	}

	if _, ok := cfg.Presets[cfg.DefaultPreset]; !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownPreset, cfg.DefaultPreset)
	}

	return cfg, nil
}

// parseDuration accepts either a Go duration string or a bare number of
// minutes.
func parseDuration(s string) (time.Duration, error) {
	dur, err := time.ParseDuration(s)
	if err == nil {
		return dur, nil
	}

	mins, err := time.ParseDuration(s + "m")
	if err != nil {
		return 0, fmt.Errorf("invalid duration format: %s", s)
	}

	return mins, nil
}
