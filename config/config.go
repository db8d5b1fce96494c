// Package config is responsible for setting the program config from
// the config file and command-line arguments
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pterm/pterm"

	"github.com/kronholm/flowtime/internal/models"
)

const Version = "v0.3.0"

type (
	// Config holds all configuration settings
	Config struct {
		Presets       map[string]Preset
		DefaultPreset string
		Notification  NotificationConfig
		Sound         SoundConfig
		Blocker       BlockerConfig
		SessionCmd    string
	}

	// Preset is a named session template.
	Preset struct {
		Name     string
		Kind     models.SessionKind
		Mode     models.TimerMode
		Duration time.Duration
	}

	// NotificationConfig holds notification settings
	NotificationConfig struct {
		Enabled bool
	}

	// SoundConfig holds sound-related settings
	SoundConfig struct {
		CompletionSound string
	}

	// BlockerConfig holds the shell commands that drive an external
	// distraction blocker. Blocking is considered configured only when both
	// commands are set.
	BlockerConfig struct {
		StartCmd string
		StopCmd  string
	}
)

// Built-in preset names.
const (
	PresetPomodoro   = "pomodoro"
	PresetDeepWork   = "deep-work"
	PresetShortBreak = "short-break"
	PresetLongBreak  = "long-break"
	PresetFlow       = "flow"
)

var (
	configDir      = "flowtime"
	configFileName = "config.yml"
	dbFileName     = "flowtime.db"
	statusFileName = "status.json"
	logFileName    = "flowtime.log"
	dbFilePath     string
	configFilePath string
	statusFilePath string
	logFilePath    string
)

func Dir() string {
	return configDir
}

func DBFilePath() string {
	return dbFilePath
}

func StatusFilePath() string {
	return statusFilePath
}

func LogFilePath() string {
	return logFilePath
}

func ConfigFilePath() string {
	return configFilePath
}

func InitializePaths() {
	flowtimeEnv := strings.TrimSpace(os.Getenv("FLOWTIME_ENV"))
	if flowtimeEnv != "" {
		configFileName = fmt.Sprintf("config_%s.yml", flowtimeEnv)
		dbFileName = fmt.Sprintf("flowtime_%s.db", flowtimeEnv)
		statusFileName = fmt.Sprintf("status_%s.json", flowtimeEnv)
		logFileName = fmt.Sprintf("flowtime_%s.log", flowtimeEnv)
	}

	var err error

	relPath := filepath.Join(configDir, configFileName)

	configFilePath, err = xdg.ConfigFile(relPath)
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}

	dataDir, err := xdg.DataFile(configDir)
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}

	dbFilePath = filepath.Join(dataDir, dbFileName)

	statusFilePath = filepath.Join(dataDir, statusFileName)

	logFilePath = filepath.Join(dataDir, "log", logFileName)
}

// builtinPresets returns the default session templates. Durations may be
// overridden through the config file; the countup cap is fixed.
func builtinPresets() map[string]Preset {
	return map[string]Preset{
		PresetPomodoro: {
			Name:     PresetPomodoro,
			Kind:     models.Work,
			Mode:     models.Countdown,
			Duration: 25 * time.Minute,
		},
		PresetDeepWork: {
			Name:     PresetDeepWork,
			Kind:     models.Work,
			Mode:     models.Countdown,
			Duration: 50 * time.Minute,
		},
		PresetShortBreak: {
			Name:     PresetShortBreak,
			Kind:     models.Break,
			Mode:     models.Countdown,
			Duration: 5 * time.Minute,
		},
		PresetLongBreak: {
			Name:     PresetLongBreak,
			Kind:     models.Break,
			Mode:     models.Countdown,
			Duration: 15 * time.Minute,
		},
		PresetFlow: {
			Name:     PresetFlow,
			Kind:     models.Work,
			Mode:     models.Countup,
			Duration: models.CountupCapSeconds * time.Second,
		},
	}
}

// GetPreset resolves a preset by name.
func (c *Config) GetPreset(name string) (Preset, error) {
	p, ok := c.Presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %s", errUnknownPreset, name)
	}

	return p, nil
}
