package app

import "github.com/urfave/cli/v2"

var (
	presetFlag = &cli.StringFlag{
		Name:    "preset",
		Aliases: []string{"p"},
		Usage:   "Session preset: pomodoro, deep-work, short-break, long-break, or flow (countup)",
	}

	categoryFlag = &cli.StringFlag{
		Name:  "category",
		Usage: "Categorise the session (e.g. 'writing')",
	}

	taskFlag = &cli.StringFlag{
		Name:    "task",
		Aliases: []string{"t"},
		Usage:   "Label the task being worked on",
	}

	disableNotificationFlag = &cli.BoolFlag{
		Name:    "disable-notification",
		Aliases: []string{"d"},
		Usage:   "Disable the system notification that appears after a session is completed",
	}

	sessionCmdFlag = &cli.StringFlag{
		Name:    "session-cmd",
		Aliases: []string{"cmd"},
		Usage:   "Execute an arbitrary command after the session resolves",
	}

	noSoundFlag = &cli.BoolFlag{
		Name:  "no-sound",
		Usage: "Disable the completion chime for this run",
	}

	noColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable coloured output",
	}

	historySinceFlag = &cli.UintFlag{
		Name:  "days",
		Usage: "Number of days of history to list",
		Value: 7,
	}
)
