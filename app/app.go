// Package app defines the command-line interface for flowtime
package app

import (
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/kronholm/flowtime/config"
)

// disableStyling disables all styling provided by pterm.
func disableStyling() {
	pterm.DisableColor()
	pterm.DisableStyling()
	pterm.Debug.Prefix.Text = ""
	pterm.Info.Prefix.Text = ""
	pterm.Success.Prefix.Text = ""
	pterm.Warning.Prefix.Text = ""
	pterm.Error.Prefix.Text = ""
	pterm.Fatal.Prefix.Text = ""
}

// Get retrieves the flowtime app instance.
func Get() *cli.App {
	flowtimeApp := &cli.App{
		Name: "flowtime",
		Usage: `
		Flowtime is a focus session timer for the command line. Completing
		work sessions earns experience and coins, with bonuses for staying
		off distracting apps.`,
		UsageText:            "[COMMAND] [OPTIONS]",
		Version:              config.Version,
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Print the status of the timer",
				Action: statusAction,
			},
			{
				Name:   "history",
				Usage:  "List recently recorded sessions",
				Action: historyAction,
				Flags:  []cli.Flag{historySinceFlag},
			},
			{
				Name:   "ledger",
				Usage:  "Print accumulated XP and coin totals",
				Action: ledgerAction,
			},
			{
				Name:   "edit-config",
				Usage:  "Edit the configuration file",
				Action: editConfigAction,
			},
		},
		Flags: []cli.Flag{
			presetFlag,
			categoryFlag,
			taskFlag,
			disableNotificationFlag,
			sessionCmdFlag,
			noSoundFlag,
			noColorFlag,
		},
		Action: defaultAction,
		Before: beforeAction,
		After:  afterAction,
	}

	return flowtimeApp
}
