package app

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"
	bolt "go.etcd.io/bbolt"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kronholm/flowtime/config"
	"github.com/kronholm/flowtime/internal/models"
	"github.com/kronholm/flowtime/internal/timeutil"
	"github.com/kronholm/flowtime/internal/ui"
	"github.com/kronholm/flowtime/reward"
	"github.com/kronholm/flowtime/store"
	"github.com/kronholm/flowtime/timer"
)

const (
	envNoColor         = "NO_COLOR"
	envFlowtimeNoColor = "FLOWTIME_NO_COLOR"
)

// Status is the file-based summary of the running session, written so a
// second process can report on it while the data store is locked.
type Status struct {
	EndTime time.Time          `json:"end_date"`
	Kind    models.SessionKind `json:"session_kind"`
	Mode    models.TimerMode   `json:"mode"`
	Preset  string             `json:"preset"`
}

// firstNonEmptyString returns its first non-empty argument, or "" if all
// arguments are empty.
func firstNonEmptyString(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}

	return ""
}

func initLogger() {
	w := &lumberjack.Logger{
		Filename:   config.LogFilePath(),
		MaxSize:    5,
		MaxBackups: 2,
		MaxAge:     28,
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(w, nil)))
}

// runSessionCmd executes the specified command after a session resolves.
func runSessionCmd(sessionCmd string) error {
	if sessionCmd == "" {
		return nil
	}

	cmdSlice, err := shellquote.Split(sessionCmd)
	if err != nil {
		return fmt.Errorf("unable to parse session_cmd option: %w", err)
	}

	if len(cmdSlice) == 0 {
		return nil
	}

	name := cmdSlice[0]
	args := cmdSlice[1:]

	cmd := exec.Command(name, args...)

	return cmd.Run()
}

func writeStatusFile(s Status) error {
	statusFile, err := os.Create(config.StatusFilePath())
	if err != nil {
		return err
	}

	defer func() {
		ferr := statusFile.Close()
		if ferr != nil {
			err = ferr
		}
	}()

	b, err := json.Marshal(s)
	if err != nil {
		return err
	}

	writer := bufio.NewWriter(statusFile)

	_, err = writer.Write(b)
	if err != nil {
		return err
	}

	return writer.Flush()
}

// printSession writes the details of the session being started to stdout.
func printSession(preset string, state timer.DisplayState, endTime time.Time) {
	var text string

	switch state.Kind {
	case models.Work:
		text = ui.Green("[" + preset + "]")
	default:
		text = ui.Blue("[" + preset + "]")
	}

	var label string
	if state.TaskLabel != "" {
		label = " >>> " + state.TaskLabel
	}

	if state.Mode == models.Countup {
		fmt.Fprintf(
			os.Stdout,
			"%s counting up (cap %s)%s\n",
			text,
			ui.Highlight(endTime.Format("03:04:05 PM")),
			label,
		)

		return
	}

	fmt.Fprintf(
		os.Stdout,
		"%s (until %s)%s\n",
		text,
		ui.Highlight(endTime.Format("03:04:05 PM")),
		label,
	)
}

// renderTick prints the current session time on a single line.
func renderTick(state timer.DisplayState) {
	mins, secs := state.Value/60, state.Value%60
	hrs, mins2 := timeutil.MinsToHoursAndMins(mins)

	fmt.Fprint(os.Stdout, "\033[2K\r")

	if hrs > 0 {
		fmt.Fprintf(
			os.Stdout,
			"🕒%s:%s:%s",
			pterm.Yellow(fmt.Sprintf("%02d", hrs)),
			pterm.Yellow(fmt.Sprintf("%02d", mins2)),
			pterm.Yellow(fmt.Sprintf("%02d", secs)),
		)

		return
	}

	fmt.Fprintf(
		os.Stdout,
		"🕒%s:%s",
		pterm.Yellow(fmt.Sprintf("%02d", mins)),
		pterm.Yellow(fmt.Sprintf("%02d", secs)),
	)
}

// printSummary reports the reward outcome of a resolved session.
func printSummary(res reward.Result, state timer.DisplayState) {
	fmt.Printf("\nSession completed!\n")

	if state.Kind != models.Work {
		return
	}

	if res.BonusLabel != "" {
		pterm.Success.Printfln(
			"%s! +%d XP, +%d coins",
			res.BonusLabel,
			res.XPEarned,
			res.CoinsEarned,
		)

		return
	}

	pterm.Info.Printfln("+%d XP earned", res.XPEarned)
}

// defaultAction starts a session with the selected preset and blocks until
// it resolves or is interrupted.
func defaultAction(ctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	presetName := firstNonEmptyString(
		ctx.String("preset"),
		cfg.DefaultPreset,
	)

	preset, err := cfg.GetPreset(presetName)
	if err != nil {
		return err
	}

	if ctx.String("session-cmd") != "" {
		cfg.SessionCmd = ctx.String("session-cmd")
	}

	dbClient, err := store.NewClient(config.DBFilePath())
	if err != nil {
		return err
	}

	defer func() {
		_ = dbClient.Close()
	}()

	notifier := newDesktopNotifier(
		cfg.Notification.Enabled && !ctx.Bool("disable-notification"),
	)

	done := make(chan reward.Result, 1)

	eng := timer.New(
		dbClient,
		timer.WithBlocker(newCmdBlocker(cfg.Blocker)),
		timer.WithLedger(&boltLedger{db: dbClient}),
		timer.WithRecorder(dbClient),
		timer.WithNotifier(notifier),
		timer.WithDisplayFunc(renderTick),
		timer.WithCompleteFunc(func(res reward.Result) {
			done <- res
		}),
	)

	state := eng.Load()

	if state.Status == models.Idle {
		err = eng.SelectPreset(preset)
		if err != nil {
			return err
		}

		err = eng.StartWithIntent(
			ctx.String("category"),
			ctx.String("task"),
		)
		if err != nil {
			return err
		}
	} else if state.Status == models.Paused {
		pterm.Info.Printfln("resuming interrupted %s session", state.Kind)

		err = eng.Start()
		if err != nil {
			return err
		}
	}

	state = eng.Snapshot()

	endTime := time.Now().
		Add(time.Duration(remainingFor(state)) * time.Second)

	printSession(presetName, state, endTime)

	_ = writeStatusFile(Status{
		EndTime: endTime,
		Kind:    state.Kind,
		Mode:    state.Mode,
		Preset:  presetName,
	})

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	resumed := make(chan os.Signal, 1)
	signal.Notify(resumed, syscall.SIGCONT)

	for {
		select {
		case res := <-done:
			_ = os.Remove(config.StatusFilePath())

			printSummary(res, eng.Snapshot())

			if state.SoundEnabled && !ctx.Bool("no-sound") &&
				cfg.Sound.CompletionSound != "" {
				err = playChime(cfg.Sound.CompletionSound)
				if err != nil {
					pterm.Error.Printfln("unable to play sound: %v", err)
				}
			}

			return runSessionCmd(cfg.SessionCmd)
		case <-resumed:
			// the process was suspended: reconcile against the wall clock
			eng.Reconciler().Foreground()
		case <-interrupt:
			_ = os.Remove(config.StatusFilePath())

			err = eng.Pause()
			if err == nil {
				fmt.Fprintln(os.Stdout)
				pterm.Info.Println(
					"session paused, run flowtime again to resume",
				)
			}

			return nil
		}
	}
}

// statusAction prints the status of a timer running in another process.
func statusAction(_ *cli.Context) error {
	db, err := bolt.Open(config.DBFilePath(), 0o600, &bolt.Options{
		Timeout: 100 * time.Millisecond,
	})
	// an acquired lock means no timer is running, so no status to report
	if err == nil {
		return db.Close()
	}

	if !errors.Is(err, bolt.ErrDatabaseOpen) &&
		!errors.Is(err, bolt.ErrTimeout) {
		return err
	}

	fileBytes, err := os.ReadFile(config.StatusFilePath())
	if err != nil {
		// a missing status file should not return an error
		return nil
	}

	var s Status

	err = json.Unmarshal(fileBytes, &s)
	if err != nil {
		return err
	}

	remaining := timeutil.Round(time.Until(s.EndTime).Seconds())
	if remaining < 0 {
		return nil
	}

	if s.Mode == models.Countup {
		elapsed := models.CountupCapSeconds - remaining
		pterm.Printfln(
			"[%s]: %02d:%02d elapsed",
			s.Preset,
			elapsed/60,
			elapsed%60,
		)

		return nil
	}

	pterm.Printfln("[%s]: %02d:%02d", s.Preset, remaining/60, remaining%60)

	return nil
}

// historyAction prints a table of recently recorded sessions.
func historyAction(ctx *cli.Context) error {
	dbClient, err := store.NewClient(config.DBFilePath())
	if err != nil {
		return err
	}

	defer func() {
		_ = dbClient.Close()
	}()

	days := int(ctx.Uint("days"))
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	records, err := dbClient.GetSessionRecords(start, end)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		pterm.Info.Printfln("no sessions recorded in the last %d days", days)
		return nil
	}

	tableBody := [][]string{
		{"DATE", "KIND", "MINUTES", "OUTCOME", "XP", "QUALITY", "TASK"},
	}

	for i := range records {
		r := records[i]

		quality := r.FocusQuality
		if quality == "" {
			quality = "-"
		}

		tableBody = append(tableBody, []string{
			r.StartTime.Format("Jan 02 03:04 PM"),
			string(r.Kind),
			fmt.Sprintf("%d", r.ActualDurationSeconds/60),
			string(r.Outcome),
			fmt.Sprintf("%d", r.XPEarned),
			quality,
			r.TaskLabel,
		})
	}

	ui.PrintTable(tableBody, os.Stdout)

	return nil
}

// ledgerAction prints the accumulated reward totals.
func ledgerAction(_ *cli.Context) error {
	dbClient, err := store.NewClient(config.DBFilePath())
	if err != nil {
		return err
	}

	defer func() {
		_ = dbClient.Close()
	}()

	ledger, err := dbClient.GetLedger()
	if err != nil {
		return err
	}

	pterm.Printfln("XP: %d", ledger.XP)
	pterm.Printfln("Coins: %d", ledger.Coins)

	return nil
}

// editConfigAction opens the config file in the user's default text editor.
func editConfigAction(_ *cli.Context) error {
	defaultEditor := "nano"

	if runtime.GOOS == "windows" {
		defaultEditor = "C:\\Windows\\system32\\notepad.exe"
	}

	editor := firstNonEmptyString(
		os.Getenv("VISUAL"),
		os.Getenv("EDITOR"),
		defaultEditor,
	)

	cmd := exec.Command(editor, config.ConfigFilePath())

	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout

	return cmd.Run()
}

func beforeAction(ctx *cli.Context) error {
	config.InitializePaths()

	initLogger()

	pterm.Error.MessageStyle = pterm.NewStyle(pterm.FgRed)
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "ERROR",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}

	if _, exists := os.LookupEnv(envNoColor); exists {
		disableStyling()
	}

	if _, exists := os.LookupEnv(envFlowtimeNoColor); exists {
		disableStyling()
	}

	if ctx.Bool("no-color") {
		disableStyling()
	}

	return nil
}

func afterAction(ctx *cli.Context) error {
	slog.InfoContext(ctx.Context, "exiting flowtime")

	return nil
}

// remainingFor is the number of seconds until the session's natural
// endpoint.
func remainingFor(state timer.DisplayState) int {
	if state.Mode == models.Countup {
		return models.CountupCapSeconds - state.Value
	}

	return state.Value
}
