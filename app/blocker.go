package app

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/kronholm/flowtime/config"
)

// cmdBlocker drives an external distraction blocker through user-configured
// shell commands. The stop command is expected to print the number of
// distraction attempts on stdout; the start command may print the number of
// items blocked.
type cmdBlocker struct {
	startCmd string
	stopCmd  string
}

func newCmdBlocker(cfg config.BlockerConfig) *cmdBlocker {
	return &cmdBlocker{
		startCmd: cfg.StartCmd,
		stopCmd:  cfg.StopCmd,
	}
}

func (b *cmdBlocker) IsConfigured() bool {
	return b.startCmd != "" && b.stopCmd != ""
}

func (b *cmdBlocker) Start(ctx context.Context) (int, error) {
	return runCountCmd(ctx, b.startCmd)
}

func (b *cmdBlocker) Stop(ctx context.Context) (int, error) {
	return runCountCmd(ctx, b.stopCmd)
}

// runCountCmd executes the given command and parses a single integer from
// its output.
func runCountCmd(ctx context.Context, command string) (int, error) {
	cmdSlice, err := shellquote.Split(command)
	if err != nil {
		return 0, fmt.Errorf("unable to parse blocker command: %w", err)
	}

	if len(cmdSlice) == 0 {
		return 0, nil
	}

	cmd := exec.CommandContext(ctx, cmdSlice[0], cmdSlice[1:]...)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("blocker command failed: %w", err)
	}

	s := strings.TrimSpace(string(out))
	if s == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("blocker command printed %q, expected a number", s)
	}

	return n, nil
}
