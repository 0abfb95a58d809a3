package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultArgv returns the immediate power-off command for goos.
func DefaultArgv(goos string) []string {
	if goos == "windows" {
		return []string{"shutdown", "/s", "/t", "0"}
	}
	return []string{"shutdown", "-h", "now"}
}

// Command runs an external power-off command and waits for it to exit.
type Command struct {
	Argv []string

	run func(ctx context.Context, name string, args ...string) error
}

func NewCommand(argv []string) *Command {
	return &Command{Argv: argv, run: runCommand}
}

func (c *Command) Shutdown(ctx context.Context) error {
	if len(c.Argv) == 0 {
		return errors.New("empty shutdown command")
	}
	if err := c.run(ctx, c.Argv[0], c.Argv[1:]...); err != nil {
		return fmt.Errorf("run %q: %w", strings.Join(c.Argv, " "), err)
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil && len(out) > 0 {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return err
}
