// Package transform runs the external transformation tool that builds the
// bronze and gold warehouse tables from landed raw files.
package transform

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Transformer rebuilds warehouse tables from the landing zone.
type Transformer interface {
	Run(ctx context.Context) error
}

// Command runs a configured external command, typically the dbt build.
type Command struct {
	Argv []string
	Dir  string
}

// NewCommand creates a Transformer around argv executed in dir.
func NewCommand(argv []string, dir string) *Command {
	return &Command{Argv: argv, Dir: dir}
}

// Run executes the command, streaming its output to the process streams.
// A non-zero exit is returned as an error.
func (c *Command) Run(ctx context.Context) error {
	if len(c.Argv) == 0 {
		return eris.New("transform: no command configured")
	}

	start := time.Now()
	zap.L().Info("running transformation",
		zap.Strings("command", c.Argv),
		zap.String("dir", c.Dir),
	)

	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Dir = c.Dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return eris.Wrapf(err, "transform: %s", c.Argv[0])
	}

	zap.L().Info("transformation finished", zap.Duration("elapsed", time.Since(start)))
	return nil
}
