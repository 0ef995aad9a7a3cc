package source

import (
	"bytes"
	"context"
	"os/exec"
)

// Runner is the host command execution capability. The core only knows
// "run this command, get stdout or an error" — how the process is spawned
// is the runner's business.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
	Available(name string) bool
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return stdout.String(), nil
}

func (ExecRunner) Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
