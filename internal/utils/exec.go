package utils

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an external introspection or install tool. The device
// resolvers, the partition inspector and the grub runner all go through
// it so tests can substitute canned output for real disks and tooling.
type Runner interface {
	// Output runs the command and returns its trimmed stdout. A non-zero
	// exit returns an error carrying the captured stderr.
	Output(name string, args ...string) (string, error)
	// Run runs the command discarding stdout, same stderr contract.
	Run(name string, args ...string) error
}

type execRunner struct{}

// NewRunner returns the Runner backed by the host's real tools.
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) Output(name string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	Log.Debug().Str("cmd", name).Strs("args", args).Msg("Running command")
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (e execRunner) Run(name string, args ...string) error {
	_, err := e.Output(name, args...)
	return err
}
