package mocks

import "strings"

// Runner returns canned output per command line and records every
// invocation, so tests can drive the device resolvers and the install
// flow without real disks.
type Runner struct {
	Outputs map[string]string
	Errs    map[string]error
	Calls   [][]string
}

func key(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

func (r *Runner) Output(name string, args ...string) (string, error) {
	k := key(name, args)
	r.Calls = append(r.Calls, append([]string{name}, args...))
	if err, ok := r.Errs[k]; ok {
		return "", err
	}
	return strings.TrimSpace(r.Outputs[k]), nil
}

func (r *Runner) Run(name string, args ...string) error {
	_, err := r.Output(name, args...)
	return err
}

// Invoked reports whether any recorded call ran the given binary.
func (r *Runner) Invoked(name string) bool {
	for _, call := range r.Calls {
		if call[0] == name {
			return true
		}
	}
	return false
}
