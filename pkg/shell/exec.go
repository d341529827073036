package shell

import (
	"os/exec"
)

// We prefer to return stderr over the process exit code
type ExitErrorVerbose struct {
	E exec.ExitError
}

func (e ExitErrorVerbose) Error() string {
	if len(e.E.Stderr) != 0 {
		return string(e.E.Stderr)
	}
	return e.E.Error()
}

// Run executes a program and returns its stdout.
func Run(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", ExitErrorVerbose{*exitErr}
		}
		return "", err
	}
	return string(out), nil
}

// First returns the path of the first program in 'names' that exists on the
// PATH, or "" if none of them do. Used for tools with old/new names, such as
// rpicam-vid vs libcamera-vid.
func First(names ...string) string {
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
