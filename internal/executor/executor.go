// Package executor runs external commands either on this machine as a
// chosen user (through sudo) or on a remote host (through ssh). It also
// supports pipelines where the stdout of one stage feeds the stdin of
// the next, which is how btrfs send/receive streams cross hosts.
package executor

import (
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Context selects where and as whom a command is executed.
type Context interface {
	// Command wraps program and args into the program and argument
	// list that invoke it in this context.
	Command(program string, args []string) (string, []string)
}

// Local executes commands on this machine as the given user via sudo.
type Local struct {
	User string
}

// Command implements Context.
func (l Local) Command(program string, args []string) (string, []string) {
	wrapped := append([]string{"-nu", l.User, "--", program}, args...)
	return "sudo", wrapped
}

// Remote executes commands on another host over ssh with an identity file.
type Remote struct {
	User     string
	Host     string
	Identity string
}

// Command implements Context.
func (r Remote) Command(program string, args []string) (string, []string) {
	wrapped := []string{"-i", r.Identity, fmt.Sprintf("%s@%s", r.User, r.Host), program}
	return "ssh", append(wrapped, args...)
}

// Stage is one element of a command pipeline.
type Stage struct {
	Context Context
	Program string
	Args    []string
}

// Executor runs commands and pipelines and returns their stdout.
type Executor interface {
	Run(ctx Context, program string, args ...string) (string, error)
	RunPiped(stages []Stage) (string, error)
}

// CommandError reports a command that exited non-zero, was terminated
// by a signal, or could not be started.
type CommandError struct {
	Program string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed: %v (stderr: %s)", e.Program, e.Err, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("%s failed: %v", e.Program, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// System is the Executor backed by os/exec.
type System struct{}

// Run executes a single command and returns its stdout.
func (s System) Run(ctx Context, program string, args ...string) (string, error) {
	return s.RunPiped([]Stage{{Context: ctx, Program: program, Args: args}})
}

// RunPiped executes the stages as a pipeline and returns the stdout of
// the final stage. Every stage runs in its own context, so a local
// btrfs send can feed a remote btrfs receive.
func (s System) RunPiped(stages []Stage) (string, error) {
	if len(stages) == 0 {
		return "", fmt.Errorf("empty command pipeline")
	}

	cmds := make([]*exec.Cmd, len(stages))
	pipes := make([]io.ReadCloser, 0, len(stages)-1)
	for i, stage := range stages {
		program, argv := stage.Context.Command(stage.Program, stage.Args)
		cmds[i] = exec.Command(program, argv...)
		if i > 0 {
			pipe, err := cmds[i-1].StdoutPipe()
			if err != nil {
				return "", fmt.Errorf("failed to connect pipeline stage %d: %w", i, err)
			}
			cmds[i].Stdin = pipe
			pipes = append(pipes, pipe)
		}
	}

	for i, cmd := range cmds[:len(cmds)-1] {
		if err := cmd.Start(); err != nil {
			return "", &CommandError{Program: stages[i].Program, Err: err}
		}
	}

	last := cmds[len(cmds)-1]
	output, err := last.Output()

	// Drop our read ends of the intermediate pipes. If the final stage
	// exited without draining its input, an upstream stage is still
	// blocked writing into the full pipe; closing the read end turns
	// that write into EPIPE so the stage can exit and be reaped.
	for _, pipe := range pipes {
		pipe.Close()
	}

	// The upstream stages must be reaped even when the final stage
	// failed; their exit status only matters when the final stage
	// reported success.
	var upstreamErr error
	for i, cmd := range cmds[:len(cmds)-1] {
		if waitErr := cmd.Wait(); waitErr != nil && upstreamErr == nil {
			upstreamErr = &CommandError{Program: stages[i].Program, Err: waitErr}
		}
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", &CommandError{Program: stages[len(stages)-1].Program, Stderr: string(exitErr.Stderr), Err: err}
		}
		return "", &CommandError{Program: stages[len(stages)-1].Program, Err: err}
	}
	if upstreamErr != nil {
		return "", upstreamErr
	}

	return string(output), nil
}

// ReadLink resolves path with `readlink -f` in the given context. It
// returns the path itself plus the resolved target when they differ, so
// a device like /dev/mapper/data is usable under both of its names.
func ReadLink(e Executor, ctx Context, path string) ([]string, error) {
	output, err := e.Run(ctx, "readlink", "-f", path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve link %s: %w", path, err)
	}

	result := []string{path}
	target := strings.TrimSpace(output)
	if target != "" && target != path {
		result = append(result, target)
	}
	return result, nil
}
