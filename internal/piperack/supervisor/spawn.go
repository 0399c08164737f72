package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/mattn/go-shellwords"

	"github.com/piperack/piperack/internal/piperack/event"
	"github.com/piperack/piperack/internal/piperack/spec"
)

// spawn runs the full launch sequence: mark started, run the optional
// pre-command, launch the main command, and arm its readiness probe. It
// assumes the caller (scheduler or restart) has already decided this spec
// is eligible to run now.
func (s *Supervisor) spawn(ctx context.Context, name string, mp *managedProcess) {
	mp.mu.Lock()
	mp.started = true
	mp.ready = false
	mp.readyFired = false
	mp.waitingOn = nil
	mp.attempt++
	attempt := mp.attempt
	sp := mp.spec
	mp.mu.Unlock()

	s.emit(event.Starting{ID: name, Attempt: attempt})

	if sp.PreCmd != "" {
		if !s.runPreCmd(name, attempt, sp) {
			return
		}
	}

	cmd := exec.CommandContext(s.lifeCtx, sp.Cmd, sp.Args...)
	cmd.Cancel = func() error { return killGroup(cmd) }
	cmd.Env = mergeEnv(sp.Env)
	if sp.Cwd != "" {
		cmd.Dir = sp.Cwd
	}
	detach(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		s.emit(event.Failed{ID: name, Attempt: attempt, Err: fmt.Errorf("stdin pipe: %w", err)})
		return
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.emit(event.Failed{ID: name, Attempt: attempt, Err: fmt.Errorf("stdout pipe: %w", err)})
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.emit(event.Failed{ID: name, Attempt: attempt, Err: fmt.Errorf("stderr pipe: %w", err)})
		return
	}

	if err := cmd.Start(); err != nil {
		s.emit(event.Failed{ID: name, Attempt: attempt, Err: fmt.Errorf("spawn %s: %w", name, err)})
		return
	}

	pid := cmdPID(cmd)
	waitResult := make(chan waitOutcome, 1)

	mp.mu.Lock()
	mp.cmd = cmd
	mp.stdin = stdin
	mp.pid = pid
	mp.waitResult = waitResult
	mp.mu.Unlock()

	s.emit(event.Started{ID: name, Attempt: attempt, PID: pid})

	go s.readStream(name, attempt, mp, event.Stdout, stdout)
	go s.readStream(name, attempt, mp, event.Stderr, stderr)
	go reap(cmd, waitResult)

	s.armReadiness(name, attempt, mp, sp)
}

// waitOutcome is the result cmd.Wait() produces, captured once so the poll
// loop never has to call Wait (and risk blocking) itself.
type waitOutcome struct {
	code *int
	err  error
}

// reap blocks on cmd.Wait in its own goroutine so PollExits can learn the
// outcome with a non-blocking channel receive.
func reap(cmd *exec.Cmd, result chan<- waitOutcome) {
	err := cmd.Wait()
	if exitErr, ok := err.(*exec.ExitError); ok {
		c := exitErr.ExitCode()
		if c < 0 {
			result <- waitOutcome{code: nil, err: nil} // signal-terminated
			return
		}
		result <- waitOutcome{code: &c, err: nil}
		return
	}
	if err != nil {
		result <- waitOutcome{err: err}
		return
	}
	c := cmd.ProcessState.ExitCode()
	result <- waitOutcome{code: &c}
}

// runPreCmd executes spec.PreCmd synchronously, prefixing every captured
// line with "[pre] ". It returns false if the pre-command
// could not be parsed, spawned, or exited non-zero, in which case a
// Failed event has already been emitted and the caller must not proceed
// to the main spawn.
func (s *Supervisor) runPreCmd(name string, attempt uint64, sp spec.ProcessSpec) bool {
	parser := shellwords.NewParser()
	parts, err := parser.Parse(sp.PreCmd)
	if err != nil || len(parts) == 0 {
		s.emit(event.Failed{ID: name, Attempt: attempt, Err: fmt.Errorf("pre_cmd: invalid command %q", sp.PreCmd)})
		return false
	}

	cmd := exec.CommandContext(s.lifeCtx, parts[0], parts[1:]...)
	cmd.Env = mergeEnv(sp.Env)
	if sp.Cwd != "" {
		cmd.Dir = sp.Cwd
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.emit(event.Failed{ID: name, Attempt: attempt, Err: fmt.Errorf("pre_cmd stdout pipe: %w", err)})
		return false
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.emit(event.Failed{ID: name, Attempt: attempt, Err: fmt.Errorf("pre_cmd stderr pipe: %w", err)})
		return false
	}

	if err := cmd.Start(); err != nil {
		s.emit(event.Failed{ID: name, Attempt: attempt, Err: fmt.Errorf("pre_cmd failed: %w", err)})
		return false
	}

	done := make(chan struct{}, 2)
	go s.readPreStream(name, attempt, event.Stdout, stdout, done)
	go s.readPreStream(name, attempt, event.Stderr, stderr, done)
	<-done
	<-done

	if err := cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			s.emit(event.Failed{ID: name, Attempt: attempt, Err: fmt.Errorf("pre_cmd exited %d", exitErr.ExitCode())})
		} else {
			s.emit(event.Failed{ID: name, Attempt: attempt, Err: fmt.Errorf("pre_cmd failed: %w", err)})
		}
		return false
	}
	return true
}

func (s *Supervisor) readPreStream(name string, attempt uint64, stream event.Stream, r io.Reader, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.emit(event.Output{ID: name, Attempt: attempt, Line: "[pre] " + scanner.Text(), Stream: stream})
	}
}

func mergeEnv(overrides map[string]string) []string {
	env := os.Environ()
	for k, v := range overrides {
		env = append(env, k+"="+v)
	}
	return env
}
