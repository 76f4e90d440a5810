package flavor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
)

// Source produces one line of text for a prompt.
type Source interface {
	Line(ctx context.Context, prompt string) (string, error)
}

// CommandSource runs an external program per request. The prompt is written
// to its stdin and the first non-empty line of stdout is the answer.
type CommandSource struct {
	Name string
	Args []string
}

// NewCommandSource creates a CommandSource.
func NewCommandSource(name string, args ...string) *CommandSource {
	return &CommandSource{Name: name, Args: append([]string(nil), args...)}
}

// Line implements Source.
func (c *CommandSource) Line(ctx context.Context, prompt string) (string, error) {
	cmd := newCommand(ctx, c.Name, c.Args...)
	cmd.Stdin = strings.NewReader(prompt)

	stdout, _, err := executeCommand(cmd)
	if err != nil {
		return "", err
	}

	for _, line := range strings.Split(string(stdout), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("%s produced no output", c.Name)
}

// newCommand creates an exec.Cmd in its own process group so a timeout
// takes down anything the generator spawned.
func newCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	return cmd
}

// executeCommand runs cmd, draining stdout and stderr concurrently before
// Wait so a chatty child cannot fill a pipe and deadlock.
func executeCommand(cmd *exec.Cmd) (stdout []byte, stderr []byte, err error) {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start command: %w", err)
	}

	var wg sync.WaitGroup
	var stdoutBuf, stderrBuf bytes.Buffer
	wg.Add(2)
	go func() {
		defer wg.Done()
		io.Copy(&stdoutBuf, stdoutPipe)
	}()
	go func() {
		defer wg.Done()
		io.Copy(&stderrBuf, stderrPipe)
	}()
	wg.Wait()

	waitErr := cmd.Wait()
	stdout = stdoutBuf.Bytes()
	stderr = stderrBuf.Bytes()

	if waitErr != nil {
		if len(stderr) > 0 {
			return stdout, stderr, fmt.Errorf("command failed: %w (stderr: %s)", waitErr, strings.TrimSpace(string(stderr)))
		}
		return stdout, stderr, fmt.Errorf("command failed: %w", waitErr)
	}
	return stdout, stderr, nil
}
