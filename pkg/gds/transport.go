package gds

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sort"

	"github.com/tagus/graphmind/pkg/logging"
)

// maxFrameSize bounds a single newline-delimited frame. Graph algorithm
// results can be large; 10 MiB matches the limit the tool server assumes.
const maxFrameSize = 10 * 1024 * 1024

// frameTransport carries whole frames to and from a tool server
type frameTransport interface {
	WriteFrame(frame []byte) error
	ReadFrame() ([]byte, error)
	Close()
}

// stdioTransport owns the child process and its pipes. Frames are
// newline-delimited JSON written to the child's stdin and read from its
// stdout. Stderr is drained in the background and logged as diagnostics;
// it is not part of the protocol.
type stdioTransport struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	scanner *bufio.Scanner
	logger  logging.Logger
}

// startTransport spawns the child process. The environment is exactly the
// provided map; the parent's environment is never inherited, so unrelated
// credentials cannot leak into the tool server.
func startTransport(command string, args []string, env map[string]string, logger logging.Logger) (*stdioTransport, error) {
	path, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("resolving tool server command %q: %w", command, err)
	}

	cmd := exec.Command(path, args...)
	cmd.Env = flattenEnv(env)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting tool server: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxFrameSize)

	t := &stdioTransport{
		cmd:     cmd,
		stdin:   stdin,
		scanner: scanner,
		logger:  logger,
	}
	go t.drainStderr(stderr)

	return t, nil
}

// WriteFrame writes one newline-terminated frame to the child's stdin
func (t *stdioTransport) WriteFrame(frame []byte) error {
	if _, err := t.stdin.Write(append(frame, '\n')); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// ReadFrame blocks until the next frame arrives on the child's stdout.
// io.EOF is returned when the child closes its output.
func (t *stdioTransport) ReadFrame() ([]byte, error) {
	if !t.scanner.Scan() {
		if err := t.scanner.Err(); err != nil {
			return nil, &TransportError{Op: "read", Err: err}
		}
		return nil, io.EOF
	}
	return t.scanner.Bytes(), nil
}

// Close terminates the child process. Safe to call more than once.
func (t *stdioTransport) Close() {
	_ = t.stdin.Close()
	if t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
	// Reap the child; the error is uninteresting after a kill
	_ = t.cmd.Wait()
}

func (t *stdioTransport) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		t.logger.Debug(context.Background(), "Tool server stderr", map[string]interface{}{
			"line": scanner.Text(),
		})
	}
}

func flattenEnv(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	flat := make([]string, 0, len(env))
	for _, k := range keys {
		flat = append(flat, k+"="+env[k])
	}
	return flat
}
