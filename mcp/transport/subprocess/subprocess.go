// Package subprocess is the reference subprocess transport (spec.md
// §4.2, §6): a child process speaking the stdio framing over its
// stdin/stdout, with stderr passed through to the parent's stderr for
// diagnostics. Grounded on original_source's mcp-client subprocess
// launcher and the teacher's process-boundary conventions.
package subprocess

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/modelcontext/mcp-go/mcp/transport/stdio"
	"github.com/modelcontext/mcp-go/mcp/transport/transportcore"
)

// Transport launches a child process and speaks the stdio framing over
// its pipes.
type Transport struct {
	cmd   *exec.Cmd
	inner *stdio.Transport
}

// Start launches name with args, wiring the child's stdin/stdout to a
// stdio.Transport and its stderr to the parent's stderr. The returned
// Transport's Close terminates the child if it is still running.
func Start(name string, args ...string) (*Transport, error) {
	cmd := exec.Command(name, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("subprocess: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("subprocess: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("subprocess: start %s: %w", name, err)
	}

	return &Transport{
		cmd:   cmd,
		inner: stdio.New(stdout, stdin),
	}, nil
}

// Start begins delivering decoded messages from the child's stdout.
func (t *Transport) Start(ctx context.Context, sink transportcore.Sink) error {
	return t.inner.Start(ctx, sink)
}

// Send writes one frame to the child's stdin.
func (t *Transport) Send(ctx context.Context, v any) error {
	return t.inner.Send(ctx, v)
}

// Close closes the child's pipes and waits for it to exit.
func (t *Transport) Close() error {
	closeErr := t.inner.Close()
	waitErr := t.cmd.Wait()
	if closeErr != nil {
		return closeErr
	}
	if waitErr != nil {
		if _, ok := waitErr.(*exec.ExitError); ok {
			// A child killed by closing its stdin is expected to exit
			// non-zero; that is not a transport failure.
			return nil
		}
		return fmt.Errorf("subprocess: wait: %w", waitErr)
	}
	return nil
}

// Clone returns the same Transport; see stdio.Transport.Clone.
func (t *Transport) Clone() (transportcore.Transport, error) {
	return t, nil
}
