package tubes

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"
)

// Process spawns a child process and tubes its stdin and stdout through
// pipes. Use Command to customise the environment or working directory.
func Process(ctx context.Context, name string, args ...string) (*Tube, error) {
	return Command(exec.CommandContext(ctx, name, args...))
}

// Command starts a prepared command with piped stdio and wraps it in a
// Tube. The tube owns the process: closing the tube kills and reaps it.
func Command(cmd *exec.Cmd, opts ...Option) (*Tube, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return New(&processTransport{cmd: cmd, stdin: stdin, stdout: stdout}, opts...), nil
}

// ProcessTTY spawns a child process on a pseudo-terminal instead of pipes,
// for programs that change behaviour when not attached to a TTY.
func ProcessTTY(ctx context.Context, name string, args ...string) (*Tube, error) {
	return CommandTTY(exec.CommandContext(ctx, name, args...))
}

// CommandTTY starts a prepared command on a pseudo-terminal and wraps it
// in a Tube. PTYs have no separable write direction, so CloseWrite is
// unsupported on the resulting tube.
func CommandTTY(cmd *exec.Cmd, opts ...Option) (*Tube, error) {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}
	return New(&ptyTransport{cmd: cmd, ptmx: ptmx}, opts...), nil
}

// processTransport is a child process behind stdio pipes.
type processTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	stdinOnce sync.Once
	stdinErr  error
	closeOnce sync.Once
	closeErr  error
}

var _ Transport = (*processTransport)(nil)

func (p *processTransport) Read(b []byte) (int, error) {
	return p.stdout.Read(b)
}

func (p *processTransport) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

// CloseWrite closes the child's stdin so it observes EOF.
func (p *processTransport) CloseWrite() error {
	p.stdinOnce.Do(func() {
		p.stdinErr = p.stdin.Close()
	})
	return p.stdinErr
}

func (p *processTransport) Close() error {
	p.closeOnce.Do(func() {
		_ = p.CloseWrite()
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		// Wait reaps the child and closes the stdout pipe.
		p.closeErr = p.cmd.Wait()
	})
	return p.closeErr
}

// ptyTransport is a child process behind a pseudo-terminal master.
type ptyTransport struct {
	cmd  *exec.Cmd
	ptmx *os.File

	closeOnce sync.Once
	closeErr  error
}

var _ Transport = (*ptyTransport)(nil)

func (p *ptyTransport) Read(b []byte) (int, error) {
	n, err := p.ptmx.Read(b)
	// A pty master reports EIO once the slave side is gone; that is its
	// end-of-stream signal.
	if err != nil && errors.Is(err, syscall.EIO) {
		err = io.EOF
	}
	return n, err
}

func (p *ptyTransport) Write(b []byte) (int, error) {
	return p.ptmx.Write(b)
}

func (p *ptyTransport) CloseWrite() error {
	return errNoHalfClose
}

func (p *ptyTransport) Close() error {
	p.closeOnce.Do(func() {
		_ = p.ptmx.Close()
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		p.closeErr = p.cmd.Wait()
	})
	return p.closeErr
}
