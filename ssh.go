package tubes

import (
	"context"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/ssh"
)

// SSHClient dials addr and completes the SSH handshake with the supplied
// configuration, honouring ctx for the TCP connect.
func SSHClient(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}

// SSH runs command on an established SSH client and tubes the session's
// stdin and stdout. The client itself stays owned by the caller; closing
// the tube closes only the session.
func SSH(client *ssh.Client, command string, opts ...Option) (*Tube, error) {
	return sshSession(client, command, false, opts...)
}

// SSHShell requests a PTY and starts a login shell on an established SSH
// client, tubing the shell's stream.
func SSHShell(client *ssh.Client, opts ...Option) (*Tube, error) {
	return sshSession(client, "", true, opts...)
}

func sshSession(client *ssh.Client, command string, shell bool, opts ...Option) (*Tube, error) {
	sess, err := client.NewSession()
	if err != nil {
		return nil, err
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		_ = sess.Close()
		return nil, err
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		_ = sess.Close()
		return nil, err
	}

	if shell {
		modes := ssh.TerminalModes{
			ssh.ECHO:          1,
			ssh.TTY_OP_ISPEED: 14400,
			ssh.TTY_OP_OSPEED: 14400,
		}
		if err := sess.RequestPty("xterm-256color", 24, 80, modes); err != nil {
			_ = sess.Close()
			return nil, err
		}
		err = sess.Shell()
	} else {
		err = sess.Start(command)
	}
	if err != nil {
		_ = sess.Close()
		return nil, err
	}

	return New(&sshTransport{sess: sess, stdin: stdin, stdout: stdout}, opts...), nil
}

// sshTransport is a command or shell running in an SSH session.
type sshTransport struct {
	sess   *ssh.Session
	stdin  io.WriteCloser
	stdout io.Reader

	stdinOnce sync.Once
	stdinErr  error
	closeOnce sync.Once
	closeErr  error
}

var _ Transport = (*sshTransport)(nil)

func (s *sshTransport) Read(b []byte) (int, error) {
	return s.stdout.Read(b)
}

func (s *sshTransport) Write(b []byte) (int, error) {
	return s.stdin.Write(b)
}

// CloseWrite sends EOF on the session's stdin channel.
func (s *sshTransport) CloseWrite() error {
	s.stdinOnce.Do(func() {
		s.stdinErr = s.stdin.Close()
	})
	return s.stdinErr
}

func (s *sshTransport) Close() error {
	s.closeOnce.Do(func() {
		_ = s.CloseWrite()
		s.closeErr = s.sess.Close()
	})
	return s.closeErr
}
