package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHDialer connects to aliases of an SSHConfig with agent and key file
// authentication.
type SSHDialer struct {
	config         *SSHConfig
	knownHostsPath string
	insecure       bool
	connectTimeout time.Duration
}

// NewSSHDialer creates a dialer. Host keys are verified against
// knownHostsPath unless insecure is set.
func NewSSHDialer(config *SSHConfig, knownHostsPath string, insecure bool, connectTimeout time.Duration) *SSHDialer {
	return &SSHDialer{
		config:         config,
		knownHostsPath: knownHostsPath,
		insecure:       insecure,
		connectTimeout: connectTimeout,
	}
}

// Dial opens an authenticated connection to alias. The handshake observes
// ctx's deadline.
func (d *SSHDialer) Dial(ctx context.Context, alias string) (Session, error) {
	hostKeys, err := d.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	auth, closeAgent := d.authMethods(alias)
	defer closeAgent()
	if len(auth) == 0 {
		return nil, errors.New("no ssh agent or identity file available")
	}

	clientConfig := &ssh.ClientConfig{
		User:            d.config.User(alias),
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         d.connectTimeout,
	}

	addr := net.JoinHostPort(d.config.HostName(alias), d.config.Port(alias))
	dialer := &net.Dialer{Timeout: d.connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	conn.SetDeadline(time.Time{})

	return &sshSession{client: ssh.NewClient(c, chans, reqs)}, nil
}

func (d *SSHDialer) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if d.insecure {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(d.knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("loading known hosts %s: %w", d.knownHostsPath, err)
	}
	return cb, nil
}

func (d *SSHDialer) authMethods(alias string) ([]ssh.AuthMethod, func()) {
	var methods []ssh.AuthMethod
	closeAgent := func() {}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
			closeAgent = func() { conn.Close() }
		} else {
			slog.Debug("ssh agent unavailable", "socket", sock, "error", err)
		}
	}

	var signers []ssh.Signer
	for _, path := range d.config.IdentityFiles(alias) {
		pem, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			slog.Debug("skipping unusable identity file", "path", path, "error", err)
			continue
		}
		signers = append(signers, signer)
	}
	if len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}
	return methods, closeAgent
}

type sshSession struct {
	client *ssh.Client
}

// Run executes command in a fresh channel. A non-zero exit is a result, not
// an error; errors are transport failures or ctx expiring.
func (s *sshSession) Run(ctx context.Context, command string) (ExecResult, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return ExecResult{}, fmt.Errorf("opening session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		session.Close()
		return ExecResult{}, ctx.Err()
	case err := <-done:
		result := ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}
		if err != nil {
			var exitErr *ssh.ExitError
			if !errors.As(err, &exitErr) {
				return ExecResult{}, fmt.Errorf("running %q: %w", command, err)
			}
			result.ExitStatus = exitErr.ExitStatus()
		}
		result.Reason = Classify(result.ExitStatus, result.Stderr)
		return result, nil
	}
}

func (s *sshSession) Close() error {
	return s.client.Close()
}
