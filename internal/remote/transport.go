package remote

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gcefire/internal/logging"

	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// Transport is the minimal remote-shell surface the executor drives.
type Transport interface {
	// Probe runs a trivial remote command to test reachability.
	Probe(host, keyPath string) error
	// CopyFile uploads a local file into the remote home directory.
	CopyFile(host, localPath, keyPath string) error
	// RunCommand executes a command remotely and returns its stdout.
	RunCommand(host, command, keyPath string) (string, error)
	// PurgeKnownHost drops any known-hosts entry for host. Best effort.
	PurgeKnownHost(host string)
}

// sshTransport implements Transport over SSH and SFTP. Every call dials a
// fresh connection; the instances are short-lived and the handshake itself
// is part of what Probe is testing.
type sshTransport struct {
	user        string
	dialTimeout time.Duration
	log         *zap.Logger
}

// NewSSHTransport creates the production transport for the given remote user.
func NewSSHTransport(user string, log *zap.Logger) Transport {
	return &sshTransport{user: user, dialTimeout: 30 * time.Second, log: log}
}

func (t *sshTransport) dial(host, keyPath string) (*ssh.Client, error) {
	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	// Host keys are throwaway: ephemeral instances regenerate them on every
	// boot, so there is nothing stable to pin against.
	clientConfig := &ssh.ClientConfig{
		User:            t.user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         t.dialTimeout,
	}

	client, err := ssh.Dial("tcp", net.JoinHostPort(host, "22"), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", host, err)
	}
	return client, nil
}

func (t *sshTransport) Probe(host, keyPath string) error {
	client, err := t.dial(host, keyPath)
	if err != nil {
		return err
	}
	defer t.close("SSH client", client.Close)

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer t.close("SSH session", session.Close)

	if out, err := session.CombinedOutput("echo 1"); err != nil {
		return fmt.Errorf("probe command failed: %w: %s", err, bytes.TrimSpace(out))
	}
	return nil
}

func (t *sshTransport) CopyFile(host, localPath, keyPath string) error {
	client, err := t.dial(host, keyPath)
	if err != nil {
		return err
	}
	defer t.close("SSH client", client.Close)

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return fmt.Errorf("failed to create SFTP client: %w", err)
	}
	defer t.close("SFTP client", sftpClient.Close)

	local, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer t.close("local file", local.Close)

	remoteName := filepath.Base(localPath)
	remote, err := sftpClient.Create(remoteName)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s: %w", remoteName, err)
	}
	defer t.close("remote file", remote.Close)

	written, err := remote.ReadFrom(local)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", localPath, err)
	}

	t.log.Info("Script uploaded",
		zap.String("host", host),
		zap.String("local_path", localPath),
		zap.String("remote_name", remoteName),
		zap.Int64("size_bytes", written))
	return nil
}

func (t *sshTransport) RunCommand(host, command, keyPath string) (string, error) {
	client, err := t.dial(host, keyPath)
	if err != nil {
		return "", err
	}
	defer t.close("SSH client", client.Close)

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	defer t.close("SSH session", session.Close)

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	t.log.Debug("Executing command",
		zap.String("command", logging.Truncate(command)),
		zap.String("host", host))

	runErr := session.Run(command)

	t.log.Info("Command executed",
		zap.String("command", logging.Truncate(command)),
		zap.String("host", host),
		zap.String("stdout", logging.EscapeNewlines(logging.Truncate(stdout.String()))),
		zap.String("stderr", logging.EscapeNewlines(logging.Truncate(stderr.String()))),
		zap.Bool("success", runErr == nil))

	if runErr != nil {
		return "", fmt.Errorf("remote command failed: %w: %s", runErr, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.String(), nil
}

func (t *sshTransport) close(name string, closer func() error) {
	if err := closer(); err != nil {
		t.log.Warn("failed to close resource", zap.String("resource", name), zap.Error(err))
	}
}
