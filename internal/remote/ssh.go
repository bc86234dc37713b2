package remote

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/ssh"

	"quantship-deployment/internal/config"
)

// DialSSH opens an SSH control channel to the target host. The channel
// is a single long-lived connection; each Exec runs one command in its
// own session on top of it.
func DialSSH(target config.Target, creds config.Credentials) (Session, error) {
	auth, err := authMethods(creds)
	if err != nil {
		return nil, err
	}

	clientConfig := &ssh.ClientConfig{
		User:            target.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         15 * time.Second,
	}

	addr := fmt.Sprintf("%s:%d", target.Host, target.Port)
	client, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	return &sshSession{client: client}, nil
}

func authMethods(creds config.Credentials) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if creds.SSHKeyPath != "" {
		keyData, err := os.ReadFile(creds.SSHKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH key %s: %w", creds.SSHKeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse SSH key %s: %w", creds.SSHKeyPath, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if creds.SSHPassword != "" {
		methods = append(methods, ssh.Password(creds.SSHPassword))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no SSH credentials provided: set ssh_key_path or ssh_password")
	}

	return methods, nil
}

type sshSession struct {
	client *ssh.Client
}

func (s *sshSession) Exec(command string) (string, string, int, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to open session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	err = session.Run(command)
	exitCode := 0
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitStatus()
		} else {
			return stdout.String(), stderr.String(), 0, fmt.Errorf("failed to run %q: %w", command, err)
		}
	}

	return stdout.String(), stderr.String(), exitCode, nil
}

func (s *sshSession) Close() error {
	return s.client.Close()
}
