package tunnel

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"schemasync/internal/core"
	"schemasync/internal/secret"
)

// buildClientConfig assembles an ssh.ClientConfig for one of the three
// authentication methods spec.md §4.6 names. Key content arrives either
// already encrypted (decrypted here via store) or as a plaintext PEM
// starting with "-----BEGIN". Unlike the original's asyncssh-based
// implementation, golang.org/x/crypto/ssh parses key material directly from
// memory, so no temporary key file is written or cleaned up here.
func buildClientConfig(spec *core.TunnelSpec, store *secret.Store) (*ssh.ClientConfig, error) {
	auth, err := authMethod(spec, store)
	if err != nil {
		return nil, err
	}
	hostKeyCallback, err := hostKeyCallback(spec)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(spec.ConnectTimeoutS) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &ssh.ClientConfig{
		User:            spec.SSHUser,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}, nil
}

func authMethod(spec *core.TunnelSpec, store *secret.Store) (ssh.AuthMethod, error) {
	switch spec.Auth {
	case core.AuthPassword:
		password, err := store.Decrypt(spec.Password, core.ClassConfidential)
		if err != nil {
			return nil, fmt.Errorf("tunnel: decrypting ssh password: %w", err)
		}
		return ssh.Password(password), nil

	case core.AuthPrivateKey:
		keyContent, err := resolvePrivateKeyContent(spec, store)
		if err != nil {
			return nil, err
		}
		passphrase := ""
		if spec.Passphrase != "" {
			passphrase, err = store.Decrypt(spec.Passphrase, core.ClassRestricted)
			if err != nil {
				return nil, fmt.Errorf("tunnel: decrypting ssh key passphrase: %w", err)
			}
		}

		var signer ssh.Signer
		if passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase([]byte(keyContent), []byte(passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey([]byte(keyContent))
		}
		if err != nil {
			return nil, fmt.Errorf("tunnel: parsing ssh private key: %w", err)
		}
		return ssh.PublicKeys(signer), nil

	case core.AuthAgent:
		socket := os.Getenv("SSH_AUTH_SOCK")
		if socket == "" {
			return nil, fmt.Errorf("tunnel: SSH agent authentication requested but SSH_AUTH_SOCK is not set")
		}
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return nil, fmt.Errorf("tunnel: connecting to ssh-agent: %w", err)
		}
		client := agent.NewClient(conn)
		return ssh.PublicKeysCallback(client.Signers), nil

	default:
		return nil, fmt.Errorf("tunnel: unknown auth method %q", spec.Auth)
	}
}

func resolvePrivateKeyContent(spec *core.TunnelSpec, store *secret.Store) (string, error) {
	if spec.KeyIsPath {
		data, err := os.ReadFile(spec.PrivateKey)
		if err != nil {
			return "", fmt.Errorf("tunnel: reading private key file %s: %w", spec.PrivateKey, err)
		}
		return string(data), nil
	}
	if strings.HasPrefix(spec.PrivateKey, "-----BEGIN") {
		return spec.PrivateKey, nil
	}
	content, err := store.Decrypt(spec.PrivateKey, core.ClassRestricted)
	if err != nil {
		return "", fmt.Errorf("tunnel: decrypting ssh private key: %w", err)
	}
	return content, nil
}

func hostKeyCallback(spec *core.TunnelSpec) (ssh.HostKeyCallback, error) {
	if !spec.StrictHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if spec.KnownHostsPath == "" {
		return nil, fmt.Errorf("tunnel: strict host key checking requested but no known_hosts path was provided")
	}
	callback, err := knownhosts.New(spec.KnownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("tunnel: loading known_hosts file %s: %w", spec.KnownHostsPath, err)
	}
	return callback, nil
}
