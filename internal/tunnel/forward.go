package tunnel

import (
	"context"
	"fmt"
	"io"
	"net"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// createDirect opens an in-process SSH session and a local forwarder for t,
// the standard Go idiom for `ssh -L` (spec.md §4.6): a loopback net.Listener
// accepts connections and each one is bridged to client.Dial(remote) by two
// io.Copy goroutines, rather than shelling out to a system ssh binary the
// way the original's host-side proxy path does.
func (m *Manager) createDirect(ctx context.Context, t *Tunnel) error {
	config, err := buildClientConfig(t.Spec, m.store)
	if err != nil {
		return err
	}

	sshAddr := fmt.Sprintf("%s:%d", t.Spec.SSHHost, t.Spec.SSHPort)
	dialer := net.Dialer{Timeout: config.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", sshAddr)
	if err != nil {
		return fmt.Errorf("tunnel: dialing %s: %w", sshAddr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, sshAddr, config)
	if err != nil {
		_ = netConn.Close()
		return fmt.Errorf("tunnel: ssh handshake with %s: %w", sshAddr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	localPort := t.Spec.LocalBindPort
	if localPort == 0 {
		localPort, err = findFreePort(firstCandidatePort)
		if err != nil {
			_ = client.Close()
			return err
		}
	}

	listenAddr := fmt.Sprintf("127.0.0.1:%d", localPort)
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("tunnel: binding local forward port %s: %w", listenAddr, err)
	}

	remoteAddr := fmt.Sprintf("%s:%d", t.Spec.RemoteBindHost, t.Spec.RemoteBindPort)

	t.mu.Lock()
	t.client = client
	t.listener = listener
	t.localPort = localPort
	t.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.acceptLoop(t, listener, client, remoteAddr)
	}()

	return nil
}

func (m *Manager) acceptLoop(t *Tunnel, listener net.Listener, client *ssh.Client, remoteAddr string) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		t.mu.Lock()
		t.connectionsCount++
		t.mu.Unlock()
		go m.forwardConn(t, conn, client, remoteAddr)
	}
}

func (m *Manager) forwardConn(t *Tunnel, local net.Conn, client *ssh.Client, remoteAddr string) {
	defer local.Close()

	remote, err := client.Dial("tcp", remoteAddr)
	if err != nil {
		m.log.Warn("ssh_tunnel_forward_dial_failed", zap.Error(err))
		return
	}
	defer remote.Close()

	done := make(chan struct{}, 2)
	go func() {
		n, _ := io.Copy(remote, local)
		t.addBytesTransferred(n)
		done <- struct{}{}
	}()
	go func() {
		n, _ := io.Copy(local, remote)
		t.addBytesTransferred(n)
		done <- struct{}{}
	}()
	<-done
}

func (t *Tunnel) addBytesTransferred(n int64) {
	t.mu.Lock()
	t.bytesTransferred += n
	t.mu.Unlock()
}
