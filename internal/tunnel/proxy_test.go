package tunnel

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProxyServer accepts one connection, decodes the request line, and
// replies with resp.
func fakeProxyServer(t *testing.T, resp proxyResponse) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		reader := bufio.NewReader(conn)
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}
		var req proxyRequest
		_ = json.Unmarshal(line, &req)

		data, _ := json.Marshal(resp)
		data = append(data, '\n')
		_, _ = conn.Write(data)
	}()

	return ln.Addr().String()
}

func TestProxyClientCreateTunnelSuccess(t *testing.T) {
	addr := fakeProxyServer(t, proxyResponse{Success: true, TunnelID: "t-1", LocalPort: 10123})
	client := newProxyClient(addr)

	resp, err := client.createTunnel(context.Background(), proxySpec{SSHHost: "bastion", SSHPort: 22, SSHUser: "deploy", RemoteBindHost: "db.internal", RemoteBindPort: 3306}, 10123, "t-1")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "t-1", resp.TunnelID)
}

func TestProxyClientCreateTunnelFailure(t *testing.T) {
	addr := fakeProxyServer(t, proxyResponse{Success: false, Error: "auth failed"})
	client := newProxyClient(addr)

	resp, err := client.createTunnel(context.Background(), proxySpec{}, 10124, "t-2")
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "auth failed", resp.Error)
}

func TestProxyClientCloseTunnel(t *testing.T) {
	addr := fakeProxyServer(t, proxyResponse{Success: true})
	client := newProxyClient(addr)

	resp, err := client.closeTunnel(context.Background(), "t-1")
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestProxyClientConnectionRefused(t *testing.T) {
	client := newProxyClient("127.0.0.1:1")
	_, err := client.testConnection(context.Background(), proxySpec{})
	assert.Error(t, err)
}
