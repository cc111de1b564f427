package tunnel

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"schemasync/internal/core"
	"schemasync/internal/secret"
)

func newTestSecretStore(t *testing.T) *secret.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := secret.New(filepath.Join(dir, "master.key"), nil)
	require.NoError(t, err)
	return s
}

func plainRSAKeyPEM(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(key, "")
	require.NoError(t, err)
	return string(pem.EncodeToMemory(block))
}

func TestAuthMethodPassword(t *testing.T) {
	store := newTestSecretStore(t)
	encrypted, err := store.Encrypt("s3cret", core.ClassConfidential)
	require.NoError(t, err)

	spec := &core.TunnelSpec{Auth: core.AuthPassword, Password: encrypted}
	method, err := authMethod(spec, store)
	require.NoError(t, err)
	assert.NotNil(t, method)
}

func TestAuthMethodPrivateKeyPlainPEM(t *testing.T) {
	store := newTestSecretStore(t)
	spec := &core.TunnelSpec{Auth: core.AuthPrivateKey, PrivateKey: plainRSAKeyPEM(t)}
	method, err := authMethod(spec, store)
	require.NoError(t, err)
	assert.NotNil(t, method)
}

func TestAuthMethodPrivateKeyFromPath(t *testing.T) {
	store := newTestSecretStore(t)
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "id_rsa")
	require.NoError(t, os.WriteFile(keyPath, []byte(plainRSAKeyPEM(t)), 0o600))

	spec := &core.TunnelSpec{Auth: core.AuthPrivateKey, PrivateKey: keyPath, KeyIsPath: true}
	method, err := authMethod(spec, store)
	require.NoError(t, err)
	assert.NotNil(t, method)
}

func TestAuthMethodPrivateKeyEncryptedContent(t *testing.T) {
	store := newTestSecretStore(t)
	plain := plainRSAKeyPEM(t)
	encrypted, err := store.Encrypt(plain, core.ClassRestricted)
	require.NoError(t, err)

	spec := &core.TunnelSpec{Auth: core.AuthPrivateKey, PrivateKey: encrypted}
	method, err := authMethod(spec, store)
	require.NoError(t, err)
	assert.NotNil(t, method)
}

func TestAuthMethodAgentRequiresSocket(t *testing.T) {
	store := newTestSecretStore(t)
	old := os.Getenv("SSH_AUTH_SOCK")
	os.Unsetenv("SSH_AUTH_SOCK")
	defer os.Setenv("SSH_AUTH_SOCK", old)

	spec := &core.TunnelSpec{Auth: core.AuthAgent}
	_, err := authMethod(spec, store)
	assert.Error(t, err)
}

func TestAuthMethodUnknown(t *testing.T) {
	store := newTestSecretStore(t)
	spec := &core.TunnelSpec{Auth: core.AuthMethod("bogus")}
	_, err := authMethod(spec, store)
	assert.Error(t, err)
}

func TestHostKeyCallbackInsecureWhenNotStrict(t *testing.T) {
	spec := &core.TunnelSpec{StrictHostKey: false}
	cb, err := hostKeyCallback(spec)
	require.NoError(t, err)
	assert.NotNil(t, cb)
}

func TestHostKeyCallbackStrictWithoutKnownHostsErrors(t *testing.T) {
	spec := &core.TunnelSpec{StrictHostKey: true}
	_, err := hostKeyCallback(spec)
	assert.Error(t, err)
}

func TestHostKeyCallbackStrictWithMissingKnownHostsFileErrors(t *testing.T) {
	spec := &core.TunnelSpec{StrictHostKey: true, KnownHostsPath: "/nonexistent/known_hosts"}
	_, err := hostKeyCallback(spec)
	assert.Error(t, err)
}

func TestBuildClientConfigDefaultsTimeout(t *testing.T) {
	store := newTestSecretStore(t)
	encrypted, err := store.Encrypt("pw", core.ClassConfidential)
	require.NoError(t, err)

	spec := &core.TunnelSpec{Auth: core.AuthPassword, Password: encrypted, SSHUser: "deploy"}
	cfg, err := buildClientConfig(spec, store)
	require.NoError(t, err)
	assert.Equal(t, "deploy", cfg.User)
	assert.Greater(t, cfg.Timeout.Seconds(), 0.0)
}
