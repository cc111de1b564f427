package secret

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemasync/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "master.key"), nil)
	require.NoError(t, err)
	return s
}

func TestEncryptDecryptRoundTripInternal(t *testing.T) {
	s := newTestStore(t)
	ciphertext, err := s.Encrypt("tunnel-password-123", core.ClassInternal)
	require.NoError(t, err)
	assert.NotEmpty(t, ciphertext)
	assert.NotContains(t, ciphertext, "tunnel-password-123")

	plaintext, err := s.Decrypt(ciphertext, core.ClassInternal)
	require.NoError(t, err)
	assert.Equal(t, "tunnel-password-123", plaintext)
}

func TestEncryptDecryptRoundTripConfidential(t *testing.T) {
	s := newTestStore(t)
	ciphertext, err := s.Encrypt("db-password", core.ClassConfidential)
	require.NoError(t, err)

	plaintext, err := s.Decrypt(ciphertext, core.ClassConfidential)
	require.NoError(t, err)
	assert.Equal(t, "db-password", plaintext)
}

func TestEncryptDecryptRoundTripRestricted(t *testing.T) {
	s := newTestStore(t)
	ciphertext, err := s.Encrypt("-----BEGIN KEY-----\nabc\n-----END KEY-----", core.ClassRestricted)
	require.NoError(t, err)

	plaintext, err := s.Decrypt(ciphertext, core.ClassRestricted)
	require.NoError(t, err)
	assert.Equal(t, "-----BEGIN KEY-----\nabc\n-----END KEY-----", plaintext)
}

func TestEncryptEmptyValueIsNoop(t *testing.T) {
	s := newTestStore(t)
	ciphertext, err := s.Encrypt("", core.ClassRestricted)
	require.NoError(t, err)
	assert.Equal(t, "", ciphertext)

	plaintext, err := s.Decrypt("", core.ClassRestricted)
	require.NoError(t, err)
	assert.Equal(t, "", plaintext)
}

func TestDecryptGCMRejectsTamperedCiphertext(t *testing.T) {
	s := newTestStore(t)
	ciphertext, err := s.Encrypt("secret-value", core.ClassRestricted)
	require.NoError(t, err)

	tampered := []byte(ciphertext)
	tampered[len(tampered)-1] ^= 0xFF
	_, err = s.Decrypt(string(tampered), core.ClassRestricted)
	assert.Error(t, err)
}

func TestNewPersistsMasterKeyAcrossLoads(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "nested", "master.key")

	s1, err := New(keyPath, nil)
	require.NoError(t, err)
	ciphertext, err := s1.Encrypt("hello", core.ClassInternal)
	require.NoError(t, err)

	s2, err := New(keyPath, nil)
	require.NoError(t, err)
	plaintext, err := s2.Decrypt(ciphertext, core.ClassInternal)
	require.NoError(t, err)
	assert.Equal(t, "hello", plaintext)
}

func TestNewRegeneratesCorruptedMasterKey(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "master.key")
	require.NoError(t, os.WriteFile(keyPath, []byte("too-short"), 0o600))

	s, err := New(keyPath, nil)
	require.NoError(t, err)
	assert.NotNil(t, s)

	data, err := os.ReadFile(keyPath)
	require.NoError(t, err)
	assert.Len(t, data, masterKeyLen+masterSaltLen)
}

func TestPkcs7PadUnpadRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 15, 16, 17, 31} {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i)
		}
		padded := pkcs7Pad(data, 16)
		assert.Equal(t, 0, len(padded)%16)
		unpadded, err := pkcs7Unpad(padded)
		require.NoError(t, err)
		assert.Equal(t, data, unpadded)
	}
}

func TestPkcs7UnpadRejectsInvalidPadding(t *testing.T) {
	_, err := pkcs7Unpad([]byte{})
	assert.Error(t, err)

	_, err = pkcs7Unpad([]byte{1, 2, 3, 0})
	assert.Error(t, err)
}
