// Package secret implements the symmetric encryption and audit-logging
// layer for credentials the tunnel manager and connection layer handle:
// SSH passwords, private keys, and passphrases (spec.md §4.7), grounded on
// the original implementation's SecurityManager (security.py).
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/crypto/pbkdf2"

	"schemasync/internal/core"
)

const (
	masterKeyLen  = 32
	masterSaltLen = 32
	saltLen       = 16
	ivLen         = 16
	gcmTagLen     = 16
	pbkdf2Iters   = 100_000
)

// Store holds the master key material and audit logger used to encrypt and
// decrypt classified credential values (spec.md §4.7).
type Store struct {
	masterKey []byte
	keyPath   string
	log       *zap.Logger
}

// New loads the master key from keyPath, creating one with mode 0600 if it
// doesn't exist yet. A key file of the wrong length is treated as
// corrupted and regenerated, matching the original's self-healing
// behavior (security.py's _get_or_create_master_key).
func New(keyPath string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{keyPath: keyPath, log: log}
	key, err := s.loadOrCreateMasterKey()
	if err != nil {
		return nil, err
	}
	s.masterKey = key
	return s, nil
}

func (s *Store) loadOrCreateMasterKey() ([]byte, error) {
	data, err := os.ReadFile(s.keyPath)
	if err == nil {
		if len(data) != masterKeyLen+masterSaltLen {
			s.log.Warn("corrupted master key file, regenerating", zap.String("path", s.keyPath))
			if rmErr := os.Remove(s.keyPath); rmErr != nil {
				return nil, fmt.Errorf("secret: removing corrupted master key: %w", rmErr)
			}
			return s.loadOrCreateMasterKey()
		}
		return data[:masterKeyLen], nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("secret: reading master key: %w", err)
	}

	key := make([]byte, masterKeyLen)
	salt := make([]byte, masterSaltLen)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("secret: generating master key: %w", err)
	}
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("secret: generating master key salt: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.keyPath), 0o700); err != nil {
		return nil, fmt.Errorf("secret: creating master key directory: %w", err)
	}
	if err := os.WriteFile(s.keyPath, append(key, salt...), 0o600); err != nil {
		return nil, fmt.Errorf("secret: writing master key: %w", err)
	}

	s.log.Info("master_key_created", zap.Int("key_bits", masterKeyLen*8), zap.Int("salt_bits", masterSaltLen*8))
	return key, nil
}

// Encrypt encrypts value per its classification: INTERNAL/CONFIDENTIAL use
// AES-256-CBC with the raw master key; RESTRICTED uses AES-256-GCM with a
// PBKDF2-derived per-value key (spec.md §4.7).
func (s *Store) Encrypt(value string, class core.Classification) (string, error) {
	if value == "" {
		return "", nil
	}

	salt := make([]byte, saltLen)
	iv := make([]byte, ivLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", s.encryptFailed(class, err)
	}
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", s.encryptFailed(class, err)
	}

	var out []byte
	if class == core.ClassRestricted {
		key := s.deriveKey(salt)
		block, err := aes.NewCipher(key)
		if err != nil {
			return "", s.encryptFailed(class, err)
		}
		gcm, err := cipher.NewGCMWithNonceSize(block, ivLen)
		if err != nil {
			return "", s.encryptFailed(class, err)
		}
		ciphertext := gcm.Seal(nil, iv, []byte(value), nil)
		// Seal appends the tag to the ciphertext; spec.md's wire layout wants
		// salt || iv || tag || ciphertext, so split it back out.
		tag := ciphertext[len(ciphertext)-gcmTagLen:]
		body := ciphertext[:len(ciphertext)-gcmTagLen]
		out = append(out, salt...)
		out = append(out, iv...)
		out = append(out, tag...)
		out = append(out, body...)
	} else {
		block, err := aes.NewCipher(s.masterKey)
		if err != nil {
			return "", s.encryptFailed(class, err)
		}
		padded := pkcs7Pad([]byte(value), block.BlockSize())
		ciphertext := make([]byte, len(padded))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
		out = append(out, salt...)
		out = append(out, iv...)
		out = append(out, ciphertext...)
	}

	s.log.Info("data_encrypted", zap.String("classification", string(class)), zap.Int("data_length", len(value)))
	return base64.StdEncoding.EncodeToString(out), nil
}

func (s *Store) encryptFailed(class core.Classification, err error) error {
	s.log.Error("encryption_failed", zap.String("classification", string(class)), zap.Error(err))
	return fmt.Errorf("secret: encrypt: %w", err)
}

// Decrypt reverses Encrypt for the same classification.
func (s *Store) Decrypt(encoded string, class core.Classification) (string, error) {
	if encoded == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", s.decryptFailed(class, err)
	}

	if class == core.ClassRestricted {
		if len(data) < saltLen+ivLen+gcmTagLen {
			return "", s.decryptFailed(class, errors.New("ciphertext too short"))
		}
		salt := data[:saltLen]
		iv := data[saltLen : saltLen+ivLen]
		tag := data[saltLen+ivLen : saltLen+ivLen+gcmTagLen]
		body := data[saltLen+ivLen+gcmTagLen:]

		key := s.deriveKey(salt)
		block, err := aes.NewCipher(key)
		if err != nil {
			return "", s.decryptFailed(class, err)
		}
		gcm, err := cipher.NewGCMWithNonceSize(block, ivLen)
		if err != nil {
			return "", s.decryptFailed(class, err)
		}
		plaintext, err := gcm.Open(nil, iv, append(body, tag...), nil)
		if err != nil {
			return "", s.decryptFailed(class, err)
		}
		return string(plaintext), nil
	}

	if len(data) < saltLen+ivLen {
		return "", s.decryptFailed(class, errors.New("ciphertext too short"))
	}
	iv := data[saltLen : saltLen+ivLen]
	ciphertext := data[saltLen+ivLen:]

	block, err := aes.NewCipher(s.masterKey)
	if err != nil {
		return "", s.decryptFailed(class, err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return "", s.decryptFailed(class, errors.New("invalid ciphertext length"))
	}
	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)
	plaintext, err := pkcs7Unpad(padded)
	if err != nil {
		return "", s.decryptFailed(class, err)
	}
	return string(plaintext), nil
}

func (s *Store) decryptFailed(class core.Classification, err error) error {
	s.log.Error("decryption_failed", zap.String("classification", string(class)), zap.Error(err))
	return fmt.Errorf("secret: decrypt failed: %w", err)
}

func (s *Store) deriveKey(salt []byte) []byte {
	return pbkdf2.Key([]byte(fmt.Sprintf("%x", s.masterKey)), salt, pbkdf2Iters, masterKeyLen, sha256.New)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := make([]byte, padLen)
	for i := range padding {
		padding[i] = byte(padLen)
	}
	return append(data, padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty plaintext")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, errors.New("invalid padding")
	}
	return data[:len(data)-padLen], nil
}
