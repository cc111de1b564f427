package secret

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"schemasync/internal/core"
)

// KeyType identifies the asymmetric algorithm backing an SSH private key
// (spec.md §4.7).
type KeyType string

const (
	KeyRSA     KeyType = "RSA"
	KeyED25519 KeyType = "ED25519"
	KeyECDSA   KeyType = "ECDSA"
	KeyDSA     KeyType = "DSA"
	KeyUnknown KeyType = "UNKNOWN"
)

// KeyInfo is the metadata a validated SSH private key yields, without the
// key material itself.
type KeyInfo struct {
	Valid            bool
	Encrypted        bool
	Type             KeyType
	BitSize          int
	Fingerprint      string // "SHA256:<base64>" of the DER SubjectPublicKeyInfo
	ValidationErrors []string
}

// ValidateKey parses PEM key material (optionally passphrase-protected),
// identifying its type, size, and fingerprint (spec.md §4.7). DSA support
// was dropped from both crypto/x509 and golang.org/x/crypto/ssh; a DSA PEM
// header is recognized by name only and reported as KeyDSA with validation
// errors set, since this module never needs to establish a session with
// one — only classify a key a user already has.
func ValidateKey(pemData []byte, passphrase string) KeyInfo {
	info := KeyInfo{Type: KeyUnknown}

	block, _ := pem.Decode(pemData)
	if block == nil {
		info.ValidationErrors = append(info.ValidationErrors, "no PEM block found")
		return info
	}

	if block.Type == "DSA PRIVATE KEY" {
		info.Type = KeyDSA
		info.ValidationErrors = append(info.ValidationErrors, "DSA keys are recognized but not validated (unsupported by the Go standard library and golang.org/x/crypto/ssh)")
		return info
	}

	var signer ssh.Signer
	var err error
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pemData, []byte(passphrase))
		info.Encrypted = true
	} else {
		signer, err = ssh.ParsePrivateKey(pemData)
	}
	if err != nil {
		info.ValidationErrors = append(info.ValidationErrors, fmt.Sprintf("invalid key format: %v", err))
		return info
	}

	key, err := x509ParseAny(pemData, passphrase)
	if err == nil {
		switch k := key.(type) {
		case *rsa.PrivateKey:
			info.Type = KeyRSA
			info.BitSize = k.N.BitLen()
		case ed25519.PrivateKey:
			info.Type = KeyED25519
			info.BitSize = 256
		case *ecdsa.PrivateKey:
			info.Type = KeyECDSA
			info.BitSize = k.Curve.Params().BitSize
		default:
			info.Type = KeyUnknown
		}
	}

	info.Valid = true
	pub := signer.PublicKey()
	fpInput := pub.Marshal()
	if cpk, ok := pub.(ssh.CryptoPublicKey); ok {
		if der, err := x509.MarshalPKIXPublicKey(cpk.CryptoPublicKey()); err == nil {
			fpInput = der
		}
	}
	info.Fingerprint = "SHA256:" + base64.StdEncoding.EncodeToString(sha256Sum(fpInput))
	return info
}

func sha256Sum(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

func x509ParseAny(pemData []byte, passphrase string) (any, error) {
	// ssh's raw parser covers the OpenSSH format as well as PKCS1/PKCS8/EC
	// PEM, encrypted or not; it returns ed25519 keys by pointer, which is
	// dereferenced to the value type x509 yields.
	var raw any
	var rawErr error
	if passphrase != "" {
		raw, rawErr = ssh.ParseRawPrivateKeyWithPassphrase(pemData, []byte(passphrase))
	} else {
		raw, rawErr = ssh.ParseRawPrivateKey(pemData)
	}
	if rawErr == nil {
		if k, ok := raw.(*ed25519.PrivateKey); ok {
			return *k, nil
		}
		return raw, nil
	}
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block")
	}
	data := block.Bytes
	// x509 has no passphrase-aware entry point for PKCS8/EC/PKCS1 beyond the
	// legacy (and now removed) DecryptPEMBlock, so this fallback parses only
	// the unencrypted forms for type/size.
	if key, err := x509.ParsePKCS1PrivateKey(data); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS8PrivateKey(data); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(data); err == nil {
		return key, nil
	}
	if len(data) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(data), nil
	}
	return nil, fmt.Errorf("unsupported key encoding")
}

// Vault persists SSH private keys at rest, encrypted at RESTRICTED
// classification, alongside non-secret JSON metadata (spec.md §4.7, §6),
// grounded on the original's secure_store_ssh_key/retrieve_ssh_key/
// delete_ssh_key (security.py).
type Vault struct {
	store *Store
	dir   string
	log   *zap.Logger
}

// KeyMetadata is the non-secret sidecar persisted per stored key.
type KeyMetadata struct {
	KeyID           string    `json:"key_id"`
	CreatedAt       time.Time `json:"created_at"`
	HasPassphrase   bool      `json:"has_passphrase"`
	Fingerprint     string    `json:"fingerprint"`
	KeyType         KeyType   `json:"key_type"`
	BitSize         int       `json:"key_size"`
	Valid           bool      `json:"is_valid"`
	ValidationIssue []string  `json:"validation_errors,omitempty"`
	LastUsed        *time.Time `json:"last_used,omitempty"`
	UsageCount      int       `json:"usage_count"`
}

// NewVault opens a key vault rooted at dir, creating it with mode 0700.
func NewVault(store *Store, dir string, log *zap.Logger) (*Vault, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("secret: creating key vault directory: %w", err)
	}
	return &Vault{store: store, dir: dir, log: log}, nil
}

func (v *Vault) keyPath(id string) string  { return filepath.Join(v.dir, id+".key") }
func (v *Vault) metaPath(id string) string { return filepath.Join(v.dir, id+".meta") }

// Store encrypts keyContent at RESTRICTED classification and writes it
// alongside validation metadata.
func (v *Vault) Store(id, keyContent, passphrase string) (KeyMetadata, error) {
	info := ValidateKey([]byte(keyContent), passphrase)

	encrypted, err := v.store.Encrypt(keyContent, core.ClassRestricted)
	if err != nil {
		v.log.Error("ssh_key_storage_failed", zap.String("key_id", id), zap.Error(err))
		return KeyMetadata{}, fmt.Errorf("secret: storing ssh key %s: %w", id, err)
	}
	if err := os.WriteFile(v.keyPath(id), []byte(encrypted), 0o600); err != nil {
		return KeyMetadata{}, fmt.Errorf("secret: writing ssh key file: %w", err)
	}

	meta := KeyMetadata{
		KeyID: id, CreatedAt: nowFunc(), HasPassphrase: passphrase != "",
		Fingerprint: info.Fingerprint, KeyType: info.Type, BitSize: info.BitSize,
		Valid: info.Valid, ValidationIssue: info.ValidationErrors,
	}
	if err := v.writeMeta(id, meta); err != nil {
		return KeyMetadata{}, err
	}

	v.log.Info("ssh_key_stored", zap.String("key_id", id), zap.String("key_type", string(info.Type)), zap.Bool("is_valid", info.Valid))
	return meta, nil
}

func (v *Vault) writeMeta(id string, meta KeyMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("secret: marshaling key metadata: %w", err)
	}
	return os.WriteFile(v.metaPath(id), data, 0o600)
}

func (v *Vault) readMeta(id string) (KeyMetadata, error) {
	data, err := os.ReadFile(v.metaPath(id))
	if err != nil {
		return KeyMetadata{}, fmt.Errorf("secret: reading key metadata: %w", err)
	}
	var meta KeyMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return KeyMetadata{}, fmt.Errorf("secret: parsing key metadata: %w", err)
	}
	return meta, nil
}

// Retrieve decrypts a stored key and bumps its usage counter.
func (v *Vault) Retrieve(id string) (string, KeyMetadata, error) {
	meta, err := v.readMeta(id)
	if err != nil {
		v.log.Error("ssh_key_retrieval_failed", zap.String("key_id", id), zap.Error(err))
		return "", KeyMetadata{}, err
	}

	encrypted, err := os.ReadFile(v.keyPath(id))
	if err != nil {
		v.log.Error("ssh_key_retrieval_failed", zap.String("key_id", id), zap.Error(err))
		return "", KeyMetadata{}, fmt.Errorf("secret: reading ssh key %s: %w", id, err)
	}

	content, err := v.store.Decrypt(string(encrypted), core.ClassRestricted)
	if err != nil {
		return "", KeyMetadata{}, fmt.Errorf("secret: decrypting ssh key %s: %w", id, err)
	}

	now := nowFunc()
	meta.LastUsed = &now
	meta.UsageCount++
	if err := v.writeMeta(id, meta); err != nil {
		return "", KeyMetadata{}, err
	}

	v.log.Info("ssh_key_retrieved", zap.String("key_id", id), zap.Int("usage_count", meta.UsageCount))
	return content, meta, nil
}

// List returns every stored key's metadata, newest first.
func (v *Vault) List() ([]KeyMetadata, error) {
	entries, err := os.ReadDir(v.dir)
	if err != nil {
		return nil, fmt.Errorf("secret: listing key vault: %w", err)
	}
	var metas []KeyMetadata
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".meta" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".meta")]
		meta, err := v.readMeta(id)
		if err != nil {
			v.log.Warn("failed to read key metadata", zap.String("key_id", id), zap.Error(err))
			continue
		}
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].CreatedAt.After(metas[j].CreatedAt) })
	return metas, nil
}

// Delete securely removes a key: three overwrite passes with random data
// before unlinking the key file, then the metadata sidecar.
func (v *Vault) Delete(id string) error {
	path := v.keyPath(id)
	if info, err := os.Stat(path); err == nil {
		if err := secureOverwrite(path, info.Size()); err != nil {
			v.log.Error("ssh_key_deletion_failed", zap.String("key_id", id), zap.Error(err))
			return fmt.Errorf("secret: securely deleting ssh key %s: %w", id, err)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("secret: removing ssh key file: %w", err)
		}
	}
	if err := os.Remove(v.metaPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("secret: removing key metadata: %w", err)
	}
	v.log.Info("ssh_key_deleted", zap.String("key_id", id))
	return nil
}

func secureOverwrite(path string, size int64) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, size)
	for pass := 0; pass < 3; pass++ {
		if _, err := rand.Read(buf); err != nil {
			return err
		}
		if _, err := f.WriteAt(buf, 0); err != nil {
			return err
		}
		if err := f.Sync(); err != nil {
			return err
		}
	}
	return nil
}

// nowFunc is a seam for tests; production always calls time.Now.
var nowFunc = time.Now
