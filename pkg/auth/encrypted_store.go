package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// PassphraseEnv overrides the generated passphrase of the encrypted store
const PassphraseEnv = "PEXELSCRAPER_PASSPHRASE"

const (
	vaultVersion     = 2
	vaultSaltBytes   = 16
	vaultKeyBytes    = 32
	vaultKDFRounds   = 210000
	passphraseFile   = ".passphrase"
	passphraseLength = 32
)

// vaultFile is the on-disk layout. Accounts are sealed with AES-256-GCM
// under a key derived from the passphrase and Salt.
type vaultFile struct {
	Version    int       `json:"version"`
	Salt       []byte    `json:"salt"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EncryptedFileStore keeps API keys in one encrypted file. It is used when
// the system keychain is unavailable.
type EncryptedFileStore struct {
	path       string
	passphrase []byte

	mu   sync.Mutex
	salt []byte
	key  []byte
}

// NewEncryptedFileStore opens the store at path. The passphrase comes from
// PEXELSCRAPER_PASSPHRASE, or from a random one kept next to the file.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	passphrase, err := loadPassphrase(filepath.Join(filepath.Dir(path), passphraseFile))
	if err != nil {
		return nil, err
	}
	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

func loadPassphrase(path string) ([]byte, error) {
	if env := os.Getenv(PassphraseEnv); env != "" {
		return []byte(env), nil
	}

	existing, err := os.ReadFile(path)
	if err == nil && len(existing) > 0 {
		return existing, nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}

	raw := make([]byte, passphraseLength)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate passphrase: %w", err)
	}
	generated := []byte(base64.RawURLEncoding.EncodeToString(raw))
	if err := os.WriteFile(path, generated, 0600); err != nil {
		return nil, fmt.Errorf("failed to save passphrase: %w", err)
	}
	return generated, nil
}

// Store adds or replaces account
func (e *EncryptedFileStore) Store(account *Account) error {
	if account == nil || account.Name == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.open()
	if err != nil {
		return err
	}
	accounts[account.Name] = *account
	return e.seal(accounts)
}

// Retrieve returns the account called name
func (e *EncryptedFileStore) Retrieve(name string) (*Account, error) {
	if name == "" {
		return nil, ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.open()
	if err != nil {
		return nil, err
	}
	account, ok := accounts[name]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

// List returns every stored account ordered by name
func (e *EncryptedFileStore) List() ([]*Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.open()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(accounts))
	for name := range accounts {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*Account, 0, len(names))
	for _, name := range names {
		account := accounts[name]
		out = append(out, &account)
	}
	return out, nil
}

// Delete removes the account called name. The file goes away with the
// last account.
func (e *EncryptedFileStore) Delete(name string) error {
	if name == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.open()
	if err != nil {
		return err
	}
	if _, ok := accounts[name]; !ok {
		return ErrCredentialsNotFound
	}
	delete(accounts, name)

	if len(accounts) == 0 {
		e.salt, e.key = nil, nil
		return os.Remove(e.path)
	}
	return e.seal(accounts)
}

// Exists reports whether name can be retrieved
func (e *EncryptedFileStore) Exists(name string) bool {
	_, err := e.Retrieve(name)
	return err == nil
}

// open decrypts the file. A missing file is an empty store.
func (e *EncryptedFileStore) open() (map[string]Account, error) {
	raw, err := os.ReadFile(e.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]Account{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var vf vaultFile
	if err := json.Unmarshal(raw, &vf); err != nil {
		return nil, fmt.Errorf("credentials file is corrupt: %w", err)
	}
	if vf.Version != vaultVersion {
		return nil, fmt.Errorf("unsupported credentials file version %d", vf.Version)
	}

	aead, err := e.cipherFor(vf.Salt)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, vf.Nonce, vf.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials, check %s: %w", PassphraseEnv, err)
	}

	accounts := map[string]Account{}
	if err := json.Unmarshal(plain, &accounts); err != nil {
		return nil, fmt.Errorf("credentials file is corrupt: %w", err)
	}
	return accounts, nil
}

// seal encrypts accounts and replaces the file atomically
func (e *EncryptedFileStore) seal(accounts map[string]Account) error {
	if e.salt == nil {
		salt := make([]byte, vaultSaltBytes)
		if _, err := rand.Read(salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
		e.salt, e.key = salt, nil
	}
	aead, err := e.cipherFor(e.salt)
	if err != nil {
		return err
	}

	plain, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to encode accounts: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	out, err := json.MarshalIndent(vaultFile{
		Version:    vaultVersion,
		Salt:       e.salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plain, nil),
		UpdatedAt:  time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(e.path), ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := os.Rename(tmp.Name(), e.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}
	return nil
}

// cipherFor returns the AEAD for salt, deriving the key only when the salt
// changes
func (e *EncryptedFileStore) cipherFor(salt []byte) (cipher.AEAD, error) {
	if len(salt) == 0 {
		return nil, errors.New("credentials file has no salt")
	}
	if e.key == nil || string(e.salt) != string(salt) {
		e.salt = salt
		e.key = pbkdf2.Key(e.passphrase, salt, vaultKDFRounds, vaultKeyBytes, sha256.New)
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
