package keys

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"github.com/tidwall/jsonc"
)

var (
	ErrMissingField = errors.New("keys: missing field")
	ErrMnemonic     = errors.New("keys: invalid mnemonic")
	ErrPermissions  = errors.New("keys: key file is readable by other users")
)

// Secrets are the values read from the key file.
type Secrets struct {
	StorageToken string `json:"IPFS_KEY"`
	Mnemonic     string `json:"ACCOUNT_MNEMONIC"`
}

// Account is the signing account derived from the mnemonic.
type Account struct {
	Address    string
	PrivateKey ed25519.PrivateKey
}

// LoadFile reads and validates the key file at path.
func LoadFile(path string) (Secrets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Secrets{}, fmt.Errorf("read key file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a key file body.
func Parse(data []byte) (Secrets, error) {
	var s Secrets
	if err := json.Unmarshal(jsonc.ToJSON(data), &s); err != nil {
		return Secrets{}, fmt.Errorf("parse key file: %w", err)
	}
	s.StorageToken = strings.TrimSpace(s.StorageToken)
	s.Mnemonic = normalizeMnemonic(s.Mnemonic)
	if s.StorageToken == "" {
		return Secrets{}, fmt.Errorf("%w: IPFS_KEY", ErrMissingField)
	}
	if s.Mnemonic == "" {
		return Secrets{}, fmt.Errorf("%w: ACCOUNT_MNEMONIC", ErrMissingField)
	}
	return s, nil
}

// Account derives the signing account from s.Mnemonic.
func (s Secrets) Account() (Account, error) {
	return AccountFromMnemonic(s.Mnemonic)
}

func AccountFromMnemonic(m string) (Account, error) {
	sk, err := mnemonic.ToPrivateKey(normalizeMnemonic(m))
	if err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrMnemonic, err)
	}
	acct, err := crypto.AccountFromPrivateKey(sk)
	if err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrMnemonic, err)
	}
	return Account{Address: acct.Address.String(), PrivateKey: acct.PrivateKey}, nil
}

// CheckPermissions reports ErrPermissions when the key file grants group or
// other access.
func CheckPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&fs.FileMode(0o077) != 0 {
		return fmt.Errorf("%w: %s has mode %v", ErrPermissions, path, info.Mode().Perm())
	}
	return nil
}

// WriteFile creates a new key file with mode 0600. It refuses to overwrite.
func WriteFile(path string, s Secrets) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Close()
}

func normalizeMnemonic(m string) string {
	return strings.Join(strings.Fields(m), " ")
}
