// Package keychain seals account private keys under the wallet secret.
//
// The sealed form is scrypt + AES-256-GCM. Salt, nonce and ciphertext are
// base64 encoded so the envelope can be stored as JSON in any wallet store.
package keychain

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kaspa-bridge/deposit-sender/pkg/secret"
	"github.com/kaspa-bridge/deposit-sender/pkg/types"
	"golang.org/x/crypto/scrypt"
)

const (
	EnvelopeVersion = 1
	KDFScrypt       = "scrypt"

	saltLen = 32
)

// ErrInvalidSecret is returned when the keychain cannot be opened with the
// supplied secret. It never carries the secret itself.
var ErrInvalidSecret = errors.New("invalid wallet secret")

type KDFParams struct {
	N      int `json:"n"`
	R      int `json:"r"`
	P      int `json:"p"`
	KeyLen int `json:"keyLen"`
}

// DefaultKDFParams is used for new wallets.
var DefaultKDFParams = KDFParams{N: 1 << 18, R: 8, P: 1, KeyLen: 32}

func (p KDFParams) validate() error {
	if p.N <= 1 || p.N&(p.N-1) != 0 {
		return fmt.Errorf("scrypt N must be a power of two greater than 1")
	}
	if p.R <= 0 || p.P <= 0 {
		return fmt.Errorf("scrypt r and p must be positive")
	}
	if p.KeyLen != 32 {
		return fmt.Errorf("key length must be 32 bytes for AES-256")
	}
	return nil
}

// KeyEntry is the private key of one account.
type KeyEntry struct {
	AccountId  string         `json:"accountId"`
	PrivateKey types.HexBytes `json:"privateKey"`
}

// Keychain is the decrypted set of account keys.
type Keychain struct {
	Keys []KeyEntry `json:"keys"`
}

func (kc *Keychain) Key(accountId string) ([]byte, bool) {
	for _, k := range kc.Keys {
		if k.AccountId == accountId {
			return k.PrivateKey, true
		}
	}
	return nil, false
}

// Put adds or replaces the key of an account.
func (kc *Keychain) Put(accountId string, privateKey []byte) {
	for i, k := range kc.Keys {
		if k.AccountId == accountId {
			clear(kc.Keys[i].PrivateKey)
			kc.Keys[i].PrivateKey = append(types.HexBytes{}, privateKey...)
			return
		}
	}
	kc.Keys = append(kc.Keys, KeyEntry{AccountId: accountId, PrivateKey: append(types.HexBytes{}, privateKey...)})
}

// Wipe zeroes every private key.
func (kc *Keychain) Wipe() {
	for i := range kc.Keys {
		clear(kc.Keys[i].PrivateKey)
	}
	kc.Keys = nil
}

// EncryptedKeychain is the at-rest envelope.
type EncryptedKeychain struct {
	Version    int       `json:"version"`
	KDF        string    `json:"kdf"`
	KDFParams  KDFParams `json:"kdfParams"`
	Salt       string    `json:"salt"`
	Nonce      string    `json:"nonce"`
	CipherText string    `json:"cipherText"`
}

// Seal encrypts kc with a key derived from s.
func Seal(kc *Keychain, s secret.Secret, params KDFParams) (*EncryptedKeychain, error) {
	if kc == nil {
		return nil, fmt.Errorf("cannot seal nil keychain")
	}
	if s.IsEmpty() {
		return nil, fmt.Errorf("wallet secret cannot be empty")
	}
	if err := params.validate(); err != nil {
		return nil, err
	}

	plaintext, err := json.Marshal(kc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal keychain: %w", err)
	}
	defer clear(plaintext)

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	aesGCM, err := newGCM(s, salt, params)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := aesGCM.Seal(nil, nonce, plaintext, nil)

	return &EncryptedKeychain{
		Version:    EnvelopeVersion,
		KDF:        KDFScrypt,
		KDFParams:  params,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		CipherText: base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// Open decrypts the envelope. A wrong secret yields ErrInvalidSecret.
func (e *EncryptedKeychain) Open(s secret.Secret) (*Keychain, error) {
	if e.Version != EnvelopeVersion {
		return nil, fmt.Errorf("unsupported keychain version %d", e.Version)
	}
	if e.KDF != KDFScrypt {
		return nil, fmt.Errorf("unsupported keychain kdf %q", e.KDF)
	}
	if err := e.KDFParams.validate(); err != nil {
		return nil, err
	}

	salt, err := base64.StdEncoding.DecodeString(e.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(e.Nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(e.CipherText)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	aesGCM, err := newGCM(s, salt, e.KDFParams)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aesGCM.NonceSize() {
		return nil, fmt.Errorf("invalid nonce length %d", len(nonce))
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidSecret
	}
	defer clear(plaintext)

	var kc Keychain
	if err := json.Unmarshal(plaintext, &kc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keychain: %w", err)
	}
	return &kc, nil
}

func newGCM(s secret.Secret, salt []byte, params KDFParams) (cipher.AEAD, error) {
	key, err := scrypt.Key(s.Bytes(), salt, params.N, params.R, params.P, params.KeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
