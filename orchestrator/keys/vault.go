package keys

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

var (
	ErrEmptyPassphrase  = errors.New("vault passphrase cannot be empty")
	ErrEmptyKey         = errors.New("key material cannot be empty")
	ErrInvalidEnvelope  = errors.New("invalid key envelope")
	ErrDecryptionFailed = errors.New("decryption failed")
)

const (
	envelopeVersion = "v1"

	saltLength       = 32
	nonceLength      = 12 // GCM nonce length
	keyLength        = 32 // AES-256 key length
	pbkdf2Iterations = 100000
)

// Vault encrypts private keys at rest. Encryption and decryption are
// explicit calls; nothing decrypts implicitly on read.
type Vault struct {
	passphrase []byte
	iterations int
}

// NewVault creates a vault keyed by passphrase.
func NewVault(passphrase string) (*Vault, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	return &Vault{passphrase: []byte(passphrase), iterations: pbkdf2Iterations}, nil
}

// EncryptKey seals key into "v1:" + base64(salt || nonce || ciphertext || tag).
func (v *Vault) EncryptKey(key []byte) (string, error) {
	if len(key) == 0 {
		return "", ErrEmptyKey
	}

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := v.aead(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, key, []byte(envelopeVersion))
	out := make([]byte, 0, saltLength+nonceLength+len(sealed))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return envelopeVersion + ":" + base64.StdEncoding.EncodeToString(out), nil
}

// DecryptKey opens an envelope produced by EncryptKey. Callers should Zero
// the result once done.
func (v *Vault) DecryptKey(envelope string) ([]byte, error) {
	version, body, ok := strings.Cut(envelope, ":")
	if !ok || version != envelopeVersion {
		return nil, ErrInvalidEnvelope
	}
	raw, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if len(raw) < saltLength+nonceLength+16 {
		return nil, ErrInvalidEnvelope
	}

	salt := raw[:saltLength]
	nonce := raw[saltLength : saltLength+nonceLength]
	ciphertext := raw[saltLength+nonceLength:]

	gcm, err := v.aead(salt)
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, nonce, ciphertext, []byte(envelopeVersion))
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plain, nil
}

func (v *Vault) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(v.passphrase, salt, v.iterations, keyLength, sha256.New)
	defer Zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
