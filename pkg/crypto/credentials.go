// Package crypto provides at-rest encryption for stored database passwords.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/user"

	"golang.org/x/crypto/scrypt"
)

// keySalt is a fixed salt for the scrypt derivation. This is a known
// weakness inherited from the original implementation: the salt is not
// per-install random. Changing it invalidates every credential already on
// disk, so it must stay until a keyed re-encryption migration exists.
const keySalt = "relwave-credential-salt-v1"

var (
	// ErrDecryptionFailed is returned when ciphertext is malformed or was
	// encrypted under a different machine identity.
	ErrDecryptionFailed = errors.New("decryption failed: invalid ciphertext or wrong key")
	// ErrInvalidIdentity is returned when no key material is available.
	ErrInvalidIdentity = errors.New("invalid identity: must not be empty")
)

// CredentialCipher provides AES-256-CBC encryption with a key derived from
// machine-identity material, so credential files are only readable on the
// machine (and account) that wrote them.
type CredentialCipher struct {
	block cipher.Block
}

// NewMachineCipher derives the cipher key from hostname + OS username.
func NewMachineCipher() (*CredentialCipher, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("resolve hostname: %w", err)
	}
	username := ""
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	return NewCredentialCipher(hostname + "|" + username)
}

// NewCredentialCipher derives a 32-byte AES key from the identity string
// via scrypt. The slow derivation makes offline guessing of the (low
// entropy) machine identity expensive.
func NewCredentialCipher(identity string) (*CredentialCipher, error) {
	if identity == "" {
		return nil, ErrInvalidIdentity
	}

	key, err := scrypt.Key([]byte(identity), []byte(keySalt), 16384, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}

	return &CredentialCipher{block: block}, nil
}

// Encrypt encrypts plaintext and returns base64(iv || ciphertext).
// A random 16-byte IV per call makes ciphertext non-deterministic.
func (c *CredentialCipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out[aes.BlockSize:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt decrypts base64(iv || ciphertext) and returns the plaintext.
func (c *CredentialCipher) Decrypt(encrypted string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed", ErrDecryptionFailed)
	}

	if len(data) < 2*aes.BlockSize || len(data)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	iv, ct := data[:aes.BlockSize], data[aes.BlockSize:]
	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(plain, ct)

	unpadded, err := pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrDecryptionFailed, err)
	}

	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, errors.New("invalid padding byte")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("inconsistent padding")
		}
	}
	return data[:len(data)-n], nil
}
