// Package vault implements the Memory Vault (spec §4.8): a
// workspace-scoped, encrypted-at-rest persistent store with lexical and
// vector search, grounded on the teacher's domain/memory.MemoryManager
// (generalized from its plaintext in-memory store into a GORM-backed,
// AES-256-GCM-encrypted one) and clawinfra-evoclaw's
// golang.org/x/crypto-based envelope encryption.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// CurrentKeyVersion tags every row encrypted by this build of the Vault,
// so a future key rotation can tell legacy rows apart.
const CurrentKeyVersion = 1

// workspaceKeySize is the AES-256 key length derived per workspace.
const workspaceKeySize = 32

// Cipher derives one AES-256-GCM key per workspace from a single master
// key via HKDF (RFC 5869), so compromising one workspace's derived key
// does not expose the master key or any other workspace's data.
type Cipher struct {
	masterKey []byte
}

// NewCipher builds a Cipher from a master key. Callers typically read
// the master key from an environment variable (spec §9 open question)
// rather than storing it in config.
func NewCipher(masterKey []byte) (*Cipher, error) {
	if len(masterKey) == 0 {
		return nil, fmt.Errorf("vault: master key must not be empty")
	}
	return &Cipher{masterKey: masterKey}, nil
}

func (c *Cipher) deriveKey(workspaceID string) ([]byte, error) {
	hk := hkdf.New(sha256.New, c.masterKey, []byte(workspaceID), []byte("agentd-vault-v1"))
	key := make([]byte, workspaceKeySize)
	if _, err := io.ReadFull(hk, key); err != nil {
		return nil, fmt.Errorf("vault: deriving workspace key: %w", err)
	}
	return key, nil
}

// Seal encrypts plaintext under the workspace's derived key, returning
// ciphertext and the nonce GCM used (both are stored as separate columns
// per spec §4.8's schema).
func (c *Cipher) Seal(workspaceID string, plaintext []byte) (ciphertext, nonce []byte, err error) {
	key, err := c.deriveKey(workspaceID)
	if err != nil {
		return nil, nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("vault: building cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("vault: building GCM: %w", err)
	}
	nonce = make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("vault: generating nonce: %w", err)
	}
	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Open decrypts ciphertext sealed by Seal for the same workspace.
func (c *Cipher) Open(workspaceID string, ciphertext, nonce []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, nil
	}
	key, err := c.deriveKey(workspaceID)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: building cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: building GCM: %w", err)
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("vault: decrypting row: %w", err)
	}
	return plaintext, nil
}
