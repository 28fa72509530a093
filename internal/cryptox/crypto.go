// Package cryptox implements the cryptographic primitives behind the
// encryption boundary: master-key derivation from a passphrase, per-owner
// subkeys, and AES-GCM sealing of JSON-serializable values.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

const (
	// NonceSize is the AES-GCM nonce length used for all sealed payloads.
	NonceSize = 12

	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
)

// GenerateRandBytes returns n cryptographically random bytes.
func GenerateRandBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return b
}

// WipeBytes zeroes the slice in place. Callers should wipe key material
// as soon as it is no longer needed.
func WipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// DeriveMasterKey derives a 32-byte master key from a passphrase and salt
// using Argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeySize)
}

// MakeVerifier returns a value safe to persist locally for verifying a
// candidate master key without storing the key itself.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// DeriveOwnerKey expands the session master key into a per-owner subkey via
// HKDF-SHA256, binding ciphertext to the owner identity. Records sealed for
// one owner do not decrypt under another owner's key.
func DeriveOwnerKey(masterKey []byte, ownerID string) ([]byte, error) {
	r := hkdf.New(sha256.New, masterKey, nil, []byte("recall/owner/"+ownerID))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("hkdf expand: %w", err)
	}
	return key, nil
}

// Encrypt serializes v to JSON and encrypts it using AES-GCM.
//
// The key must be a valid AES key length (16, 24, or 32 bytes). A new random
// 12-byte nonce is generated for each encryption; ciphertext and nonce are
// returned separately.
func Encrypt(v any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}

	nonce = GenerateRandBytes(NonceSize)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	ciphertext = aesgcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Decrypt decrypts ciphertext produced by Encrypt and unmarshals the
// resulting JSON into v. The key and nonce must match the ones used during
// encryption; any mismatch fails authentication.
func Decrypt(ciphertext, nonce, key []byte, v any) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return err
	}

	return json.Unmarshal(plaintext, v)
}
