// Package cryptox seals secret payloads for vault backends that are plain
// object stores rather than secret stores.
//
// A sealed blob is nonce || AES-256-GCM(ciphertext). The key is derived from
// an operator passphrase with Argon2id, salted per namespace so that two
// deployments sharing a passphrase do not share keys.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"github.com/dmitrijs2005/bitcor/internal/common"
	"golang.org/x/crypto/argon2"
)

const keySize = 32

var ErrMalformedBlob = errors.New("malformed sealed blob")

// DeriveKey stretches passphrase into a 32-byte AES key.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, keySize)
}

// Sealer encrypts and decrypts payloads under one key. It is safe for
// concurrent use.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// NewPassphraseSealer derives the key from passphrase and salt and wipes it
// once the cipher is built.
func NewPassphraseSealer(passphrase, salt string) (*Sealer, error) {
	key := DeriveKey([]byte(passphrase), []byte(salt))
	defer common.WipeByteArray(key)
	return NewSealer(key)
}

// Seal encrypts plaintext. The address is bound as associated data so a blob
// copied to another address fails to open.
func (s *Sealer) Seal(plaintext []byte, address string) []byte {
	nonce := common.GenerateRandByteArray(s.aead.NonceSize())
	return s.aead.Seal(nonce, nonce, plaintext, []byte(address))
}

// Open reverses Seal.
func (s *Sealer) Open(blob []byte, address string) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(blob) < n+s.aead.Overhead() {
		return nil, ErrMalformedBlob
	}
	return s.aead.Open(nil, blob[:n], blob[n:], []byte(address))
}
