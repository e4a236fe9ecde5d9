package encryption

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// tokenVersion is the first byte of every sealed token and is authenticated as AAD.
const tokenVersion byte = 0x01

const tokenOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

var (
	ErrInvalidKey = errors.New("encryption key must be 32 bytes, url-safe base64 encoded")
	ErrDecryption = errors.New("invalid ciphertext or key mismatch")
)

// Cipher is what the message store needs from a provider.
type Cipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(token string) ([]byte, error)
}

// Provider seals message bodies with XChaCha20-Poly1305.
//
// Token layout before base64 (url-safe, unpadded):
//
//	[version: 1 byte][nonce: 24 bytes][ciphertext+tag: N+16 bytes]
//
// Provider is safe for concurrent use.
type Provider struct {
	key  []byte
	rand io.Reader
}

// NewProvider parses an encoded 32-byte key. Padded and unpadded forms are accepted.
func NewProvider(encodedKey string) (*Provider, error) {
	key, err := decodeKey(encodedKey)
	if err != nil {
		return nil, err
	}
	return &Provider{key: key, rand: rand.Reader}, nil
}

// GenerateKey returns a fresh random key in the encoding NewProvider expects.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}
	return base64.URLEncoding.EncodeToString(key), nil
}

func (p *Provider) Encrypt(plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(p.key)
	if err != nil {
		return "", fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}

	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(p.rand, nonce[:]); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	out := make([]byte, 1+chacha20poly1305.NonceSizeX, tokenOverhead+len(plaintext))
	out[0] = tokenVersion
	copy(out[1:], nonce[:])

	out = aead.Seal(out, nonce[:], plaintext, []byte{tokenVersion})
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Decrypt opens a token produced by Encrypt. Every failure caused by the token
// itself or by a different key is reported as ErrDecryption.
func (p *Provider) Decrypt(token string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed encoding", ErrDecryption)
	}
	if len(raw) < tokenOverhead {
		return nil, fmt.Errorf("%w: token is %d bytes, minimum is %d", ErrDecryption, len(raw), tokenOverhead)
	}
	if raw[0] != tokenVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrDecryption, raw[0])
	}

	aead, err := chacha20poly1305.NewX(p.key)
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}

	nonce := raw[1 : 1+chacha20poly1305.NonceSizeX]
	plaintext, err := aead.Open(nil, nonce, raw[1+chacha20poly1305.NonceSizeX:], raw[:1])
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

func decodeKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("%w: key is empty", ErrInvalidKey)
	}
	key, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKey, len(key))
	}
	return key, nil
}
