package encryption

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	p, err := NewProvider(key)
	require.NoError(t, err)
	return p
}

func TestRoundTrip(t *testing.T) {
	p := newTestProvider(t)

	for _, plaintext := range []string{"", "hello", "héllo wörld 👋", strings.Repeat("x", 64*1024)} {
		token, err := p.Encrypt([]byte(plaintext))
		require.NoError(t, err)
		assert.NotContains(t, token, "=")

		got, err := p.Decrypt(token)
		require.NoError(t, err)
		assert.Equal(t, plaintext, string(got))
	}
}

func TestEncryptIsRandomized(t *testing.T) {
	p := newTestProvider(t)

	a, err := p.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := p.Encrypt([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecryptDetectsFlippedByte(t *testing.T) {
	p := newTestProvider(t)
	token, err := p.Encrypt([]byte("attack at dawn"))
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)

	for i := range raw {
		tampered := append([]byte(nil), raw...)
		tampered[i] ^= 0x01
		got, err := p.Decrypt(base64.RawURLEncoding.EncodeToString(tampered))
		require.ErrorIs(t, err, ErrDecryption, "byte %d", i)
		assert.Nil(t, got)
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	sender := newTestProvider(t)
	other := newTestProvider(t)

	token, err := sender.Encrypt([]byte("secret"))
	require.NoError(t, err)

	got, err := other.Decrypt(token)
	require.ErrorIs(t, err, ErrDecryption)
	assert.Nil(t, got)
}

func TestDecryptMalformedTokens(t *testing.T) {
	p := newTestProvider(t)

	for _, token := range []string{"", "not base64 !!", "AAAA", base64.RawURLEncoding.EncodeToString(make([]byte, tokenOverhead))} {
		_, err := p.Decrypt(token)
		assert.ErrorIs(t, err, ErrDecryption, "token %q", token)
	}
}

func TestNewProviderRejectsBadKeys(t *testing.T) {
	for _, key := range []string{"", "   ", "short", base64.URLEncoding.EncodeToString(make([]byte, 16)), "%%%%"} {
		_, err := NewProvider(key)
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestNewProviderAcceptsPaddedAndUnpadded(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i)
	}

	padded, err := NewProvider(base64.URLEncoding.EncodeToString(raw))
	require.NoError(t, err)
	unpadded, err := NewProvider(base64.RawURLEncoding.EncodeToString(raw))
	require.NoError(t, err)

	token, err := padded.Encrypt([]byte("interop"))
	require.NoError(t, err)
	got, err := unpadded.Decrypt(token)
	require.NoError(t, err)
	assert.Equal(t, "interop", string(got))
}
