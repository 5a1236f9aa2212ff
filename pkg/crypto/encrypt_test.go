package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewEncryptor(testKey)
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt([]byte("card-token-secret"))
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "card-token-secret")

	plain, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "card-token-secret", string(plain))
}

func TestNewEncryptorRejectsBadKeyLength(t *testing.T) {
	_, err := NewEncryptor("too-short")
	require.Error(t, err)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	enc, err := NewEncryptor(testKey)
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt([]byte("secret"))
	require.NoError(t, err)

	tampered := "A" + ciphertext[1:]
	if tampered == ciphertext {
		tampered = "B" + ciphertext[1:]
	}
	_, err = enc.Decrypt(tampered)
	assert.Error(t, err)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	enc, err := NewEncryptor(testKey)
	require.NoError(t, err)

	_, err = enc.Decrypt("not base64 !!!")
	assert.Error(t, err)

	_, err = enc.Decrypt("aGVsbG8=") // valid base64, too short for a nonce
	assert.Error(t, err)
}
