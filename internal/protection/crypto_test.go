package protection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	cipher, err := NewCipher("super_secret")
	require.NoError(t, err)

	plaintext := []byte(`{"id":"evt-1","action":"document.read"}`)
	ciphertext, err := cipher.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := cipher.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestCipherRejectsTamperedCiphertext(t *testing.T) {
	cipher, err := NewCipher("super_secret")
	require.NoError(t, err)

	ciphertext, err := cipher.Encrypt([]byte("payload"))
	require.NoError(t, err)

	ciphertext[len(ciphertext)-1] ^= 0xFF
	_, err = cipher.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestCipherRejectsWrongKey(t *testing.T) {
	first, err := NewCipher("secret_one")
	require.NoError(t, err)
	second, err := NewCipher("secret_two")
	require.NoError(t, err)

	ciphertext, err := first.Encrypt([]byte("payload"))
	require.NoError(t, err)

	_, err = second.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestCipherRejectsEmptySecret(t *testing.T) {
	_, err := NewCipher("")
	assert.Error(t, err)
}

func TestCipherRejectsShortPayload(t *testing.T) {
	cipher, err := NewCipher("super_secret")
	require.NoError(t, err)

	_, err = cipher.Decrypt([]byte{0x01, 0x02})
	assert.Error(t, err)
}
