package fieldcrypt_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconlab/bank_recon_app/internal/adapters/fieldcrypt"
)

func testKey() string {
	return hex.EncodeToString(make([]byte, 32))
}

func TestNew_RejectsBadKeys(t *testing.T) {
	_, err := fieldcrypt.New("not-hex")
	assert.Error(t, err)

	_, err = fieldcrypt.New(hex.EncodeToString(make([]byte, 16)))
	assert.Error(t, err, "a 16-byte key must be rejected")
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	cipher, err := fieldcrypt.New(testKey())
	require.NoError(t, err)

	for _, plaintext := range []string{"", "SALARY PAYMENT", "CAFÉ PARIS ref 42", `{"index":0,"values":{"Date":"15/12/2025"}}`} {
		encrypted, err := cipher.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, encrypted)

		decrypted, err := cipher.Decrypt(encrypted)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestEncrypt_CiphertextNotDeterministic(t *testing.T) {
	cipher, err := fieldcrypt.New(testKey())
	require.NoError(t, err)

	first, err := cipher.Encrypt("COFFEE SHOP")
	require.NoError(t, err)
	second, err := cipher.Encrypt("COFFEE SHOP")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "each encryption must use a fresh nonce")
}

func TestDecrypt_RejectsTampering(t *testing.T) {
	cipher, err := fieldcrypt.New(testKey())
	require.NoError(t, err)

	encrypted, err := cipher.Encrypt("SALARY PAYMENT")
	require.NoError(t, err)

	_, err = cipher.Decrypt("A" + encrypted[1:])
	assert.Error(t, err)

	_, err = cipher.Decrypt("too short")
	assert.Error(t, err)
}
