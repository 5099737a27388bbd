package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}

	testCases := []struct {
		name      string
		plaintext string
	}{
		{"Simple text", "hello world"},
		{"Empty string", ""},
		{"Long text", strings.Repeat("a", 1000)},
		{"Special chars", "!@#$%^&*()_+-={}[]|\\:;\"'<>,.?/"},
		{"LND macaroon hex", "0201036c6e6402f801030a1062b..."},
		{"Unicode", "Hello 世界 🌍"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encrypted, err := Encrypt(tc.plaintext, key)
			require.NoError(t, err)
			assert.NotEqual(t, tc.plaintext, encrypted)

			decrypted, err := Decrypt(encrypted, key)
			require.NoError(t, err)
			assert.Equal(t, tc.plaintext, decrypted)
		})
	}
}

func TestEncryptDifferentOutputs(t *testing.T) {
	key := make([]byte, KeySize)
	plaintext := "same plaintext"

	enc1, err := Encrypt(plaintext, key)
	require.NoError(t, err)
	enc2, err := Encrypt(plaintext, key)
	require.NoError(t, err)

	assert.NotEqual(t, enc1, enc2, "random nonce must vary per call")

	dec1, err := Decrypt(enc1, key)
	require.NoError(t, err)
	dec2, err := Decrypt(enc2, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, dec1)
	assert.Equal(t, plaintext, dec2)
}

func TestDecryptWithWrongKey(t *testing.T) {
	key1 := make([]byte, KeySize)
	key2 := make([]byte, KeySize)
	key2[0] = 1

	encrypted, err := Encrypt("secret message", key1)
	require.NoError(t, err)

	_, err = Decrypt(encrypted, key2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decryption failed")
}

func TestEncryptWithInvalidKeySize(t *testing.T) {
	for _, size := range []int{0, 16, 64} {
		key := make([]byte, size)
		_, err := Encrypt("test", key)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "32 bytes")
	}
}

func TestDecryptWithTamperedData(t *testing.T) {
	key := make([]byte, KeySize)
	encrypted, err := Encrypt("original message", key)
	require.NoError(t, err)

	tampered := []byte(encrypted)
	if tampered[10] == 'A' {
		tampered[10] = 'B'
	} else {
		tampered[10] = 'A'
	}

	_, err = Decrypt(string(tampered), key)
	require.Error(t, err, "GCM authentication must catch tampering")
}

func TestDecryptWithMalformedCiphertext(t *testing.T) {
	key := make([]byte, KeySize)

	testCases := []string{"not-valid-base64!!!", "YWJj", ""}
	for _, ciphertext := range testCases {
		_, err := Decrypt(ciphertext, key)
		require.Error(t, err)
	}
}

func TestEncryptDecryptWithPassword(t *testing.T) {
	testCases := []struct {
		name      string
		plaintext string
		password  string
	}{
		{"Simple", "hello world", "mypassword123"},
		{"Empty plaintext", "", "password"},
		{"Long password", "secret", "this-is-a-very-long-password-with-special-chars-!@#$%"},
		{"Unicode", "Hello 世界", "パスワード"},
		{"Venue API secret", "sk-venue-aB3xQ9fL2kM8nR7v", "securepass"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encrypted, err := EncryptWithPassword(tc.plaintext, tc.password)
			require.NoError(t, err)
			require.NotEmpty(t, encrypted)

			decrypted, err := DecryptWithPassword(encrypted, tc.password)
			require.NoError(t, err)
			assert.Equal(t, tc.plaintext, decrypted)
		})
	}
}

func TestPasswordEncryptionDifferentOutputs(t *testing.T) {
	plaintext, password := "same text", "same password"

	enc1, err := EncryptWithPassword(plaintext, password)
	require.NoError(t, err)
	enc2, err := EncryptWithPassword(plaintext, password)
	require.NoError(t, err)

	assert.NotEqual(t, enc1, enc2, "salt and nonce must vary per call")

	dec1, err := DecryptWithPassword(enc1, password)
	require.NoError(t, err)
	dec2, err := DecryptWithPassword(enc2, password)
	require.NoError(t, err)
	assert.Equal(t, plaintext, dec1)
	assert.Equal(t, plaintext, dec2)
}

func TestDecryptWithPasswordWrongPassword(t *testing.T) {
	encrypted, err := EncryptWithPassword("secret message", "correct-password")
	require.NoError(t, err)

	_, err = DecryptWithPassword(encrypted, "wrong-password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decryption failed")
}

func TestDecryptWithPasswordMalformedEnvelope(t *testing.T) {
	_, err := DecryptWithPassword("no-dot-separator-here", "password")
	require.Error(t, err)
}

func TestDeriveKey(t *testing.T) {
	password := "mypassword"
	salt := []byte("1234567890123456")

	key1 := DeriveKey(password, salt)
	key2 := DeriveKey(password, salt)
	assert.Equal(t, key1, key2, "same password+salt must derive the same key")
	assert.Len(t, key1, KeySize)

	key3 := DeriveKey(password, []byte("9876543210987654"))
	assert.NotEqual(t, key1, key3, "different salts must derive different keys")
}

func TestGenerateKey(t *testing.T) {
	key1, err := GenerateKey()
	require.NoError(t, err)
	key2, err := GenerateKey()
	require.NoError(t, err)

	assert.Len(t, key1, KeySize)
	assert.Len(t, key2, KeySize)
	assert.NotEqual(t, key1, key2)
}

func BenchmarkEncrypt(b *testing.B) {
	key := make([]byte, KeySize)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Encrypt("benchmark test message", key)
	}
}

func BenchmarkDecrypt(b *testing.B) {
	key := make([]byte, KeySize)
	encrypted, _ := Encrypt("benchmark test message", key)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Decrypt(encrypted, key)
	}
}
