package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretRoundTrip(t *testing.T) {
	sealed, err := EncryptSecret("sk-test-123", "passphrase")
	require.NoError(t, err)
	assert.True(t, IsEncryptedSecret(sealed))
	assert.NotContains(t, sealed, "sk-test-123")

	// 已加密的值不会再次加密
	again, err := EncryptSecret(sealed, "passphrase")
	require.NoError(t, err)
	assert.Equal(t, sealed, again)

	plain, err := DecryptSecret(sealed, "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", plain)

	_, err = DecryptSecret(sealed, "wrong")
	assert.Error(t, err)
}

func TestSecretPassthrough(t *testing.T) {
	empty, err := EncryptSecret("", "k")
	require.NoError(t, err)
	assert.Empty(t, empty)

	plain, err := DecryptSecret("not-encrypted", "k")
	require.NoError(t, err)
	assert.Equal(t, "not-encrypted", plain)

	_, err = Decrypt("%%%", "k")
	assert.Error(t, err)
}
