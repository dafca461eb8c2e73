package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hasher := NewBcryptHasher()

	hash, err := hasher.Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)
	assert.True(t, strings.HasPrefix(hash, "$2"))

	match, err := hasher.Verify("secret123", hash)
	require.NoError(t, err)
	assert.True(t, match)

	// Mismatch is a clean false, not an error
	match, err = hasher.Verify("wrong", hash)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestHashesAreSalted(t *testing.T) {
	hasher := NewBcryptHasher()

	first, err := hasher.Hash("secret123")
	require.NoError(t, err)
	second, err := hasher.Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestEmptyInputs(t *testing.T) {
	hasher := NewBcryptHasher()

	_, err := hasher.Hash("")
	assert.Error(t, err)

	_, err = hasher.Verify("", "some-hash")
	assert.Error(t, err)
	_, err = hasher.Verify("secret123", "")
	assert.Error(t, err)
}
