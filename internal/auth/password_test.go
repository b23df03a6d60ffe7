package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "correct horse battery staple", hash)

	// bcrypt embeds the cost in the digest prefix
	assert.True(t, strings.HasPrefix(hash, "$2a$10$"), "unexpected digest prefix: %s", hash)
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret-password")
	require.NoError(t, err)

	assert.True(t, CheckPassword("secret-password", hash))
	assert.False(t, CheckPassword("wrong-password", hash))
	assert.False(t, CheckPassword("", hash))
}

func TestCheckPassword_MalformedDigest(t *testing.T) {
	assert.False(t, CheckPassword("anything", "not-a-bcrypt-digest"))
	assert.False(t, CheckPassword("anything", ""))
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	first, err := HashPassword("same input")
	require.NoError(t, err)
	second, err := HashPassword("same input")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, CheckPassword("same input", first))
	assert.True(t, CheckPassword("same input", second))
}
