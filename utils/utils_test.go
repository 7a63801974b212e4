package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	key, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^sk-[A-Za-z0-9]{32}$`), key)

	other, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestNewPublicKey(t *testing.T) {
	key, err := NewPublicKey()
	require.NoError(t, err)
	assert.Len(t, key, 21)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("hunter2", hash))
	assert.False(t, CheckPasswordHash("hunter3", hash))
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint("sk-a"), Fingerprint("sk-a"))
	assert.NotEqual(t, Fingerprint("sk-a"), Fingerprint("sk-b"))
	assert.Len(t, Fingerprint("x"), 64)
}
