package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates Argon2id hashing and verification of passwords.
// Scope: Unit Test
// Security: Credential storage (CWE-916)
// Expected: Correct password verifies, wrong password does not, hashes are salted.
// Test Case ID: ID-01
func TestPasswordHasher_HashAndVerify(t *testing.T) {
	hasher := NewPasswordHasher(16*1024, 1, 1, 16, 32)

	hash, err := hasher.Hash("correct horse battery")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=16384,t=1,p=1$"))

	ok, err := hasher.Verify("correct horse battery", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	again, err := hasher.Hash("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again)
}

// TestPurpose: Validates that malformed hashes are reported as errors.
// Scope: Unit Test
// Expected: Error for hashes with the wrong shape or algorithm.
// Test Case ID: ID-02
func TestPasswordHasher_VerifyMalformed(t *testing.T) {
	hasher := NewPasswordHasher(16*1024, 1, 1, 16, 32)

	for _, bad := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA", "$argon2id$v=19$m=x$salt$hash"} {
		_, err := hasher.Verify("pw", bad)
		assert.Error(t, err, bad)
	}
}

// TestPurpose: Validates email normalization.
// Scope: Unit Test
// Expected: Emails are trimmed and lower-cased; invalid addresses are rejected.
// Test Case ID: ID-03
func TestNormalizeEmail(t *testing.T) {
	got, err := normalizeEmail("  Alice@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got)

	for _, bad := range []string{"", "alice", "Alice <alice@example.com>", "@example.com"} {
		_, err := normalizeEmail(bad)
		assert.ErrorIs(t, err, ErrInvalidEmail, bad)
	}
}
