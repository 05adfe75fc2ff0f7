package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher() *PasswordHasher {
	return NewPasswordHasher(bcrypt.MinCost)
}

func TestPasswordHasher_Hash_Valid(t *testing.T) {
	hasher := newTestHasher()

	tests := []struct {
		name     string
		password string
	}{
		{"8 characters", "Passw0rd"},
		{"long password", "this-is-a-very-long-password-123!@#"},
		{"with unicode", "パスワード12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hasher.Hash(tt.password)
			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hash)
			assert.GreaterOrEqual(t, len(hash), 60)
		})
	}
}

func TestPasswordHasher_Hash_TooShort(t *testing.T) {
	hasher := newTestHasher()

	for _, password := range []string{"", "a", "1234567"} {
		hash, err := hasher.Hash(password)
		assert.ErrorIs(t, err, ErrPasswordTooShort)
		assert.Empty(t, hash)
	}
}

func TestPasswordHasher_Check(t *testing.T) {
	hasher := newTestHasher()

	hash, err := hasher.Hash("Correct-Horse1")
	require.NoError(t, err)

	assert.True(t, hasher.Check("Correct-Horse1", hash))
	assert.False(t, hasher.Check("correct-horse1", hash))
	assert.False(t, hasher.Check("", hash))
	assert.False(t, hasher.Check("Correct-Horse1", "not-a-hash"))
}

func TestNewPasswordHasher_OutOfRangeCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, bcrypt.MinCost, NewPasswordHasher(bcrypt.MinCost).cost)
}
