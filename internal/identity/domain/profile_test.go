package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProfile(t *testing.T) {
	p, err := NewProfile("  Ana  ", "$argon2id$...", []byte("salt"))
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.Name)
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	_, err = NewProfile("   ", "hash", nil)
	assert.ErrorIs(t, err, ErrEmptyProfileName)
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword(""), ErrWeakPassword)
	assert.ErrorIs(t, ValidatePassword("short"), ErrWeakPassword)
	assert.NoError(t, ValidatePassword("long enough"))
	assert.NoError(t, ValidatePassword("ñandúñandú"))
}
