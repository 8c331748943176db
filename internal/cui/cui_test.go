package cui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_KnownCodes(t *testing.T) {
	valid := []string{"18547290", "RO18547290", "ro 14399840", "1590082", "RO6859662", "13548146", "4221306"}
	for _, c := range valid {
		assert.NoError(t, Validate(c), c)
	}
}

func TestValidate_BadControlDigit(t *testing.T) {
	assert.ErrorIs(t, Validate("12345678"), ErrChecksum)
	assert.ErrorIs(t, Validate("RO18547291"), ErrChecksum)
}

func TestValidate_Format(t *testing.T) {
	assert.ErrorIs(t, Validate(""), ErrEmpty)
	assert.ErrorIs(t, Validate("RO"), ErrEmpty)
	assert.ErrorIs(t, Validate("1"), ErrFormat)
	assert.ErrorIs(t, Validate("12345678901"), ErrFormat)
	assert.ErrorIs(t, Validate("12A45"), ErrFormat)
}

func TestClean(t *testing.T) {
	assert.Equal(t, "18547290", Clean(" RO 18.547.290 "))
	assert.Equal(t, "18547290", Clean("ro18547290"))
	assert.True(t, HasROPrefix("ro18547290"))
	assert.False(t, HasROPrefix("18547290"))
}
