package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	// Valid domestic number picks up the default region's country code.
	assert.Equal(t, "+919876543210", Normalize("98765 43210"))
	assert.Equal(t, "+919876543210", Normalize("+91 98765-43210"))

	// Numbers that don't parse as valid stay as entered; intake never
	// rejects a lead over a phone we can't make sense of.
	assert.Equal(t, "+1-555-0100", Normalize("+1-555-0100"))
	assert.Equal(t, "ext. 42", Normalize("ext. 42"))

	assert.Equal(t, "", Normalize("   "))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("9876543210"))
	assert.False(t, IsValid("+1-555-0100"))
	assert.False(t, IsValid("not a phone"))
}
