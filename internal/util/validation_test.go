package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("3f1e2d4c-5b6a-4789-8abc-def012345678"))
	assert.False(t, IsValidUUID(""))
	assert.False(t, IsValidUUID("not-a-uuid"))
}

func TestIsValidEnum(t *testing.T) {
	valid := []string{"admin", "moderator", "user"}
	assert.True(t, IsValidEnum("admin", valid))
	assert.True(t, IsValidEnum("", valid))
	assert.False(t, IsValidEnum("owner", valid))
}

func TestIsValidSlug(t *testing.T) {
	assert.True(t, IsValidSlug("plc-programming"))
	assert.True(t, IsValidSlug("scada2"))
	assert.False(t, IsValidSlug("PLC Programming"))
	assert.False(t, IsValidSlug("-leading"))
	assert.False(t, IsValidSlug(""))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("ops@example.com"))
	assert.False(t, IsValidEmail("Ops <ops@example.com>"))
	assert.False(t, IsValidEmail("nope"))
	assert.False(t, IsValidEmail(""))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ops@example.com", NormalizeEmail("  Ops@Example.COM "))
	assert.Equal(t, "AB12CD", NormalizeCode(" ab12cd\n"))
}
