package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestImageExtension(t *testing.T) {
	ext, ok := ImageExtension("image/PNG")
	assert.True(t, ok)
	assert.Equal(t, ".png", ext)

	_, ok = ImageExtension("application/pdf")
	assert.False(t, ok)
}

func TestNewObjectKey(t *testing.T) {
	now := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	key := NewObjectKey("client-logos", ".png", now)
	assert.True(t, strings.HasPrefix(key, "client-logos/2026/03/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.True(t, ValidKey(key))

	escaped := NewObjectKey("../../etc", ".png", now)
	assert.True(t, strings.HasPrefix(escaped, "etc/2026/03/"))

	empty := NewObjectKey("", ".jpg", now)
	assert.True(t, strings.HasPrefix(empty, "misc/"))
}

func TestValidKey(t *testing.T) {
	assert.True(t, ValidKey("case-studies/2026/01/a.jpg"))
	assert.False(t, ValidKey(""))
	assert.False(t, ValidKey("/abs/key.png"))
	assert.False(t, ValidKey("a/../b.png"))
	assert.False(t, ValidKey("a//b.png"))
}
