package cookieconsent

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertexautomation/site-server/internal/model"
)

func encodeRaw(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(data)
}

func TestRoundTrip(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	state := NewState(model.CookiePreferences{Analytics: true}, now)

	encoded, err := Encode(state)
	require.NoError(t, err)

	decoded, ok := Decode(encoded)
	require.True(t, ok)
	assert.Equal(t, SchemaVersion, decoded.Version)
	assert.True(t, decoded.Preferences.Essential)
	assert.True(t, decoded.Preferences.Analytics)
	assert.False(t, decoded.Preferences.Marketing)
	assert.True(t, now.Equal(decoded.Timestamp))
}

func TestDecodeTreatsOldVersionAsAbsent(t *testing.T) {
	old := encodeRaw(t, map[string]any{
		"version":     "0.9",
		"preferences": map[string]bool{"essential": true, "analytics": true, "marketing": true},
		"timestamp":   time.Now(),
	})

	_, ok := Decode(old)
	assert.False(t, ok)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, v := range []string{"", "not base64!", base64.RawURLEncoding.EncodeToString([]byte("{bad json"))} {
		_, ok := Decode(v)
		assert.False(t, ok, v)
	}
}

func TestDecodeForcesEssential(t *testing.T) {
	v := encodeRaw(t, map[string]any{
		"version":     SchemaVersion,
		"preferences": map[string]bool{"essential": false, "analytics": false, "marketing": true},
		"timestamp":   time.Now(),
	})

	s, ok := Decode(v)
	require.True(t, ok)
	assert.True(t, s.Preferences.Essential)
	assert.True(t, s.Preferences.Marketing)
}

func TestWriteAndRead(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, Write(rec, NewState(model.NewCookiePreferences(false, true), time.Now()), true))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].Secure)
	assert.False(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	s, ok := Read(req)
	require.True(t, ok)
	assert.True(t, s.Preferences.Marketing)
}
