// Package cookieconsent encodes the client-side cookie preference state.
//
// The state is a schema-versioned blob. A blob written under any other schema
// version, or one that fails to parse, counts as absent and the consent banner
// is shown again.
package cookieconsent

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/vertexautomation/site-server/internal/model"
)

const (
	SchemaVersion = "1.0"
	CookieName    = "cookie_consent"
	cookieMaxAge  = 365 * 24 * 60 * 60
)

type State struct {
	Version     string                  `json:"version"`
	Preferences model.CookiePreferences `json:"preferences"`
	Timestamp   time.Time               `json:"timestamp"`
}

func NewState(prefs model.CookiePreferences, now time.Time) State {
	prefs.Essential = true
	return State{
		Version:     SchemaVersion,
		Preferences: prefs,
		Timestamp:   now.UTC(),
	}
}

func Encode(s State) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode returns false for anything that is not a current-schema state.
func Decode(value string) (State, bool) {
	var s State
	if value == "" {
		return s, false
	}
	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return State{}, false
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, false
	}
	if s.Version != SchemaVersion {
		return State{}, false
	}
	s.Preferences.Essential = true
	return s, true
}

// Read returns the request's stored state, if it is present and current.
func Read(r *http.Request) (State, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return State{}, false
	}
	return Decode(c.Value)
}

// Write sets the state cookie. It is readable by page scripts so the front end
// can gate analytics and marketing tags without a round trip.
func Write(w http.ResponseWriter, s State, secure bool) error {
	value, err := Encode(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
