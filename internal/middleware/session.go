package middleware

import (
	"context"
	"crypto/sha256"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const (
	sessionCookieName = "ROUTINE_WEB_SESSION"
	sessionLifetime   = 30 * 24 * time.Hour
)

// SessionData is the signed cookie payload. ID scopes server-side selection and overlay state.
type SessionData struct {
	ID        string    `json:"id"`
	Locale    string    `json:"locale,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// internal dirty flag; not serialized
	dirty bool
}

// sessionKeys holds the cookie codec and the key the CSRF middleware derives from the
// same secret.
type sessionKeys struct {
	codec   *securecookie.SecureCookie
	csrfKey []byte
	secure  bool
}

var (
	sessionMu  sync.RWMutex
	sessionCfg *sessionKeys
)

// ConfigureSessions sets the signing key and cookie security. An empty key generates a
// process-local key, so sessions do not survive a restart.
func ConfigureSessions(key string, secure bool) {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	sessionCfg = newSessionKeys(key, secure)
}

func newSessionKeys(key string, secure bool) *sessionKeys {
	var hashKey []byte
	if strings.TrimSpace(key) == "" {
		hashKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil {
			panic("session: generate signing key")
		}
	} else {
		hashKey = []byte(key)
	}
	codec := securecookie.New(hashKey, nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(sessionLifetime / time.Second))
	// gorilla/csrf wants exactly 32 bytes
	csrfKey := sha256.Sum256(append([]byte("csrf\x00"), hashKey...))
	return &sessionKeys{codec: codec, csrfKey: csrfKey[:], secure: secure}
}

func currentSessionKeys() *sessionKeys {
	sessionMu.RLock()
	cfg := sessionCfg
	sessionMu.RUnlock()
	if cfg != nil {
		return cfg
	}
	sessionMu.Lock()
	defer sessionMu.Unlock()
	if sessionCfg == nil {
		sessionCfg = newSessionKeys("", false)
	}
	return sessionCfg
}

// Session loads or initializes a session and stores it in request context.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sd, fromCookie := readSessionCookie(r)
		if sd.ID == "" {
			now := time.Now().UTC()
			sd = &SessionData{
				ID:        uuid.NewString(),
				CreatedAt: now,
				UpdatedAt: now,
				dirty:     true,
			}
		}
		ctx := context.WithValue(r.Context(), ctxKeySession, sd)
		rw := NewResponseRecorder(w)
		// the cookie must be set before the first header write
		rw.SetBeforeWrite(func(w http.ResponseWriter) {
			if sd.dirty || !fromCookie {
				writeSessionCookie(w, sd)
			}
		})
		next.ServeHTTP(rw, r.WithContext(ctx))
		if !rw.Wrote() && (sd.dirty || !fromCookie) {
			writeSessionCookie(w, sd)
		}
	})
}

// GetSession returns session data from context
func GetSession(r *http.Request) *SessionData {
	if v := r.Context().Value(ctxKeySession); v != nil {
		if sd, ok := v.(*SessionData); ok {
			return sd
		}
	}
	return &SessionData{}
}

// SessionID returns the current session identifier, or "" outside the Session middleware.
func SessionID(r *http.Request) string {
	return GetSession(r).ID
}

// MarkDirty flags the session for writing at end of request
func (s *SessionData) MarkDirty() { s.dirty = true; s.UpdatedAt = time.Now().UTC() }

// readSessionCookie decodes and verifies the session cookie
func readSessionCookie(r *http.Request) (*SessionData, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return &SessionData{}, false
	}
	var sd SessionData
	if err := currentSessionKeys().codec.Decode(sessionCookieName, c.Value, &sd); err != nil {
		return &SessionData{}, false
	}
	if _, err := uuid.Parse(sd.ID); err != nil {
		return &SessionData{}, false
	}
	return &sd, true
}

func writeSessionCookie(w http.ResponseWriter, sd *SessionData) {
	keys := currentSessionKeys()
	val, err := keys.codec.Encode(sessionCookieName, sd)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   keys.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sessionLifetime),
	})
}
