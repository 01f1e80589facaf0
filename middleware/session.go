package middleware

import (
	"encoding/gob"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

// SessionName is the cookie holding the web session.
const SessionName = "foodhub-session"

const (
	sessionUserID   = "user_id"
	sessionUsername = "username"
)

// FlashMessage is a one-shot notice shown on the next rendered page.
type FlashMessage struct {
	Type    string // success, danger, warning, info
	Message string
}

func init() {
	gob.Register(FlashMessage{})
}

// NewSessionStore returns the cookie store used for web sessions
func NewSessionStore(key []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(key)
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	store.Options.Path = "/"
	store.Options.MaxAge = 7 * 24 * 3600
	return store
}

func session(c *gin.Context, store sessions.Store) *sessions.Session {
	s, err := store.Get(c.Request, SessionName)
	if err != nil {
		// Undecodable cookie (rotated key): start over with a fresh session.
		slog.Debug("discarding session", "error", err)
	}
	return s
}

// Identity resolves the acting user from the session. When demoUserID is
// non-zero, anonymous requests act as that user without being authenticated.
func Identity(store sessions.Store, demoUserID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := session(c, store)
		if id, ok := s.Values[sessionUserID].(uint); ok && id != 0 {
			c.Set(ctxUserID, id)
			c.Set(ctxAuthenticated, true)
			if name, ok := s.Values[sessionUsername].(string); ok {
				c.Set(ctxUsername, name)
			}
		} else if demoUserID != 0 {
			c.Set(ctxUserID, demoUserID)
			c.Set(ctxAuthenticated, false)
		}
		c.Next()
	}
}

// RequireUser sends requests without an acting user to the login page.
func RequireUser(store sessions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUserID(c); ok {
			c.Next()
			return
		}
		AddFlash(c, store, "info", "Please log in to access this page.")
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
	}
}

// Login binds the session to a user.
func Login(c *gin.Context, store sessions.Store, userID uint, username string) error {
	s := session(c, store)
	s.Values[sessionUserID] = userID
	s.Values[sessionUsername] = username
	return s.Save(c.Request, c.Writer)
}

// Logout clears the identity but keeps the cookie so a flash can follow.
func Logout(c *gin.Context, store sessions.Store) error {
	s := session(c, store)
	delete(s.Values, sessionUserID)
	delete(s.Values, sessionUsername)
	return s.Save(c.Request, c.Writer)
}

func AddFlash(c *gin.Context, store sessions.Store, typ, msg string) {
	s := session(c, store)
	s.AddFlash(FlashMessage{Type: typ, Message: msg})
	if err := s.Save(c.Request, c.Writer); err != nil {
		slog.Error("Failed to save session", "error", err)
	}
}

// Flashes pops pending flash messages
func Flashes(c *gin.Context, store sessions.Store) []FlashMessage {
	s := session(c, store)
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	var messages []FlashMessage
	for _, f := range raw {
		if fm, ok := f.(FlashMessage); ok {
			messages = append(messages, fm)
		}
	}
	if err := s.Save(c.Request, c.Writer); err != nil {
		slog.Error("Failed to save session", "error", err)
	}
	return messages
}
