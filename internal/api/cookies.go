package api

import (
	"net/http"
	"net/url"
	"sync"
	"time"
)

const cookieMaxAge = 365 * 24 * time.Hour

// CookieStore keeps a shopper's widget preferences in cookies, the
// per-request stand-in for the browser's localStorage. Writes are visible
// to later reads on the same request.
type CookieStore struct {
	w http.ResponseWriter
	r *http.Request

	mu      sync.Mutex
	pending map[string]*string // nil value means deleted
}

// NewCookieStore binds a store to one request/response pair.
func NewCookieStore(w http.ResponseWriter, r *http.Request) *CookieStore {
	return &CookieStore{w: w, r: r, pending: make(map[string]*string)}
}

// Get returns the cookie value for key.
func (s *CookieStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.pending[key]; ok {
		if v == nil {
			return "", false, nil
		}
		return *v, true, nil
	}

	c, err := s.r.Cookie(key)
	if err != nil {
		return "", false, nil
	}
	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		return "", false, nil
	}
	return v, true, nil
}

// Set writes key as a long-lived cookie.
func (s *CookieStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[key] = &value
	http.SetCookie(s.w, &http.Cookie{
		Name:     key,
		Value:    url.QueryEscape(value),
		Path:     "/",
		MaxAge:   int(cookieMaxAge / time.Second),
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Delete expires the cookie for key.
func (s *CookieStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[key] = nil
	http.SetCookie(s.w, &http.Cookie{
		Name:   key,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	return nil
}
