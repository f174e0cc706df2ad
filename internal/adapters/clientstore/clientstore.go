// Package clientstore holds small per-browser values such as the signed-in
// user's role and display name.
package clientstore

import (
	"net/http"
	"net/url"
	"sync"
)

// cookiePrefix namespaces client values among the site's cookies.
const cookiePrefix = "md_"

// Cookie stores values as cookies on one request/response pair. Values
// written during the request are visible to later reads on the same request.
type Cookie struct {
	w      http.ResponseWriter
	r      *http.Request
	secure bool
	keys   []string

	mu      sync.Mutex
	overlay map[string]*string
}

// NewCookie creates cookie storage for a request. keys lists every key that
// Clear must expire.
func NewCookie(w http.ResponseWriter, r *http.Request, secure bool, keys ...string) *Cookie {
	return &Cookie{w: w, r: r, secure: secure, keys: keys, overlay: map[string]*string{}}
}

// Set writes value under key.
func (c *Cookie) Set(key, value string) {
	c.mu.Lock()
	v := value
	c.overlay[key] = &v
	c.mu.Unlock()

	http.SetCookie(c.w, &http.Cookie{
		Name:     cookiePrefix + key,
		Value:    url.QueryEscape(value),
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Get returns the value for key and whether it was present.
func (c *Cookie) Get(key string) (string, bool) {
	c.mu.Lock()
	if v, ok := c.overlay[key]; ok {
		c.mu.Unlock()
		if v == nil {
			return "", false
		}
		return *v, true
	}
	c.mu.Unlock()

	cookie, err := c.r.Cookie(cookiePrefix + key)
	if err != nil {
		return "", false
	}
	v, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return "", false
	}
	return v, true
}

// Clear expires every known key.
func (c *Cookie) Clear() {
	c.mu.Lock()
	for _, k := range c.keys {
		c.overlay[k] = nil
	}
	c.mu.Unlock()

	for _, k := range c.keys {
		http.SetCookie(c.w, &http.Cookie{
			Name:     cookiePrefix + k,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   c.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// Memory is an in-process client store.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

// Set writes value under key.
func (m *Memory) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// Get returns the value for key and whether it was present.
func (m *Memory) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

// Clear removes every value.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = map[string]string{}
}
