// Package histcache is the cookie-backed, time-bounded history cache
// used for optimistic local redisplay of chat messages and design
// snapshots. The relational store stays the system of record; entries
// here only have to survive long enough to repopulate a page load.
package histcache

import (
	"net/http"
	"net/url"
	"time"
)

// Store is the key-value slot the caches write through. Injecting it
// keeps the cache logic independent of the cookie transport and lets
// tests substitute an in-memory store.
type Store interface {
	// Get returns the raw stored value for name.
	Get(name string) (string, bool)
	// Set stores value under name with an expiry of ttl from now.
	Set(name, value string, ttl time.Duration)
	// Clear removes the value stored under name.
	Clear(name string)
}

// CookieStore implements Store over a request/response pair. Values are
// URL-encoded, path-scoped to "/", and SameSite=Strict, matching the
// browser cookies the original client wrote.
type CookieStore struct {
	Request *http.Request
	Writer  http.ResponseWriter
}

// NewCookieStore creates a cookie-backed store for one request cycle.
func NewCookieStore(w http.ResponseWriter, r *http.Request) *CookieStore {
	return &CookieStore{Request: r, Writer: w}
}

// Get returns the decoded value of the named cookie.
func (c *CookieStore) Get(name string) (string, bool) {
	cookie, err := c.Request.Cookie(name)
	if err != nil {
		return "", false
	}
	value, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return "", false
	}
	return value, true
}

// Set writes the named cookie with an explicit expiry.
func (c *CookieStore) Set(name, value string, ttl time.Duration) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    url.QueryEscape(value),
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		SameSite: http.SameSiteStrictMode,
	})
}

// Clear expires the named cookie.
func (c *CookieStore) Clear(name string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		SameSite: http.SameSiteStrictMode,
	})
}

// MemoryStore is an in-process Store for tests and server-side use.
type MemoryStore struct {
	values map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]memoryEntry)}
}

// Get returns the stored value if it has not expired.
func (m *MemoryStore) Get(name string) (string, bool) {
	entry, ok := m.values[name]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.value, true
}

// Set stores value with an expiry of ttl from now.
func (m *MemoryStore) Set(name, value string, ttl time.Duration) {
	m.values[name] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
}

// Clear removes the stored value.
func (m *MemoryStore) Clear(name string) {
	delete(m.values, name)
}
