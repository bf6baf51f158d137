// Package fingerprint derives a best-effort stable per-device identifier.
// The id only needs to deduplicate votes from the same browser; it is not
// an identity or a security credential.
package fingerprint

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// CookieName holds the generated device id between page loads
	CookieName = "stagevote_device"
	cookieAge  = 365 * 24 * time.Hour
)

// Provider produces a stable per-device string. Implementations may vary
// (cookie, request-derived hash); callers only rely on statistical
// stability across reloads from the same device.
type Provider interface {
	StableID(w http.ResponseWriter, r *http.Request) string
}

// CookieProvider issues a random uuid on first contact and pins it in a
// long-lived cookie. Devices that refuse cookies fall back to a request
// hash, which is stable enough for dedup within a show.
type CookieProvider struct {
	fallback *HashProvider
}

// NewCookieProvider creates the default provider. salt feeds the hash
// fallback so fingerprints are not portable between deployments.
func NewCookieProvider(salt string) *CookieProvider {
	return &CookieProvider{fallback: NewHashProvider(salt)}
}

// StableID returns the device id, minting and setting the cookie when absent
func (p *CookieProvider) StableID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	// A client that drops cookies would mint a fresh uuid per request,
	// letting it vote repeatedly. Bare clients (no cookie jar, no user
	// agent) get a hash-derived id instead, stable for the show.
	id := uuid.NewString()
	if r.Header.Get("Cookie") == "" && r.UserAgent() == "" {
		id = p.fallback.StableID(w, r)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(cookieAge.Seconds()),
	})
	return id
}

// HashProvider derives the id from request attributes via HMAC. Weaker
// than the cookie (shared NAT + identical browser collide) but needs no
// client-side storage.
type HashProvider struct {
	salt []byte
}

// NewHashProvider creates a request-hash provider
func NewHashProvider(salt string) *HashProvider {
	return &HashProvider{salt: []byte(salt)}
}

// StableID hashes user agent, accept-language and client IP
func (p *HashProvider) StableID(_ http.ResponseWriter, r *http.Request) string {
	h := hmac.New(sha256.New, p.salt)
	h.Write([]byte(r.UserAgent()))
	h.Write([]byte(r.Header.Get("Accept-Language")))
	h.Write([]byte(clientIP(r)))
	sum := h.Sum(nil)
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum[:18]), "=")
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
