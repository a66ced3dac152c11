package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

const flashCookieName = "saldos_flash"

const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
)

// Flash is a one-shot message shown on the page after a redirect.
type Flash struct {
	Kind    string `json:"k"`
	Message string `json:"m"`
}

// flashSigner stores flashes in an HMAC-SHA256 signed cookie.
type flashSigner struct {
	key    []byte
	secure bool
}

func (f flashSigner) set(w http.ResponseWriter, fl Flash) {
	value, err := f.encode(fl)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// pop returns the pending flash, if any, and clears the cookie. Tampered
// cookies are discarded.
func (f flashSigner) pop(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	})

	fl, ok := f.decode(c.Value)
	if !ok {
		return nil
	}
	return &fl
}

func (f flashSigner) encode(fl Flash) (string, error) {
	payload, err := json.Marshal(fl)
	if err != nil {
		return "", err
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + base64.RawURLEncoding.EncodeToString(f.sign(body)), nil
}

func (f flashSigner) decode(value string) (Flash, bool) {
	body, sig, ok := strings.Cut(value, ".")
	if !ok {
		return Flash{}, false
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(got, f.sign(body)) {
		return Flash{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return Flash{}, false
	}

	var fl Flash
	if err := json.Unmarshal(payload, &fl); err != nil {
		return Flash{}, false
	}
	if fl.Kind != FlashSuccess && fl.Kind != FlashDanger {
		return Flash{}, false
	}
	return fl, true
}

func (f flashSigner) sign(body string) []byte {
	mac := hmac.New(sha256.New, f.key)
	mac.Write([]byte(body))
	return mac.Sum(nil)
}
