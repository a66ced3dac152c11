package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"saldos/internal/core"
)

func TestFlashSigner_RoundTripAndTamper(t *testing.T) {
	signer := flashSigner{key: []byte("secret")}
	value, err := signer.encode(Flash{Kind: FlashSuccess, Message: "Saldo salvo"})
	if err != nil {
		t.Fatal(err)
	}

	if fl, ok := signer.decode(value); !ok || fl.Message != "Saldo salvo" {
		t.Fatalf("decode = %+v, %v", fl, ok)
	}

	body, sig, _ := strings.Cut(value, ".")
	forged, _ := signer.encode(Flash{Kind: FlashSuccess, Message: "forged"})
	forgedBody, _, _ := strings.Cut(forged, ".")

	tests := []struct {
		name  string
		value string
	}{
		{"swapped body", forgedBody + "." + sig},
		{"no signature", body},
		{"bad base64", body + ".!!"},
		{"other key", func() string { v, _ := flashSigner{key: []byte("other")}.encode(Flash{Kind: FlashSuccess}); return v }()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := signer.decode(tt.value); ok {
				t.Error("tampered value accepted")
			}
		})
	}

	if _, ok := signer.decode(mustEncode(t, signer, Flash{Kind: "script", Message: "x"})); ok {
		t.Error("unknown kind accepted")
	}
}

func mustEncode(t *testing.T, s flashSigner, fl Flash) string {
	t.Helper()
	v, err := s.encode(fl)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestFlashSigner_Pop(t *testing.T) {
	signer := flashSigner{key: []byte("secret"), secure: true}

	rec := httptest.NewRecorder()
	if signer.pop(rec, httptest.NewRequest(http.MethodGet, "/", nil)) != nil {
		t.Fatal("pop without cookie returned a flash")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("pop without cookie touched cookies")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: flashCookieName, Value: mustEncode(t, signer, Flash{Kind: FlashDanger, Message: "erro"})})
	rec = httptest.NewRecorder()
	fl := signer.pop(rec, req)
	if fl == nil || fl.Kind != FlashDanger || fl.Message != "erro" {
		t.Fatalf("pop = %+v", fl)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 || !cookies[0].Secure {
		t.Errorf("expected a secure deletion cookie, got %+v", cookies)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{core.ErrInvalidCode, http.StatusUnprocessableEntity},
		{core.ErrEmptyDescription, http.StatusUnprocessableEntity},
		{core.ErrDescriptionTooLong, http.StatusUnprocessableEntity},
		{core.ErrDuplicateCode, http.StatusConflict},
		{core.ErrNotFound, http.StatusNotFound},
		{core.ErrInvalidPage, http.StatusBadRequest},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, msg := classify(tt.err)
			if status != tt.status {
				t.Errorf("status = %d, want %d", status, tt.status)
			}
			if msg == "" {
				t.Error("empty message")
			}
		})
	}

	if _, msg := classify(errors.New("secret path /var/db")); msg != msgUnexpected {
		t.Errorf("internal error leaked: %q", msg)
	}
}
