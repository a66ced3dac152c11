package http

import (
	"encoding/json"
	"net/http"
)

// ResponseBuilder provides a fluent API for responses that are not full
// pages: redirects carrying a flash, JSON probes and plain errors.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	flash      *Flash
	body       []byte
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Flash attaches a one-shot message for the next page view.
func (b *ResponseBuilder) Flash(kind, message string) *ResponseBuilder {
	b.flash = &Flash{Kind: kind, Message: message}
	return b
}

// Redirect turns the response into a 303 to location, the answer to a
// successful form post.
func (b *ResponseBuilder) Redirect(location string) *ResponseBuilder {
	b.statusCode = http.StatusSeeOther
	b.headers["Location"] = location
	return b
}

func (b *ResponseBuilder) BodyText(content string) *ResponseBuilder {
	b.headers["Content-Type"] = "text/plain; charset=utf-8"
	b.body = []byte(content)
	return b
}

func (b *ResponseBuilder) BodyJSON(v any) *ResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		return b.Status(http.StatusInternalServerError).BodyText(http.StatusText(http.StatusInternalServerError))
	}
	b.headers["Content-Type"] = "application/json"
	b.body = data
	return b
}

// Write sends the built response. The signer is needed only when a flash
// was attached.
func (b *ResponseBuilder) Write(w http.ResponseWriter, signer *flashSigner) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.flash != nil && signer != nil {
		signer.set(w, *b.flash)
	}

	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse creates a plain text error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).BodyText(message)
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func TooManyRequestsError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, message)
}
