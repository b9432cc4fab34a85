package mvc

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/R3E-Network/mvc_bridge/internal/errors"
)

// URLParam returns a route parameter.
func URLParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// Param returns a query or form parameter.
func Param(r *http.Request, key string) string {
	return r.FormValue(key)
}

// RequiredParam returns a parameter or a 400 error when it is absent.
func RequiredParam(r *http.Request, key string) (string, error) {
	v := Param(r, key)
	if v == "" {
		return "", apperrors.BadRequest("Required request parameter '" + key + "' is not present")
	}
	return v, nil
}

// Headers returns the first value of every request header.
func Headers(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.Header))
	for name := range r.Header {
		out[name] = r.Header.Get(name)
	}
	return out
}

// Cookies returns the request cookies.
func Cookies(r *http.Request) []*http.Cookie {
	return r.Cookies()
}

// DecodeBody decodes the JSON body into v. A missing body is a 400.
func DecodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return apperrors.BadRequest("Required request body is missing")
	}

	err := json.NewDecoder(r.Body).Decode(v)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return apperrors.BadRequest("Required request body is missing")
	case errors.As(err, &tooLarge):
		return apperrors.New(apperrors.CodeBadRequest, "Request body too large", http.StatusRequestEntityTooLarge)
	default:
		return apperrors.Wrap(err, apperrors.CodeBadRequest, "Malformed JSON request body", http.StatusBadRequest)
	}
}
