package mvc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"
)

// Response is the success envelope: {"data":...,"total":n,"success":true}.
// Nil data is written as {"success":true}.
type Response struct {
	Data    any  `json:"data,omitempty"`
	Total   int  `json:"total,omitempty"`
	Success bool `json:"success"`
}

// NewResponse wraps data. Total is the length of slice and array data and
// 1 for any other non-nil value.
func NewResponse(data any) Response {
	if data == nil {
		return Response{Success: true}
	}
	total := 1
	switch v := reflect.ValueOf(data); v.Kind() {
	case reflect.Slice, reflect.Array:
		total = v.Len()
	}
	return Response{Data: data, Total: total, Success: true}
}

// ErrorResponse is the exception envelope.
type ErrorResponse struct {
	Success      bool   `json:"success"`
	Event        string `json:"event,omitempty"`
	Exception    string `json:"exception,omitempty"`
	Message      string `json:"message"`
	Cause        string `json:"cause,omitempty"`
	CauseMessage string `json:"causeMessage,omitempty"`
}

// ProcessingError wraps an error returned by a handler.
type ProcessingError struct {
	Err error
}

func (e *ProcessingError) Error() string {
	return "Request processing failed: " + e.Err.Error()
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// NewErrorResponse builds the exception envelope of a handler error.
func NewErrorResponse(err error) ErrorResponse {
	pe := &ProcessingError{Err: err}
	return ErrorResponse{
		Success:      false,
		Event:        "exception",
		Exception:    typeName(pe),
		Message:      pe.Error(),
		Cause:        typeName(err),
		CauseMessage: err.Error(),
	}
}

func typeName(v any) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", v), "*")
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handled is returned by handlers that wrote the response themselves.
type handled struct{}

// Handled tells the dispatcher the handler already wrote the response.
var Handled any = handled{}
