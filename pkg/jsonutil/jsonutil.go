// Package jsonutil holds the JSON request/response helpers shared by the HTTP handlers.
package jsonutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const encodeFailure = `{"error":"response could not be encoded"}`

// DefaultMaxBody caps request bodies; crop lists and gesture frames are small.
const DefaultMaxBody int64 = 1 << 20

// ErrorBody is the error payload returned to the browser.
type ErrorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// Write encodes v before writing the status. Values JSON cannot carry
// (NaN, ±Inf) produce a 500.
func Write(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, encodeFailure+"\n")
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	Write(w, status, ErrorBody{Error: msg})
}

func WriteFieldError(w http.ResponseWriter, status int, field, msg string) {
	Write(w, status, ErrorBody{Error: msg, Field: field})
}

// Decode reads one JSON value from the body. An empty body is an error.
func Decode(r *http.Request, v any, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBody
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
