package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jonwraymond/assetmigrate/failure"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// StatusFor maps a failure kind to an HTTP status code.
func StatusFor(kind failure.Kind) int {
	switch kind {
	case failure.KindValidation:
		return http.StatusBadRequest
	case failure.KindNotFound:
		return http.StatusNotFound
	case failure.KindCyclicGraph:
		return http.StatusConflict
	case failure.KindCapacityExceeded:
		return http.StatusTooManyRequests
	case failure.KindCircuitOpen:
		return http.StatusServiceUnavailable
	case failure.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	kind := failure.KindOf(err)
	status := StatusFor(kind)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind.String()})
}

// decodeBody decodes a JSON request body into v, rejecting unknown fields
// and trailing data.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	body := r.Body
	if limit > 0 {
		body = http.MaxBytesReader(w, r.Body, limit)
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return failure.Wrap(failure.KindValidation, "api.decode", err)
	}
	if dec.More() {
		return failure.New(failure.KindValidation, "api.decode", "unexpected data after request body")
	}
	return nil
}
