package server

import (
	"encoding/json"
	"net/http"
)

// Machine-readable error kinds. A downstream-transient condition is never a
// bare 500.
const (
	kindNotFound    = "not_found"
	kindBadRequest  = "bad_request"
	kindUnavailable = "upstream_unavailable"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Kind: kind, Message: message}})
}
