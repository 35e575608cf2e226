package server

import (
	"encoding/json"
	"io"
	"net/http"
)

// maxRequestBody caps API request bodies; every payload this service
// accepts fits well inside it.
const maxRequestBody = 64 << 10

func readJSON(body io.Reader, dest any) error {
	decoder := json.NewDecoder(io.LimitReader(body, maxRequestBody))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
