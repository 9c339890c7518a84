package httpapi

import (
	"encoding/json"
	"net/http"
)

// writeJSON writes a JSON response. Encoding errors after the header is
// out are unrecoverable; callers must not write again.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the API's error envelope. Clients key off the
// "error" field, never the HTTP reason phrase.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
