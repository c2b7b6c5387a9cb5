package httputil

import (
	"encoding/json"
	"net/http"
)

// WriteStatus writes a bare status response with the standard status text
// as body, like express's sendStatus. No internal error detail ever reaches
// the caller.
func WriteStatus(w http.ResponseWriter, status int) {
	http.Error(w, http.StatusText(status), status)
}

// WriteBadRequest writes a 400 response
func WriteBadRequest(w http.ResponseWriter) {
	WriteStatus(w, http.StatusBadRequest)
}

// WriteUnauthorized writes a 401 response
func WriteUnauthorized(w http.ResponseWriter) {
	WriteStatus(w, http.StatusUnauthorized)
}

// WriteInternalError writes a 500 response
func WriteInternalError(w http.ResponseWriter) {
	WriteStatus(w, http.StatusInternalServerError)
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteRawJSON writes pre-encoded JSON, used to pass proxy-service payloads
// through verbatim
func WriteRawJSON(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// Redirect issues a 302 to the given URL
func Redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusFound)
}
