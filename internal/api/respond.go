package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Error codes carried in JSON error bodies.
const (
	codeInvalidArgument = "invalidArgument"
	codeMapNotFound     = "mapNotFound"
	codeInvalidToken    = "invalidToken"
	codeUnknownToken    = "unknownToken"
	codeBadRequest      = "badRequest"
	codeInvalidMethod   = "invalidMethod"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON renders v as indented JSON with an exact Content-Length and
// a no-cache header. Every API response goes through here.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

// allowGet admits GET and HEAD; anything else gets 405 with an Allow
// header.
func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	writeError(w, http.StatusMethodNotAllowed, codeInvalidMethod, "Invalid method")
	return false
}

// allowPost admits POST only.
func allowPost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodPost {
		return true
	}
	w.Header().Set("Allow", "POST")
	writeError(w, http.StatusMethodNotAllowed, codeInvalidMethod, "Invalid method")
	return false
}
