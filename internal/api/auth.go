package api

import (
	"net/http"
	"strings"

	"loothound/internal/app"
)

const bearerPrefix = "Bearer "

// extractBearerToken pulls the auth token out of an Authorization
// header. It reports false unless the header is exactly the Bearer
// prefix followed by 32 lowercase hex characters.
func extractBearerToken(header string) (string, bool) {
	if len(header) != len(bearerPrefix)+app.TokenLength {
		return "", false
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := header[len(bearerPrefix):]
	for _, c := range token {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", false
		}
	}
	return token, true
}

// authorize resolves the request's player or writes the appropriate 401
// and returns nil.
func (h *handlers) authorize(w http.ResponseWriter, r *http.Request) *app.Player {
	token, ok := extractBearerToken(r.Header.Get("Authorization"))
	if !ok {
		writeError(w, http.StatusUnauthorized, codeInvalidToken,
			"Authorization header is missing or malformed")
		return nil
	}
	player := h.app.FindPlayerByToken(token)
	if player == nil {
		writeError(w, http.StatusUnauthorized, codeUnknownToken,
			"Player token has not been found")
		return nil
	}
	return player
}
