package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// RespondJSON writes a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// RespondError writes the portal's error envelope. The code is a stable
// machine-readable identifier clients branch on (e.g. TOKEN_EXPIRED).
func RespondError(w http.ResponseWriter, status int, message, code string) {
	body := map[string]any{
		"success": false,
		"message": message,
	}
	if code != "" {
		body["code"] = code
	}
	RespondJSON(w, status, body)
}
