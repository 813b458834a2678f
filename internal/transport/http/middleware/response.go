package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError emits the middleware-level error envelope (auth, role and
// rate-limit rejections). Handlers have their own envelope helpers; the two
// shapes agree on the "error" key.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
