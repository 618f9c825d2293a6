package daemon

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"converto/internal/services"
)

// identityMiddleware resolves "Authorization: Bearer <token>" to a user id
// from the configured token table and stamps it, with a fresh request id,
// onto the request context. Unknown or missing tokens get 401.
func (s *apiServer) identityMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		userID, known := s.tokens[token]
		if !known || userID <= 0 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := services.WithRequestID(r.Context(), requestID)
		ctx = services.WithUserID(ctx, userID)
		next(w, r.WithContext(ctx))
	}
}
