package auth

import (
	"net/http"
	"strings"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/utils"
)

// Require пропускает запрос, только если bearer токен разрешает action.
func Require(tokens *TokenManager, action string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			utils.SendErrorResponse(w, http.StatusUnauthorized, "authorization required")
			return
		}

		principal, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			utils.SendErrorResponse(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if !principal.Can(action) {
			utils.SendErrorResponse(w, http.StatusForbidden, "missing permission "+action)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}
