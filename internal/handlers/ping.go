package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/logger"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/utils"
)

const pingTimeout = 2 * time.Second

// Pinger - зависимость, доступность которой проверяет /api/ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingHandler отвечает "ok", если все зависимости доступны, иначе 503.
func PingHandler(deps ...Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		for _, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				logger.Log.WithError(err).Warn("dependency is unavailable")
				utils.SendErrorResponse(w, http.StatusServiceUnavailable, "dependency unavailable")
				return
			}
		}

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
