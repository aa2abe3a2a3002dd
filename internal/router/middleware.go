package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/metrics"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/utils"

	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
)

// statusRecorder запоминает код ответа для метрик и логов.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Instrument записывает длительность и код ответа маршрута route.
func Instrument(recorder metrics.Recorder, logger *logrus.Logger, route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		recorder.ObserveRequest(r.Method, route, rec.status, elapsed)
		logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"route":       route,
			"status":      rec.status,
			"duration_ms": elapsed.Milliseconds(),
		}).Debug("request handled")
	})
}

// RateLimit ограничивает число запросов с одного IP.
func RateLimit(instance *limiter.Limiter, logger *logrus.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, err := instance.Get(r.Context(), instance.GetIPKey(r))
		if err != nil {
			logger.WithError(err).Error("rate limiter unavailable")
			utils.SendErrorResponse(w, http.StatusInternalServerError, "rate limiter unavailable")
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", limit.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", limit.Reset))

		if limit.Reached {
			utils.SendErrorResponse(w, http.StatusTooManyRequests, "too many requests, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}
