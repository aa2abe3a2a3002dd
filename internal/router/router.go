package router

import (
	"net/http"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/auth"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/handlers"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/metrics"

	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
)

// Options - зависимости, общие для всех маршрутов.
type Options struct {
	Tokens   *auth.TokenManager
	Limiter  *limiter.Limiter
	Recorder metrics.Recorder
	Metrics  http.Handler
	Logger   *logrus.Logger
	Health   []handlers.Pinger
}

func InitRoutes(marcheHandler *handlers.MarcheHandler, recoursHandler *handlers.RecoursHandler, opts Options) http.Handler {
	mux := http.NewServeMux()

	read := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, Instrument(opts.Recorder, opts.Logger, pattern, h))
	}
	write := func(pattern string, h http.HandlerFunc) {
		var next http.Handler = auth.Require(opts.Tokens, auth.ActionWrite, h)
		if opts.Limiter != nil {
			next = RateLimit(opts.Limiter, opts.Logger, next)
		}
		mux.Handle(pattern, Instrument(opts.Recorder, opts.Logger, pattern, next))
	}

	read("GET /api/ping", handlers.PingHandler(opts.Health...))
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	read("GET /api/marches", marcheHandler.GetMarches)
	write("POST /api/marches", marcheHandler.CreateMarche)
	read("GET /api/marches/{marcheId}", marcheHandler.GetMarche)
	read("GET /api/marches/{marcheId}/history", marcheHandler.GetHistory)
	read("GET /api/marches/{marcheId}/jalons", marcheHandler.GetJalons)
	write("PUT /api/marches/{marcheId}/jalons/{key}", marcheHandler.SetJalonDate)
	write("POST /api/marches/{marcheId}/infructueux", marcheHandler.DeclareInfructueux)
	write("POST /api/marches/{marcheId}/annulation", marcheHandler.Annuler)

	read("GET /api/marches/{marcheId}/recours/eligibility", recoursHandler.GetEligibility)
	write("POST /api/marches/{marcheId}/recours", recoursHandler.CreateRecours)
	write("PATCH /api/marches/{marcheId}/recours", recoursHandler.UpdateRecours)
	write("POST /api/marches/{marcheId}/recours/cloture", recoursHandler.CloseRecours)
	write("DELETE /api/marches/{marcheId}/recours", recoursHandler.RetractRecours)
	read("GET /api/marches/{marcheId}/recours/timer", recoursHandler.GetTimer)

	return mux
}
