package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/auth"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/calendar"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/db"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/events"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/handlers"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/jalons"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/metrics"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/repository"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/router"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/router/config"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/services"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/watcher"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// App - собранные компоненты сервиса.
type App struct {
	Config  config.Config
	Logger  *logrus.Logger
	Handler http.Handler
	Watcher *watcher.Watcher

	closers []func() error
}

// New подключается к хранилищам и собирает сервис по конфигурации.
// Redis и Kafka необязательны: без адреса кеш и события отключаются.
func New(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*App, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT %q: %w", cfg.RateLimit, err)
	}

	a := &App{Config: cfg, Logger: logger}

	dbPool, err := db.InitDb(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { dbPool.Close(); return nil })

	repo := a.repository(dbPool)
	publisher := a.publisher()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.NewPrometheus(reg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	clock := calendar.SystemClock{}
	marcheHandler := handlers.NewMarcheHandler(
		services.NewMarcheService(repo, jalons.DefaultCatalog, clock, publisher, logger), logger, cfg.RequestTimeout)
	recoursHandler := handlers.NewRecoursHandler(
		services.NewRecoursService(repo, clock, publisher, recorder, logger), logger, cfg.RequestTimeout)

	a.Handler = router.InitRoutes(marcheHandler, recoursHandler, router.Options{
		Tokens:   auth.NewTokenManager(cfg.JWTSecret),
		Limiter:  limiter.New(memory.NewStore(), rate),
		Recorder: recorder,
		Metrics:  metrics.Handler(reg),
		Logger:   logger,
		Health:   []handlers.Pinger{dbPool},
	})
	a.Watcher = watcher.NewWatcher(repo, clock, publisher, recorder, logger, cfg.WatchInterval)
	return a, nil
}

// NewSweeper собирает только то, что нужно для разового обхода сроков.
func NewSweeper(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	dbPool, err := db.InitDb(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { dbPool.Close(); return nil })

	a.Watcher = watcher.NewWatcher(repository.NewPostgresMarcheRepository(dbPool), calendar.SystemClock{},
		events.Noop{}, metrics.Noop{}, logger, cfg.WatchInterval)
	return a, nil
}

func (a *App) repository(dbPool *pgxpool.Pool) repository.MarcheRepository {
	var repo repository.MarcheRepository = repository.NewPostgresMarcheRepository(dbPool)
	if a.Config.RedisAddr == "" {
		a.Logger.Info("redis is not configured, marche cache disabled")
		return repo
	}

	client := redis.NewClient(&redis.Options{Addr: a.Config.RedisAddr})
	a.closers = append(a.closers, client.Close)
	return repository.NewCachedMarcheRepository(repo, client, a.Config.RedisTTL, a.Logger)
}

func (a *App) publisher() events.Publisher {
	brokers := a.Config.Brokers()
	if len(brokers) == 0 {
		a.Logger.Info("kafka is not configured, events disabled")
		return events.Noop{}
	}

	publisher := events.NewKafkaPublisher(brokers, a.Config.KafkaTopic)
	a.closers = append(a.closers, publisher.Close)
	return publisher
}

// Serve запускает HTTP сервер и watcher и останавливает их при отмене ctx.
func (a *App) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              a.Config.ServerAddress,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go a.Watcher.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Infof("server is listening on %s...", a.Config.ServerAddress)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Logger.Info("shutting down server")
	return server.Shutdown(shutdownCtx)
}

// Close освобождает соединения в обратном порядке.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.WithError(err).Warn("failed to close resource")
		}
	}
	a.closers = nil
}
