package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const cachePrefix = "marches360:marche:"

// RedisClient - подмножество команд redis, используемых кешем.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedMarcheRepository кеширует чтение marché по id в redis.
// Ошибки redis не прерывают запрос: чтение уходит в базу.
type CachedMarcheRepository struct {
	MarcheRepository
	client RedisClient
	ttl    time.Duration
	logger *logrus.Logger
}

// NewCachedMarcheRepository создаёт новый экземпляр CachedMarcheRepository.
func NewCachedMarcheRepository(repo MarcheRepository, client RedisClient, ttl time.Duration, logger *logrus.Logger) *CachedMarcheRepository {
	return &CachedMarcheRepository{
		MarcheRepository: repo,
		client:           client,
		ttl:              ttl,
		logger:           logger,
	}
}

// GetMarche возвращает marché из кеша или из базы.
func (r *CachedMarcheRepository) GetMarche(ctx context.Context, marcheId string) (*models.Marche, error) {
	key := cachePrefix + marcheId

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var marche models.Marche
		if err := json.Unmarshal(raw, &marche); err == nil {
			return &marche, nil
		}
		r.logger.WithField("key", key).Warn("corrupted cache entry")
	case !errors.Is(err, redis.Nil):
		r.logger.WithError(err).WithField("key", key).Warn("cache read failed")
	}

	marche, err := r.MarcheRepository.GetMarche(ctx, marcheId)
	if err != nil {
		return nil, err
	}
	_ = r.store(ctx, marche)
	return marche, nil
}

// PatchMarche обновляет marché и заменяет запись в кеше.
func (r *CachedMarcheRepository) PatchMarche(ctx context.Context, marcheId string, fields map[string]interface{}) (*models.Marche, error) {
	marche, err := r.MarcheRepository.PatchMarche(ctx, marcheId, fields)
	if err != nil {
		r.invalidate(ctx, marcheId)
		return nil, err
	}
	// Старая запись не должна пережить неудачную запись нового состояния.
	if err := r.store(ctx, marche); err != nil {
		r.invalidate(ctx, marcheId)
	}
	return marche, nil
}

func (r *CachedMarcheRepository) store(ctx context.Context, marche *models.Marche) error {
	raw, err := json.Marshal(marche)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, cachePrefix+marche.ID, raw, r.ttl).Err(); err != nil {
		r.logger.WithError(err).WithField("marche_id", marche.ID).Warn("cache write failed")
		return err
	}
	return nil
}

func (r *CachedMarcheRepository) invalidate(ctx context.Context, marcheId string) {
	if err := r.client.Del(ctx, cachePrefix+marcheId).Err(); err != nil {
		r.logger.WithError(err).WithField("marche_id", marcheId).Warn("cache invalidation failed")
	}
}
