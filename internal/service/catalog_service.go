package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-access/internal/config"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stemsi/exstem-access/internal/repository"
)

// CatalogService serves the candidate-facing view of tests. When Redis is
// configured the sanitized payload is cached; tests are immutable once
// created, so entries are only ever evicted by TTL.
type CatalogService struct {
	tests repository.TestStore
	rdb   *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCatalogService creates a new CatalogService. rdb may be nil.
func NewCatalogService(tests repository.TestStore, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *CatalogService {
	return &CatalogService{
		tests: tests,
		rdb:   rdb,
		ttl:   cfg.CatalogCacheTTL,
		log:   log.With().Str("component", "catalog_service").Logger(),
	}
}

// Deliverable returns the public projection of a test. A test without
// questions or duration is refused with ErrTestNotDeliverable.
func (s *CatalogService) Deliverable(ctx context.Context, testID uuid.UUID) (*model.PublicTest, error) {
	key := config.CacheKey.PublicTestKey(testID.String())

	if s.rdb != nil {
		data, err := s.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var pt model.PublicTest
			if err := json.Unmarshal(data, &pt); err == nil {
				return &pt, nil
			}
			s.log.Warn().Str("test_id", testID.String()).Msg("Discarding corrupt cached test")
		case !errors.Is(err, redis.Nil):
			s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Catalog cache read failed, using store")
		}
	}

	t, err := loadTest(ctx, s.tests, testID)
	if err != nil {
		return nil, err
	}
	if !t.Deliverable() {
		return nil, ErrTestNotDeliverable
	}
	pt := model.ForDelivery(t)

	if s.rdb != nil {
		if data, err := json.Marshal(pt); err == nil {
			if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
				s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Catalog cache write failed")
			}
		}
	}

	return &pt, nil
}

// List returns the public projection of every test, newest first.
func (s *CatalogService) List(ctx context.Context) ([]model.PublicTest, error) {
	tests, err := s.tests.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.PublicTest, 0, len(tests))
	for i := range tests {
		out = append(out, model.ForDelivery(&tests[i]))
	}
	return out, nil
}
