package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-access/internal/config"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stemsi/exstem-access/internal/repository"
)

// ErrUnknownProctorEvent is returned for event kinds the server does not record.
var ErrUnknownProctorEvent = errors.New("unknown proctor event")

// ProctorService accepts streamed monitoring events for codes that are in use.
// Events are advisory; grading only ever sees the tab switch count the
// candidate submits.
type ProctorService struct {
	codes  *AccessCodeService
	events repository.ProctorEventStore
	rdb    *redis.Client
	now    func() time.Time
	log    zerolog.Logger
}

// NewProctorService creates a new ProctorService. With a nil rdb events are
// written straight to the store instead of going through the worker queue.
func NewProctorService(codes *AccessCodeService, events repository.ProctorEventStore, rdb *redis.Client, log zerolog.Logger) *ProctorService {
	return &ProctorService{
		codes:  codes,
		events: events,
		rdb:    rdb,
		now:    time.Now,
		log:    log.With().Str("component", "proctor_service").Logger(),
	}
}

// Authorize checks that a stream may be opened for code and returns its
// canonical form.
func (s *ProctorService) Authorize(ctx context.Context, code string) (string, error) {
	ac, err := s.codes.Lookup(ctx, code)
	if err != nil {
		return "", err
	}
	return ac.Code, nil
}

// Record enqueues one event for persistence and bumps the live tally.
func (s *ProctorService) Record(ctx context.Context, code string, kind model.ProctorEventKind) error {
	switch kind {
	case model.ProctorEventVisibilityLost, model.ProctorEventVisibilityRestored:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownProctorEvent, kind)
	}

	ev := model.ProctorEvent{AccessCode: code, Kind: kind, RecordedAt: s.now()}

	if s.rdb == nil {
		return s.events.InsertBatch(ctx, []model.ProctorEvent{ev})
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pipe := s.rdb.Pipeline()
	pipe.RPush(ctx, config.WorkerKey.PersistProctorEventsQueue, data)
	pipe.HIncrBy(ctx, config.CacheKey.ProctorTallyKey(code), string(kind), 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue proctor event: %w", err)
	}
	return nil
}

// Tally returns the live per-kind event counts for a code. Without Redis
// there is no live tally and the result is empty.
func (s *ProctorService) Tally(ctx context.Context, code string) (map[string]int64, error) {
	out := make(map[string]int64)
	if s.rdb == nil {
		return out, nil
	}

	raw, err := s.rdb.HGetAll(ctx, config.CacheKey.ProctorTallyKey(NormalizeCode(code))).Result()
	if err != nil {
		return nil, err
	}
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.log.Warn().Str("field", k).Str("value", v).Msg("Skipping non-numeric tally field")
			continue
		}
		out[k] = n
	}
	return out, nil
}
