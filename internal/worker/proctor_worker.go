package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-access/internal/config"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stemsi/exstem-access/internal/repository"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ProctorWorker drains the proctor event queue into the event store in batches.
type ProctorWorker struct {
	store repository.ProctorEventStore
	rdb   *redis.Client
	log   zerolog.Logger

	// backoff is slept after a Redis error or a requeue.
	backoff time.Duration
}

// NewProctorWorker creates a new ProctorWorker.
func NewProctorWorker(store repository.ProctorEventStore, rdb *redis.Client, log zerolog.Logger) *ProctorWorker {
	return &ProctorWorker{
		store:   store,
		rdb:     rdb,
		log:     log.With().Str("component", "proctor_worker").Logger(),
		backoff: 2 * time.Second,
	}
}

// Start blocks until ctx is cancelled, then flushes what it has buffered.
func (w *ProctorWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ProctorWorker started")

	buffer := make([]model.ProctorEvent, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= BatchSize || time.Since(lastFlush) >= BatchTimeout) {
			w.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistProctorEventsQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("Redis error, backing off")
			w.sleep(ctx)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var ev model.ProctorEvent
		if err := json.Unmarshal([]byte(result[1]), &ev); err != nil {
			// Malformed payloads can never succeed; drop them.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed proctor event")
			continue
		}
		buffer = append(buffer, ev)
	}
}

// flushSafe tries one bulk insert, then row by row, then requeues what is left.
func (w *ProctorWorker) flushSafe(ctx context.Context, batch []model.ProctorEvent) {
	err := w.store.InsertBatch(ctx, batch)
	if err == nil {
		w.log.Debug().Int("count", len(batch)).Msg("Proctor events persisted")
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")

	var failed []model.ProctorEvent
	for _, ev := range batch {
		if err := w.store.InsertBatch(ctx, []model.ProctorEvent{ev}); err != nil {
			w.log.Error().Err(err).Str("code", ev.AccessCode).Msg("Insert failed, requeueing")
			failed = append(failed, ev)
		}
	}
	if len(failed) > 0 {
		w.requeue(ctx, failed)
	}
}

func (w *ProctorWorker) requeue(ctx context.Context, items []model.ProctorEvent) {
	pipe := w.rdb.Pipeline()
	for _, ev := range items {
		data, _ := json.Marshal(ev)
		pipe.RPush(ctx, config.WorkerKey.PersistProctorEventsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: failed to requeue proctor events, data lost")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed proctor events")
	w.sleep(ctx)
}

func (w *ProctorWorker) sleep(ctx context.Context) {
	t := time.NewTimer(w.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (w *ProctorWorker) shutdown(buffer []model.ProctorEvent) {
	w.log.Info().Int("buffered", len(buffer)).Msg("ProctorWorker stopping, flushing buffer")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
