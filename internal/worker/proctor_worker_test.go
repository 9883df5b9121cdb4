package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-access/internal/config"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	mu       sync.Mutex
	events   []model.ProctorEvent
	failBulk bool
	failCode string
	rejected int
}

func (s *recordingStore) InsertBatch(_ context.Context, events []model.ProctorEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failBulk && len(events) > 1 {
		return errors.New("copy failed")
	}
	for _, e := range events {
		if e.AccessCode == s.failCode {
			s.rejected++
			return errors.New("row rejected")
		}
	}
	s.events = append(s.events, events...)
	return nil
}

func (s *recordingStore) snapshot() []model.ProctorEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ProctorEvent(nil), s.events...)
}

func push(t *testing.T, mr *miniredis.Miniredis, code string) {
	t.Helper()
	data, err := json.Marshal(model.ProctorEvent{AccessCode: code, Kind: model.ProctorEventVisibilityLost, RecordedAt: time.Now().UTC()})
	require.NoError(t, err)
	_, err = mr.Push(config.WorkerKey.PersistProctorEventsQueue, string(data))
	require.NoError(t, err)
}

func startWorker(t *testing.T, store *recordingStore) (*miniredis.Miniredis, context.CancelFunc, <-chan struct{}) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	w := NewProctorWorker(store, rdb, zerolog.Nop())
	w.backoff = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Start(ctx)
	}()
	return mr, cancel, done
}

func TestProctorWorker_PersistsQueuedEvents(t *testing.T) {
	store := &recordingStore{}
	mr, cancel, done := startWorker(t, store)

	push(t, mr, "AAA111")
	push(t, mr, "BBB222")
	push(t, mr, "CCC333")

	assert.Eventually(t, func() bool { return len(store.snapshot()) == 3 }, 5*time.Second, 50*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, "AAA111", store.snapshot()[0].AccessCode)
}

func TestProctorWorker_FlushesOnShutdown(t *testing.T) {
	store := &recordingStore{}
	mr, cancel, done := startWorker(t, store)

	push(t, mr, "AAA111")
	// Wait until the worker has taken the event off the queue.
	assert.Eventually(t, func() bool {
		n, _ := mr.List(config.WorkerKey.PersistProctorEventsQueue)
		return len(n) == 0
	}, 3*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	cancel()
	<-done
	assert.Len(t, store.snapshot(), 1)
}

func TestProctorWorker_FallbackAndRequeue(t *testing.T) {
	store := &recordingStore{failBulk: true, failCode: "BAD000"}
	mr, cancel, done := startWorker(t, store)

	push(t, mr, "AAA111")
	push(t, mr, "BAD000")

	assert.Eventually(t, func() bool {
		for _, e := range store.snapshot() {
			if e.AccessCode == "AAA111" {
				return true
			}
		}
		return false
	}, 5*time.Second, 50*time.Millisecond)

	// The rejected row is requeued and retried rather than dropped.
	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.rejected >= 2
	}, 8*time.Second, 50*time.Millisecond)

	cancel()
	<-done

	for _, e := range store.snapshot() {
		assert.NotEqual(t, "BAD000", e.AccessCode)
	}
}

func TestProctorWorker_DropsMalformed(t *testing.T) {
	store := &recordingStore{}
	mr, cancel, done := startWorker(t, store)

	_, err := mr.Push(config.WorkerKey.PersistProctorEventsQueue, "{not json")
	require.NoError(t, err)
	push(t, mr, "AAA111")

	assert.Eventually(t, func() bool { return len(store.snapshot()) == 1 }, 5*time.Second, 50*time.Millisecond)
	cancel()
	<-done
}
