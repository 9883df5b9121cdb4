// Package memory is a process-local storage driver. It backs development runs
// with STORAGE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stemsi/exstem-access/internal/repository"
)

// state is the transactional part of the store.
type state struct {
	tests     map[uuid.UUID]*model.Test
	testOrder []uuid.UUID
	codes     map[string]model.AccessCode
	results   []model.Result
}

func newState() *state {
	return &state{
		tests: make(map[uuid.UUID]*model.Test),
		codes: make(map[string]model.AccessCode),
	}
}

func (st *state) clone() *state {
	c := &state{
		tests:     make(map[uuid.UUID]*model.Test, len(st.tests)),
		testOrder: append([]uuid.UUID(nil), st.testOrder...),
		codes:     make(map[string]model.AccessCode, len(st.codes)),
		results:   append([]model.Result(nil), st.results...),
	}
	for id, t := range st.tests {
		c.tests[id] = t.Clone()
	}
	for k, v := range st.codes {
		c.codes[k] = v
	}
	return c
}

// Store keeps every record in memory behind a single mutex.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time

	admins      map[int]model.Admin
	nextAdminID int
	events      []model.ProctorEvent
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		st:          newState(),
		now:         time.Now,
		admins:      make(map[int]model.Admin),
		nextAdminID: 1,
	}
}

// WithClock replaces the clock used for generated timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Tests returns a TestStore outside any unit of work.
func (s *Store) Tests() repository.TestStore { return testStore{s: s} }

// Codes returns a CodeStore outside any unit of work.
func (s *Store) Codes() repository.CodeStore { return codeStore{s: s} }

// Results returns a ResultStore outside any unit of work.
func (s *Store) Results() repository.ResultStore { return resultStore{s: s} }

// Admins returns the AdminStore.
func (s *Store) Admins() repository.AdminStore { return adminStore{s: s} }

// ProctorEvents returns the ProctorEventStore.
func (s *Store) ProctorEvents() repository.ProctorEventStore { return eventStore{s: s} }

// Do runs fn with exclusive access to the store. If fn fails or panics, every
// change it made is discarded.
func (s *Store) Do(ctx context.Context, fn func(st repository.Stores) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	tx := s.st
	defer func() {
		if p := recover(); p != nil {
			s.st = snapshot
			panic(p)
		}
		if err != nil {
			s.st = snapshot
		}
	}()

	return fn(repository.Stores{
		Tests:   testStore{s: s, tx: tx},
		Codes:   codeStore{s: s, tx: tx},
		Results: resultStore{s: s, tx: tx},
	})
}

// Events returns a copy of every persisted proctor event.
func (s *Store) Events() []model.ProctorEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ProctorEvent(nil), s.events...)
}

// with runs fn against tx when bound to a unit of work, otherwise under the lock.
func (s *Store) with(tx *state, fn func(st *state) error) error {
	if tx != nil {
		return fn(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

type testStore struct {
	s  *Store
	tx *state
}

func (r testStore) Create(_ context.Context, t *model.Test) error {
	return r.s.with(r.tx, func(st *state) error {
		t.ID = uuid.New()
		t.CreatedAt = r.s.now()
		for i := range t.Questions {
			t.Questions[i].ID = uuid.New()
		}
		st.tests[t.ID] = t.Clone()
		st.testOrder = append(st.testOrder, t.ID)
		return nil
	})
}

func (r testStore) GetByID(_ context.Context, id uuid.UUID) (*model.Test, error) {
	var out *model.Test
	err := r.s.with(r.tx, func(st *state) error {
		t, ok := st.tests[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = t.Clone()
		return nil
	})
	return out, err
}

func (r testStore) List(_ context.Context) ([]model.Test, error) {
	var out []model.Test
	err := r.s.with(r.tx, func(st *state) error {
		for i := len(st.testOrder) - 1; i >= 0; i-- {
			out = append(out, *st.tests[st.testOrder[i]].Clone())
		}
		return nil
	})
	return out, err
}

type codeStore struct {
	s  *Store
	tx *state
}

func (r codeStore) Create(_ context.Context, c *model.AccessCode) error {
	return r.s.with(r.tx, func(st *state) error {
		if _, exists := st.codes[c.Code]; exists {
			return repository.ErrDuplicateCode
		}
		c.IsUsed = false
		c.GeneratedAt = r.s.now()
		st.codes[c.Code] = *c
		return nil
	})
}

func (r codeStore) GetUnused(_ context.Context, code string) (*model.AccessCode, error) {
	var out *model.AccessCode
	err := r.s.with(r.tx, func(st *state) error {
		c, ok := st.codes[code]
		if !ok || c.IsUsed {
			return repository.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r codeStore) MarkUsed(_ context.Context, code string) error {
	return r.s.with(r.tx, func(st *state) error {
		c, ok := st.codes[code]
		if !ok || c.IsUsed {
			return repository.ErrCodeUsed
		}
		c.IsUsed = true
		st.codes[code] = c
		return nil
	})
}

type resultStore struct {
	s  *Store
	tx *state
}

func (r resultStore) Create(_ context.Context, res *model.Result) error {
	return r.s.with(r.tx, func(st *state) error {
		res.ID = uuid.New()
		res.SubmittedAt = r.s.now()
		stored := *res
		stored.Answers = append([]model.GradedAnswer(nil), res.Answers...)
		st.results = append(st.results, stored)
		return nil
	})
}

func (r resultStore) ListByTest(_ context.Context, testID uuid.UUID) ([]model.Result, error) {
	var out []model.Result
	err := r.s.with(r.tx, func(st *state) error {
		for i := len(st.results) - 1; i >= 0; i-- {
			res := st.results[i]
			if res.TestID != testID {
				continue
			}
			res.Answers = append([]model.GradedAnswer(nil), res.Answers...)
			out = append(out, res)
		}
		return nil
	})
	return out, err
}

type adminStore struct {
	s *Store
}

func (r adminStore) Create(_ context.Context, a *model.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.admins {
		if existing.Username == a.Username {
			return repository.ErrDuplicateUser
		}
	}
	a.ID = r.s.nextAdminID
	a.CreatedAt = r.s.now()
	r.s.nextAdminID++
	r.s.admins[a.ID] = *a
	return nil
}

func (r adminStore) GetByUsername(_ context.Context, username string) (*model.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.admins {
		if a.Username == username {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r adminStore) GetByID(_ context.Context, id int) (*model.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.admins[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

type eventStore struct {
	s *Store
}

func (r eventStore) InsertBatch(_ context.Context, events []model.ProctorEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.events = append(r.s.events, events...)
	return nil
}
