package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-access/internal/model"
)

// Storage errors shared by every driver.
var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateCode = errors.New("access code already exists")
	ErrCodeUsed      = errors.New("access code already used")
	ErrDuplicateUser = errors.New("username already exists")
)

// TestStore persists authoritative tests.
type TestStore interface {
	Create(ctx context.Context, t *model.Test) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error)
	List(ctx context.Context) ([]model.Test, error)
}

// CodeStore persists access codes.
type CodeStore interface {
	// Create inserts a code. It returns ErrDuplicateCode on a collision.
	Create(ctx context.Context, c *model.AccessCode) error
	// GetUnused returns the code only while it is unused, ErrNotFound otherwise.
	GetUnused(ctx context.Context, code string) (*model.AccessCode, error)
	// MarkUsed flips is_used from false to true in one atomic step.
	// It returns ErrCodeUsed when the code is absent or already used.
	MarkUsed(ctx context.Context, code string) error
}

// ResultStore persists graded submissions. Results are write-once.
type ResultStore interface {
	Create(ctx context.Context, r *model.Result) error
	ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Result, error)
}

// AdminStore persists authoring accounts.
type AdminStore interface {
	Create(ctx context.Context, a *model.Admin) error
	GetByUsername(ctx context.Context, username string) (*model.Admin, error)
	GetByID(ctx context.Context, id int) (*model.Admin, error)
}

// ProctorEventStore persists streamed monitoring events in batches.
type ProctorEventStore interface {
	InsertBatch(ctx context.Context, events []model.ProctorEvent) error
}

// Stores is the set of stores bound to one unit of work.
type Stores struct {
	Tests   TestStore
	Codes   CodeStore
	Results ResultStore
}

// UnitOfWork runs fn against stores that commit or roll back together.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(s Stores) error) error
}
