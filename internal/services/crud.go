package services

import (
	"context"
	"fmt"

	"montra/internal/ledger"
	applog "montra/internal/log"
)

// Op identifies a CRUD mutation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes a completed mutation. Before is the zero value on create
// and After is the zero value on delete.
type Change[T any] struct {
	Op     Op
	UserID int64
	Before T
	After  T
}

// Policy adapts the generic CRUD service to one entity type.
//
// Prepare runs before the store is touched and may query it (reference
// checks). Apply and Writable run inside the store's atomic modify and must
// not call the store.
type Policy[T any] struct {
	Entity   string
	ID       func(T) int64
	Own      func(userID int64, v T) T
	Prepare  func(ctx context.Context, userID int64, v T) (T, error)
	Apply    func(cur *T, next T)
	Writable func(userID int64, v T) error
}

// CRUD is the create/read/update/delete service shared by every entity.
// All operations are scoped to the calling user.
type CRUD[T any, F any] struct {
	table    ledger.Table[T, F]
	policy   Policy[T]
	logger   *applog.Logger
	observer func(context.Context, Change[T])
}

func NewCRUD[T any, F any](table ledger.Table[T, F], policy Policy[T], logger *applog.Logger) *CRUD[T, F] {
	if logger == nil {
		logger = applog.NewDefault()
	}
	return &CRUD[T, F]{table: table, policy: policy, logger: logger.WithComponent("crud." + policy.Entity)}
}

// Observe registers fn to be called after every successful mutation.
func (c *CRUD[T, F]) Observe(fn func(context.Context, Change[T])) {
	c.observer = fn
}

func (c *CRUD[T, F]) List(ctx context.Context, filter F) ([]T, error) {
	out, err := c.table.List(ctx, filter)
	if err != nil {
		c.storageError(ctx, applog.OpList, 0, err)
		return nil, fmt.Errorf("list %s: %w", c.policy.Entity, err)
	}
	return out, nil
}

func (c *CRUD[T, F]) Get(ctx context.Context, userID, id int64) (T, error) {
	v, err := c.table.Get(ctx, userID, id)
	if err != nil {
		c.storageError(ctx, applog.OpRead, id, err)
		var zero T
		return zero, fmt.Errorf("get %s %d: %w", c.policy.Entity, id, err)
	}
	return v, nil
}

func (c *CRUD[T, F]) Create(ctx context.Context, userID int64, v T) (T, error) {
	var zero T
	if c.policy.Own != nil {
		v = c.policy.Own(userID, v)
	}
	v, err := c.prepare(ctx, userID, v)
	if err != nil {
		return zero, err
	}
	created, err := c.table.Insert(ctx, v)
	if err != nil {
		c.storageError(ctx, applog.OpCreate, 0, err)
		return zero, fmt.Errorf("create %s: %w", c.policy.Entity, err)
	}
	c.logger.InfoContext(ctx, "Entity created",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldUserID, userID,
		applog.FieldEntityID, c.policy.ID(created))
	c.notify(ctx, Change[T]{Op: OpCreate, UserID: userID, After: created})
	return created, nil
}

// Update replaces the editable fields of record id with those of next.
func (c *CRUD[T, F]) Update(ctx context.Context, userID, id int64, next T) (T, error) {
	var zero T
	if c.policy.Own != nil {
		next = c.policy.Own(userID, next)
	}
	next, err := c.prepare(ctx, userID, next)
	if err != nil {
		return zero, err
	}
	var before T
	updated, err := c.table.Modify(ctx, userID, id, func(cur *T) error {
		if err := c.writable(userID, *cur); err != nil {
			return err
		}
		before = *cur
		c.policy.Apply(cur, next)
		return nil
	})
	if err != nil {
		c.storageError(ctx, applog.OpUpdate, id, err)
		return zero, fmt.Errorf("update %s %d: %w", c.policy.Entity, id, err)
	}
	c.logger.InfoContext(ctx, "Entity updated",
		applog.FieldOperation, applog.OpUpdate,
		applog.FieldUserID, userID,
		applog.FieldEntityID, id)
	c.notify(ctx, Change[T]{Op: OpUpdate, UserID: userID, Before: before, After: updated})
	return updated, nil
}

// Modify applies fn to record id atomically. fn must not call the store.
func (c *CRUD[T, F]) Modify(ctx context.Context, userID, id int64, fn func(*T) error) (T, error) {
	var zero, before T
	updated, err := c.table.Modify(ctx, userID, id, func(cur *T) error {
		if err := c.writable(userID, *cur); err != nil {
			return err
		}
		before = *cur
		return fn(cur)
	})
	if err != nil {
		c.storageError(ctx, applog.OpUpdate, id, err)
		return zero, fmt.Errorf("update %s %d: %w", c.policy.Entity, id, err)
	}
	c.notify(ctx, Change[T]{Op: OpUpdate, UserID: userID, Before: before, After: updated})
	return updated, nil
}

func (c *CRUD[T, F]) Delete(ctx context.Context, userID, id int64) error {
	var before T
	err := c.table.Remove(ctx, userID, id, func(cur T) error {
		if err := c.writable(userID, cur); err != nil {
			return err
		}
		before = cur
		return nil
	})
	if err != nil {
		c.storageError(ctx, applog.OpDelete, id, err)
		return fmt.Errorf("delete %s %d: %w", c.policy.Entity, id, err)
	}
	c.logger.InfoContext(ctx, "Entity deleted",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldUserID, userID,
		applog.FieldEntityID, id)
	c.notify(ctx, Change[T]{Op: OpDelete, UserID: userID, Before: before})
	return nil
}

func (c *CRUD[T, F]) prepare(ctx context.Context, userID int64, v T) (T, error) {
	if c.policy.Prepare == nil {
		return v, nil
	}
	return c.policy.Prepare(ctx, userID, v)
}

func (c *CRUD[T, F]) writable(userID int64, v T) error {
	if c.policy.Writable == nil {
		return nil
	}
	return c.policy.Writable(userID, v)
}

func (c *CRUD[T, F]) notify(ctx context.Context, ch Change[T]) {
	if c.observer != nil {
		c.observer(ctx, ch)
	}
}

// storageError logs failures that are not expected client errors.
func (c *CRUD[T, F]) storageError(ctx context.Context, op string, id int64, err error) {
	if isClientError(err) {
		return
	}
	c.logger.ErrorContext(ctx, "Storage operation failed",
		applog.FieldOperation, op,
		applog.FieldEntity, c.policy.Entity,
		applog.FieldEntityID, id,
		applog.FieldErrorType, applog.ErrorTypeDatabase,
		applog.FieldError, err)
}
