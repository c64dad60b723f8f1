package store

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/vitkuz/aws-dynamo-adapter/dynamo"
)

// HookType selects which save path a registered hook runs on.
type HookType int

const (
	BeforeCreate HookType = iota
	BeforeUpdate
)

// BeforeSaveHook runs before an item is persisted. On updates, existing
// carries the stored item, or nil when the update lands on a fresh key.
// Returning an error aborts the save.
type BeforeSaveHook[T any] func(ctx context.Context, item *T, existing *T) error

// Service centralizes business logic and data validation. It
// encapsulates the repository and uses the validator to ensure items
// are well formed before they reach the table.
type Service[T any] struct {
	valid *validator.Validate
	repo  *Repository[T]
	hooks struct {
		beforeCreate []BeforeSaveHook[T]
		beforeUpdate []BeforeSaveHook[T]
	}
}

// NewService builds a service with a default validator over the given
// adapter.
func NewService[T any](adapter *dynamo.Adapter) *Service[T] {
	return &Service[T]{
		valid: validator.New(),
		repo:  NewRepository[T](adapter),
	}
}

// RegisterHook injects custom logic ahead of creates or updates. Hooks
// run in registration order.
func (s *Service[T]) RegisterHook(hookType HookType, fn BeforeSaveHook[T]) {
	switch hookType {
	case BeforeCreate:
		s.hooks.beforeCreate = append(s.hooks.beforeCreate, fn)
	case BeforeUpdate:
		s.hooks.beforeUpdate = append(s.hooks.beforeUpdate, fn)
	}
}

// RegisterValidation adds a custom validation rule usable from
// `validate` tags.
func (s *Service[T]) RegisterValidation(name string, fn validator.Func) error {
	return s.valid.RegisterValidation(name, fn)
}

// Create validates the item, runs the BeforeCreate hooks, and persists
// it. The returned item carries the stored state, timestamps included.
func (s *Service[T]) Create(ctx context.Context, item *T) (*T, error) {
	if err := s.valid.StructCtx(ctx, *item); err != nil {
		return nil, err
	}
	for _, hook := range s.hooks.beforeCreate {
		if err := hook(ctx, item, nil); err != nil {
			return nil, err
		}
	}
	return s.repo.create(ctx, item)
}

// Get retrieves an item by its key pair. Both key values are required;
// a key with nothing stored returns ErrNotFound.
func (s *Service[T]) Get(ctx context.Context, pk, sk any) (*T, error) {
	if pk == nil || sk == nil {
		return nil, ErrInvalidInput
	}
	return s.repo.get(ctx, pk, sk)
}

// Update validates the item, loads the stored state for the hooks, and
// overwrites. The item's own key fields decide what it overwrites; an
// update on a fresh key behaves like a create, and its hooks see a nil
// existing item.
func (s *Service[T]) Update(ctx context.Context, item *T) (*T, error) {
	if err := s.valid.StructCtx(ctx, *item); err != nil {
		return nil, err
	}
	rec, err := toRecord(item)
	if err != nil {
		return nil, err
	}
	schema := s.repo.adapter.Schema()
	existing, err := s.repo.get(ctx, rec[schema.PartitionField], rec[schema.SortField])
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	for _, hook := range s.hooks.beforeUpdate {
		if err := hook(ctx, item, existing); err != nil {
			return nil, err
		}
	}
	return s.repo.replace(ctx, item)
}

// Patch applies a partial update to the item under the key pair and
// returns the stored state afterwards. Updates are raw field-value
// pairs; struct validation and hooks do not apply to partial writes.
func (s *Service[T]) Patch(ctx context.Context, pk, sk any, updates dynamo.Record) (*T, error) {
	if pk == nil || sk == nil {
		return nil, ErrInvalidInput
	}
	return s.repo.patch(ctx, pk, sk, updates)
}

// Delete removes an item by its key pair.
func (s *Service[T]) Delete(ctx context.Context, pk, sk any) error {
	if pk == nil || sk == nil {
		return ErrInvalidInput
	}
	return s.repo.delete(ctx, pk, sk)
}

// List returns every item in the table.
func (s *Service[T]) List(ctx context.Context) ([]T, error) {
	return s.repo.listAll(ctx)
}

// ListBySort returns every item whose sort field equals value, read
// through the table's index.
func (s *Service[T]) ListBySort(ctx context.Context, value any) ([]T, error) {
	return s.repo.listBySort(ctx, value)
}
