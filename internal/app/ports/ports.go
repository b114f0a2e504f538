// Package ports declares the storage and metrics interfaces the use cases
// depend on. Adapters live under internal/adapter.
package ports

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// TxManager runs fn with a context that scopes repository calls to one
// transaction. An error from fn discards every write fn made.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
