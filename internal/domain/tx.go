package domain

import "context"

// Transactor runs fn inside a database transaction. The transaction travels in the
// context handed to fn; repositories pick it up from there. Nested calls join the
// outer transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
