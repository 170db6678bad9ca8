package domain

import "context"

// Repositories groups the repositories that can take part in one unit of work.
type Repositories interface {
	Users() UserRepository
	Visitors() VisitorRepository
	Passes() PassRepository
	Notifications() NotificationRepository
}

// Store exposes repositories bound to the connection pool and a scoped transaction.
type Store interface {
	Repositories
	// WithinTx runs fn inside one serializable transaction. The transaction commits only when fn
	// returns nil and is rolled back on every other exit path, including panics. fn may be
	// invoked more than once when the database reports a serialization failure, so it must not
	// perform external side effects.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}
