package repository

import (
	"context"
	"fmt"
)

// Store drivers accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Open creates the store named by driver. path is only used by sqlite.
func Open(ctx context.Context, driver, path string, opts ...Option) (Store, error) {
	switch driver {
	case DriverSQLite:
		return NewSQLiteStore(ctx, path, opts...)
	case DriverMemory:
		return NewMemoryStore(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
