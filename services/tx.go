package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
)

// withTx runs fn as one unit of work. fn must only touch tx. Any error rolls
// the whole unit back; errors that are not domain errors come back wrapped
// in ErrPersistence together with the operation name.
func withTx(ctx context.Context, db *gorm.DB, op string, fn func(tx *gorm.DB) error) error {
	err := db.WithContext(ctx).Transaction(fn)
	if err == nil || isDomainError(err) {
		return err
	}
	slog.ErrorContext(ctx, "transaction rolled back", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
