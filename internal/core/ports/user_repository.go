package ports

import (
	"context"

	"github.com/campushub/campushub-api/internal/core/domain"
)

// UserRepository is the user directory: the persistent store of User records.
// Implementations must enforce uniqueness on email and on federated id at the
// storage layer and surface violations as domain.ErrEmailTaken or
// domain.ErrFederatedIDTaken; that constraint, not a prior lookup, is the
// authoritative duplicate check.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByFederatedID(ctx context.Context, federatedID string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Update(ctx context.Context, id int64, fields domain.UserUpdate) (*domain.User, error)
}
