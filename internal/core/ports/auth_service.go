package ports

import (
	"context"

	"github.com/campushub/campushub-api/internal/core/domain"
)

// RegisterInput is the field set accepted by local registration.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	NPM      string
	Phone    string
}

// ProfileHints are optional attributes a client may send alongside a
// federated token; they fill gaps the provider's claims leave open when a new
// account is created.
type ProfileHints struct {
	Name   string
	Role   string
	NPM    string
	Phone  string
	Avatar string
}

// AuthService reconciles local credentials or federated identities onto
// exactly one user record and issues session tokens.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (string, *domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	FederatedLogin(ctx context.Context, externalToken string, hints ProfileHints) (string, *domain.User, error)
	Profile(ctx context.Context, id int64) (*domain.User, error)
}
