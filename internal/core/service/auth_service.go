package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/campushub/campushub-api/internal/core/domain"
	"github.com/campushub/campushub-api/internal/core/password"
	"github.com/campushub/campushub-api/internal/core/ports"
	"github.com/campushub/campushub-api/internal/core/token"
)

// minPasswordLen is the documented floor clients already depend on.
const minPasswordLen = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthService maps local credentials or federated identities onto exactly one
// user record, creating or linking as needed, and issues session tokens.
type AuthService struct {
	users    ports.UserRepository
	codec    *token.Codec
	verifier ports.FederatedVerifier // nil when no provider is configured
	log      zerolog.Logger
}

func NewAuthService(users ports.UserRepository, codec *token.Codec, verifier ports.FederatedVerifier, log zerolog.Logger) *AuthService {
	return &AuthService{users: users, codec: codec, verifier: verifier, log: log}
}

// Register creates a password-backed account and logs it in. Duplicate emails
// surface as domain.ErrEmailTaken straight from the directory's unique
// constraint; a lookup beforehand would still race with concurrent
// registrations.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (string, *domain.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)

	if in.Name == "" || in.Email == "" || in.Password == "" {
		return "", nil, fmt.Errorf("%w: name, email and password are required", domain.ErrValidation)
	}
	if !emailPattern.MatchString(in.Email) {
		return "", nil, fmt.Errorf("%w: email is not valid", domain.ErrValidation)
	}
	if len(in.Password) < minPasswordLen {
		return "", nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLen)
	}

	role := in.Role
	if role == "" {
		role = domain.RoleStudent
	}
	if !domain.ValidRole(role) {
		return "", nil, fmt.Errorf("%w: role must be student, lecturer or admin", domain.ErrValidation)
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.users.Create(ctx, &domain.User{
		Email:        in.Email,
		Name:         in.Name,
		Role:         role,
		NPM:          in.NPM,
		Phone:        in.Phone,
		PasswordHash: hash,
	})
	if err != nil {
		return "", nil, err
	}

	signed, err := s.codec.Sign(created)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}

	s.log.Info().Int64("user_id", created.ID).Str("role", created.Role).Msg("user registered")
	return signed, created, nil
}

// Login authenticates a local credential pair. Unknown email, missing
// password hash (federated-only account) and wrong password all return the
// identical error so responses never reveal which factor failed.
func (s *AuthService) Login(ctx context.Context, email, pass string) (string, *domain.User, error) {
	if email == "" || pass == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if user.PasswordHash == "" || !password.Verify(pass, user.PasswordHash) {
		return "", nil, domain.ErrInvalidCredentials
	}

	signed, err := s.codec.Sign(user)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return signed, user, nil
}

// FederatedLogin verifies a provider-issued token and reconciles it onto a
// user record: an existing account keyed by email is linked to the provider
// subject (keeping any password hash), and an unseen email auto-creates a
// student account. Provider failures collapse into the same authentication
// error as an invalid token; only the log line tells them apart.
func (s *AuthService) FederatedLogin(ctx context.Context, externalToken string, hints ports.ProfileHints) (string, *domain.User, error) {
	if externalToken == "" {
		return "", nil, fmt.Errorf("%w: token is required", domain.ErrValidation)
	}
	if s.verifier == nil {
		s.log.Warn().Msg("federated login attempted but no provider is configured")
		return "", nil, domain.ErrInvalidCredentials
	}

	identity, err := s.verifier.Verify(ctx, externalToken)
	if err != nil {
		if errors.Is(err, domain.ErrProviderUnavailable) {
			s.log.Warn().Err(err).Msg("federated login failed: provider unavailable")
		} else {
			s.log.Debug().Err(err).Msg("federated login failed: token rejected")
		}
		return "", nil, domain.ErrInvalidCredentials
	}
	if identity.Email == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		user, err = s.linkFederatedID(ctx, user, identity.Subject)
		if err != nil {
			return "", nil, err
		}
	case errors.Is(err, domain.ErrUserNotFound):
		// The provider may report a new email for a known subject; re-link
		// by the stable federated id before creating anything.
		user, err = s.users.FindByFederatedID(ctx, identity.Subject)
		if errors.Is(err, domain.ErrUserNotFound) {
			user, err = s.createFederatedUser(ctx, identity, hints)
		}
		if err != nil {
			return "", nil, err
		}
	default:
		return "", nil, err
	}

	signed, err := s.codec.Sign(user)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return signed, user, nil
}

// Profile returns the user record behind an authenticated session.
func (s *AuthService) Profile(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *AuthService) linkFederatedID(ctx context.Context, user *domain.User, subject string) (*domain.User, error) {
	if user.FederatedID == subject {
		return user, nil
	}
	if user.FederatedID != "" {
		// Already linked to a different provider subject. The verified email
		// wins the lookup but the stored link stays; silently relinking would
		// mask provider-side account changes.
		s.log.Warn().Int64("user_id", user.ID).Msg("federated subject mismatch on login")
		return user, nil
	}

	fid := subject
	linked, err := s.users.Update(ctx, user.ID, domain.UserUpdate{FederatedID: &fid})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("user_id", linked.ID).Msg("account linked to federated identity")
	return linked, nil
}

func (s *AuthService) createFederatedUser(ctx context.Context, identity *ports.FederatedIdentity, hints ports.ProfileHints) (*domain.User, error) {
	name := hints.Name
	if name == "" {
		name = identity.Name
	}
	if name == "" {
		name = identity.Email
	}

	role := hints.Role
	if role == "" {
		role = domain.RoleStudent
	}
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("%w: role must be student, lecturer or admin", domain.ErrValidation)
	}

	avatar := hints.Avatar
	if avatar == "" {
		avatar = identity.Picture
	}

	created, err := s.users.Create(ctx, &domain.User{
		Email:       identity.Email,
		Name:        name,
		Role:        role,
		NPM:         hints.NPM,
		Phone:       hints.Phone,
		Avatar:      avatar,
		FederatedID: identity.Subject,
	})
	if err == nil {
		s.log.Info().Int64("user_id", created.ID).Msg("user auto-created on first federated login")
		return created, nil
	}

	if errors.Is(err, domain.ErrEmailTaken) || errors.Is(err, domain.ErrFederatedIDTaken) {
		// Lost a create race with a concurrent first login; the winner's row
		// is the account.
		if user, ferr := s.users.FindByEmail(ctx, identity.Email); ferr == nil {
			return s.linkFederatedID(ctx, user, identity.Subject)
		}
	}
	return nil, err
}
