package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/campushub/campushub-api/internal/core/domain"
	"github.com/campushub/campushub-api/internal/core/ports"
	"github.com/campushub/campushub-api/internal/core/token"
)

type stubUserRepo struct {
	users  map[int64]*domain.User
	nextID int64
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[int64]*domain.User), nextID: 1}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := r.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByFederatedID(_ context.Context, fid string) (*domain.User, error) {
	for _, u := range r.users {
		if u.FederatedID == fid {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrEmailTaken
		}
		if user.FederatedID != "" && u.FederatedID == user.FederatedID {
			return nil, domain.ErrFederatedIDTaken
		}
	}
	created := cloneUser(user)
	created.ID = r.nextID
	r.nextID++
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	r.users[created.ID] = cloneUser(created)
	return created, nil
}

func (r *stubUserRepo) Update(_ context.Context, id int64, fields domain.UserUpdate) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if fields.Name != nil {
		u.Name = *fields.Name
	}
	if fields.Phone != nil {
		u.Phone = *fields.Phone
	}
	if fields.Avatar != nil {
		u.Avatar = *fields.Avatar
	}
	if fields.NPM != nil {
		u.NPM = *fields.NPM
	}
	if fields.FederatedID != nil {
		for _, other := range r.users {
			if other.ID != id && other.FederatedID == *fields.FederatedID {
				return nil, domain.ErrFederatedIDTaken
			}
		}
		u.FederatedID = *fields.FederatedID
	}
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

type stubVerifier struct {
	identity *ports.FederatedIdentity
	err      error
}

func (v *stubVerifier) Verify(context.Context, string) (*ports.FederatedIdentity, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.identity, nil
}

func newTestService(repo ports.UserRepository, verifier ports.FederatedVerifier) *AuthService {
	codec, err := token.NewCodec("test-secret", time.Hour)
	if err != nil {
		panic(err)
	}
	return NewAuthService(repo, codec, verifier, zerolog.Nop())
}

func TestRegister_Success_DefaultsToStudent(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(repo, nil)

	signed, user, err := svc.Register(context.Background(), ports.RegisterInput{
		Name: "A", Email: "a@x.com", Password: "secret1",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != domain.RoleStudent {
		t.Fatalf("expected default role student, got %q", user.Role)
	}
	if user.PasswordHash == "secret1" || user.PasswordHash == "" {
		t.Fatalf("password was not hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if signed == "" {
		t.Fatalf("expected session token")
	}
}

func TestRegister_Validation(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(repo, nil)

	cases := []struct {
		name string
		in   ports.RegisterInput
	}{
		{"missing fields", ports.RegisterInput{Email: "a@x.com"}},
		{"bad email", ports.RegisterInput{Name: "A", Email: "not-an-email", Password: "secret1"}},
		{"short password", ports.RegisterInput{Name: "A", Email: "a@x.com", Password: "five5"}},
		{"unknown role", ports.RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1", Role: "dean"}},
	}
	for _, tc := range cases {
		if _, _, err := svc.Register(context.Background(), tc.in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}
	if len(repo.users) != 0 {
		t.Fatalf("invalid registrations must not create users")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(repo, nil)

	_, first, err := svc.Register(context.Background(), ports.RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("first Register: %v", err)
	}

	if _, _, err := svc.Register(context.Background(), ports.RegisterInput{Name: "B", Email: "a@x.com", Password: "other-pass"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	unchanged, err := repo.FindByID(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if unchanged.Name != "A" || unchanged.PasswordHash != first.PasswordHash {
		t.Fatalf("first user mutated by the failed duplicate")
	}
}

func TestLogin_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(repo, nil)

	if _, _, err := svc.Register(context.Background(), ports.RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	signed, user, err := svc.Login(context.Background(), "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.Email != "a@x.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	claims, err := svc.codec.Verify(signed)
	if err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != user.Role || claims.Email != user.Email {
		t.Fatalf("token claims do not match user: %+v", claims)
	}
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(repo, nil)

	if _, _, err := svc.Register(context.Background(), ports.RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, _, wrongPass := svc.Login(context.Background(), "a@x.com", "wrong-pass")
	_, _, noUser := svc.Login(context.Background(), "ghost@x.com", "secret1")

	if !errors.Is(wrongPass, domain.ErrInvalidCredentials) || !errors.Is(noUser, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", wrongPass, noUser)
	}
	if wrongPass.Error() != noUser.Error() {
		t.Fatalf("wrong-password and unknown-user errors differ: %q vs %q", wrongPass, noUser)
	}
}

func TestLogin_FederatedOnlyAccountHasNoPassword(t *testing.T) {
	repo := newStubUserRepo()
	if _, err := repo.Create(context.Background(), &domain.User{
		Email: "b@x.com", Name: "B", Role: domain.RoleStudent, FederatedID: "uid-1",
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	svc := newTestService(repo, nil)

	if _, _, err := svc.Login(context.Background(), "b@x.com", "anything"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestFederatedLogin_AutoCreatesUnknownUser(t *testing.T) {
	repo := newStubUserRepo()
	verifier := &stubVerifier{identity: &ports.FederatedIdentity{
		Subject: "uid-1", Email: "b@x.com", Name: "B", Picture: "https://cdn.example.edu/b.png",
	}}
	svc := newTestService(repo, verifier)

	signed, user, err := svc.FederatedLogin(context.Background(), "provider-token", ports.ProfileHints{NPM: "2210001"})
	if err != nil {
		t.Fatalf("FederatedLogin: %v", err)
	}
	if user.Role != domain.RoleStudent || user.FederatedID != "uid-1" || user.NPM != "2210001" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.PasswordHash != "" {
		t.Fatalf("federated account must not carry a password hash")
	}
	if user.Avatar != "https://cdn.example.edu/b.png" {
		t.Fatalf("provider picture not applied: %+v", user)
	}
	if _, err := svc.codec.Verify(signed); err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}
}

func TestFederatedLogin_LinksPasswordAccount(t *testing.T) {
	repo := newStubUserRepo()
	verifier := &stubVerifier{identity: &ports.FederatedIdentity{Subject: "uid-1", Email: "a@x.com"}}
	svc := newTestService(repo, verifier)

	if _, _, err := svc.Register(context.Background(), ports.RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, linked, err := svc.FederatedLogin(context.Background(), "provider-token", ports.ProfileHints{})
	if err != nil {
		t.Fatalf("FederatedLogin: %v", err)
	}
	if linked.FederatedID != "uid-1" {
		t.Fatalf("federated id not linked: %+v", linked)
	}
	if linked.PasswordHash == "" {
		t.Fatalf("linking discarded the password hash")
	}

	// Local login keeps working after the link.
	if _, _, err := svc.Login(context.Background(), "a@x.com", "secret1"); err != nil {
		t.Fatalf("password login after linking: %v", err)
	}
}

func TestFederatedLogin_RelinksBySubjectWhenEmailChanges(t *testing.T) {
	repo := newStubUserRepo()
	seeded, err := repo.Create(context.Background(), &domain.User{
		Email: "old@x.com", Name: "B", Role: domain.RoleStudent, FederatedID: "uid-1",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	verifier := &stubVerifier{identity: &ports.FederatedIdentity{Subject: "uid-1", Email: "new@x.com"}}
	svc := newTestService(repo, verifier)

	_, user, err := svc.FederatedLogin(context.Background(), "provider-token", ports.ProfileHints{})
	if err != nil {
		t.Fatalf("FederatedLogin: %v", err)
	}
	if user.ID != seeded.ID {
		t.Fatalf("expected the existing account, got %+v", user)
	}
}

func TestFederatedLogin_VerifierFailuresCollapse(t *testing.T) {
	repo := newStubUserRepo()

	for _, verr := range []error{
		errors.New("signature mismatch"),
		domain.ErrProviderUnavailable,
	} {
		svc := newTestService(repo, &stubVerifier{err: verr})
		if _, _, err := svc.FederatedLogin(context.Background(), "bad-token", ports.ProfileHints{}); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("verifier error %v: expected ErrInvalidCredentials, got %v", verr, err)
		}
	}
}

func TestFederatedLogin_NoEmailInToken(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(repo, &stubVerifier{identity: &ports.FederatedIdentity{Subject: "uid-1"}})

	if _, _, err := svc.FederatedLogin(context.Background(), "provider-token", ports.ProfileHints{}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestFederatedLogin_DisabledWithoutProvider(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(repo, nil)

	if _, _, err := svc.FederatedLogin(context.Background(), "provider-token", ports.ProfileHints{}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
