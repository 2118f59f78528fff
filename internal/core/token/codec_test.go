package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/campushub/campushub-api/internal/core/domain"
)

func testUser() *domain.User {
	return &domain.User{
		ID:    42,
		Email: "a@x.com",
		Name:  "A",
		Role:  domain.RoleStudent,
	}
}

func TestNewCodec_RequiresSecret(t *testing.T) {
	if _, err := NewCodec("", time.Hour); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	codec, err := NewCodec("secret", time.Hour)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	signed, err := codec.Sign(testUser())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	claims, err := codec.Verify(signed)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "a@x.com" || claims.Role != domain.RoleStudent || claims.Name != "A" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ExpiresAt.Before(claims.IssuedAt) {
		t.Fatalf("expiry precedes issuance: %+v", claims)
	}
}

func TestCodec_Verify_WrongSecret(t *testing.T) {
	signer, _ := NewCodec("secret-one", time.Hour)
	verifier, _ := NewCodec("secret-two", time.Hour)

	signed, err := signer.Sign(testUser())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := verifier.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestCodec_Verify_Expired(t *testing.T) {
	codec, _ := NewCodec("secret", time.Hour)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	signed, err := expired.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}

	if _, err := codec.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestCodec_Verify_WrongIssuer(t *testing.T) {
	codec, _ := NewCodec("secret", time.Hour)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := foreign.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign foreign token: %v", err)
	}

	if _, err := codec.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestCodec_Verify_WrongAlgorithm(t *testing.T) {
	codec, _ := NewCodec("secret", time.Hour)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := hs512.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign HS512 token: %v", err)
	}

	if _, err := codec.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestCodec_Verify_Corrupted(t *testing.T) {
	codec, _ := NewCodec("secret", time.Hour)

	signed, err := codec.Sign(testUser())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	for _, raw := range []string{"", "garbage", "a.b", signed + "x", signed[:len(signed)-4]} {
		if _, err := codec.Verify(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", raw, err)
		}
	}
}

func TestCodec_Verify_NonNumericSubject(t *testing.T) {
	codec, _ := NewCodec("secret", time.Hour)

	odd := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   "not-a-number",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := odd.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := codec.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
