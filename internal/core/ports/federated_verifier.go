package ports

import "context"

// FederatedIdentity is the verified subset of claims extracted from a
// provider-issued identity token.
type FederatedIdentity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// FederatedVerifier validates identity tokens issued by the external identity
// provider. Any failure — malformed token, bad signature, expired, wrong
// audience, provider unreachable — is an error; callers collapse them all
// into a single authentication failure and keep the distinction for logs only.
type FederatedVerifier interface {
	Verify(ctx context.Context, rawToken string) (*FederatedIdentity, error)
}
