package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/Alekaz94/catholic-daily-companion/internal/apperrors"
)

// FederatedClaims is what the service needs from a verified assertion
type FederatedClaims struct {
	Email string
	Name  string
}

// AssertionVerifier checks a raw federated identity token and extracts
// the claims. Implementations must reject expired, malformed and
// wrong-issuer/audience tokens
type AssertionVerifier interface {
	VerifyAssertion(ctx context.Context, rawToken string) (FederatedClaims, error)
}

// OIDCVerifier verifies ID tokens against an OIDC provider (Google in
// production). Issuer, audience, signature and expiry checks are done by
// the go-oidc library
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDCVerifier(ctx context.Context, issuer string, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("error while discovering oidc provider. Err: %w", err)
	}

	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (v *OIDCVerifier) VerifyAssertion(ctx context.Context, rawToken string) (FederatedClaims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return FederatedClaims{}, fmt.Errorf("%w: %w", apperrors.ErrFederatedAuthInvalid, err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return FederatedClaims{}, fmt.Errorf("%w: %w", apperrors.ErrFederatedAuthInvalid, err)
	}

	if claims.Email == "" || !claims.EmailVerified {
		return FederatedClaims{}, fmt.Errorf("%w: assertion carries no verified email", apperrors.ErrFederatedAuthInvalid)
	}

	return FederatedClaims{Email: claims.Email, Name: claims.Name}, nil
}
