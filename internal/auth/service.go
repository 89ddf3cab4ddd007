// internal/auth/service.go

package auth

import (
	"context"
	"errors"

	"github.com/amoria-app/amoria-backend/internal/common/utils"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Verifier resolves a bearer credential to a user identity.
// The account service issues tokens; this core only verifies them.
type Verifier interface {
	VerifyCredential(ctx context.Context, credential string) (int64, error)
}

type jwtVerifier struct {
	secret string
}

func NewJWTVerifier(secret string) Verifier {
	return &jwtVerifier{secret: secret}
}

func (v *jwtVerifier) VerifyCredential(ctx context.Context, credential string) (int64, error) {
	claims, err := utils.ValidateJWT(credential, v.secret)
	if err != nil {
		return 0, ErrUnauthenticated
	}

	// Refresh tokens cannot open a session
	if claims.Type != "" && claims.Type != "access" {
		return 0, ErrUnauthenticated
	}

	return claims.UserID, nil
}
