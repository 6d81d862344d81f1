package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrTokenRevoked = errors.New("token is revoked")

// Validator checks a session token and resolves the identity it carries.
type Validator struct {
	jwt       *JWTManager
	blacklist Blacklist
}

func NewValidator(jwtManager *JWTManager, blacklist Blacklist) *Validator {
	return &Validator{jwt: jwtManager, blacklist: blacklist}
}

// Validate returns the user id of a valid, unrevoked token. Errors matching
// ErrInvalidToken or ErrTokenRevoked are about the token itself; any other
// error is a blacklist lookup failure and says nothing about the token.
func (v *Validator) Validate(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, ErrInvalidToken
	}

	if v.blacklist != nil {
		revoked, err := v.blacklist.IsRevoked(ctx, token)
		if err != nil {
			return uuid.Nil, fmt.Errorf("blacklist lookup: %w", err)
		}
		if revoked {
			return uuid.Nil, ErrTokenRevoked
		}
	}

	claims, err := v.jwt.Verify(token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}

// Revoke blacklists token for the rest of its lifetime.
func (v *Validator) Revoke(ctx context.Context, token string) error {
	exp, err := v.jwt.Expiry(token)
	if err != nil {
		return err
	}
	if v.blacklist == nil {
		return nil
	}
	return v.blacklist.Revoke(ctx, token, exp.Sub(v.jwt.now()))
}
