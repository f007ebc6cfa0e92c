// Package auth is the boundary to the external credential system: bearer
// tokens come in, identities come out. Token issuance and user management
// live outside this service.
package auth

import (
	"context"
	"strings"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/errs"
)

// Role is the caller's authorization level
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is the authenticated caller
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   Role   `json:"role"`
}

// IsAdmin reports whether the caller holds the administrative role
func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

// CanAccess reports whether the caller owns the resource or is an admin
func (id Identity) CanAccess(ownerID string) bool {
	return id.IsAdmin() || id.UserID == ownerID
}

// TokenVerifier resolves a bearer token to an identity
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// StaticVerifier verifies against a fixed token table, seeded from config.
// It stands in for the real token service at the interface boundary.
type StaticVerifier struct {
	tokens map[string]Identity
}

// NewStaticVerifier creates a verifier over a token -> identity table
func NewStaticVerifier(tokens map[string]Identity) *StaticVerifier {
	return &StaticVerifier{tokens: tokens}
}

func (v *StaticVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	id, ok := v.tokens[token]
	if !ok {
		return nil, errs.Forbidden("invalid token")
	}
	return &id, nil
}

// ParseTokenSpec parses "token=userID:role,token2=userID2:role2" from config.
// Malformed entries are skipped.
func ParseTokenSpec(spec string) map[string]Identity {
	tokens := make(map[string]Identity)
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		idParts := strings.SplitN(parts[1], ":", 2)
		identity := Identity{UserID: idParts[0], Role: RoleUser}
		if len(idParts) == 2 && Role(idParts[1]) == RoleAdmin {
			identity.Role = RoleAdmin
		}
		tokens[parts[0]] = identity
	}
	return tokens
}
