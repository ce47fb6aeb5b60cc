package service

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/minicrm/crm-api/internal/core/domain"
	"github.com/minicrm/crm-api/internal/core/ports"
)

// tokenClaims is the signed payload. Role travels inside the signature so a
// verified token is a capability snapshot taken at login.
type tokenClaims struct {
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues HS256 JWTs and checks them against an optional blocklist.
type TokenService struct {
	secret  []byte
	ttl     time.Duration
	revoked ports.RevocationStore
	log     zerolog.Logger
	now     func() time.Time
}

// NewTokenService builds a TokenService. ttl <= 0 issues non-expiring tokens.
// revoked may be nil, which disables logout.
func NewTokenService(secret string, ttl time.Duration, revoked ports.RevocationStore, log zerolog.Logger) *TokenService {
	return &TokenService{
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: revoked,
		log:     log,
		now:     time.Now,
	}
}

func (s *TokenService) Issue(user *domain.User) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Role: string(user.Role),
		Name: user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  user.ID,
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

func (s *TokenService) Verify(ctx context.Context, token string) (domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Identity{}, domain.ErrTokenMissing
	}

	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return domain.Identity{}, domain.ErrTokenInvalid
	}

	role := domain.Role(claims.Role)
	if claims.Subject == "" || !role.Valid() {
		return domain.Identity{}, domain.ErrTokenInvalid
	}

	if s.revoked != nil && claims.ID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("jti", claims.ID).Msg("revocation check failed, accepting token")
		} else if revoked {
			return domain.Identity{}, domain.ErrTokenInvalid
		}
	}

	id := domain.Identity{
		ID:      claims.Subject,
		Name:    claims.Name,
		Role:    role,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// Revoke blocks the identity's token until it would have expired. A token
// without exp stays blocked for good.
func (s *TokenService) Revoke(ctx context.Context, identity domain.Identity) error {
	if s.revoked == nil || identity.TokenID == "" {
		return nil
	}

	var ttl time.Duration
	if !identity.ExpiresAt.IsZero() {
		ttl = identity.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return nil
		}
	}
	return s.revoked.Revoke(ctx, identity.TokenID, ttl)
}
