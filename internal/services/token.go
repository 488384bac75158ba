package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/pulse-backend/internal/data/repos"
	types "github.com/yungbote/pulse-backend/internal/domain"
	"github.com/yungbote/pulse-backend/internal/platform/dbctx"
	"github.com/yungbote/pulse-backend/internal/platform/logger"
)

// TokenVerifier turns a bearer token into an active user. Tokens are HS256
// JWTs issued by the account system and carry the user id either in a
// "user_id" claim or in "sub".
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*types.User, error)
	Issue(userID uuid.UUID, ttl time.Duration) (string, error)
}

type tokenVerifier struct {
	log      *logger.Logger
	userRepo repos.UserRepo
	secret   []byte
	issuer   string
	now      func() time.Time
}

type accessClaims struct {
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

func NewTokenVerifier(log *logger.Logger, userRepo repos.UserRepo, secret, issuer string) TokenVerifier {
	return &tokenVerifier{
		log:      log.With("service", "TokenVerifier"),
		userRepo: userRepo,
		secret:   []byte(secret),
		issuer:   strings.TrimSpace(issuer),
		now:      time.Now,
	}
}

func (tv *tokenVerifier) Verify(ctx context.Context, token string) (*types.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenMissing
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tv.now),
	}
	if tv.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tv.issuer))
	}
	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return tv.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		tv.log.Debug("token rejected", "error", err)
		return nil, ErrTokenInvalid
	}

	raw := claims.UserID
	if raw == "" {
		raw = claims.Subject
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	u, err := tv.userRepo.GetByID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, fmt.Errorf("load token user: %w", err)
	}
	if u == nil || !u.IsActive {
		return nil, ErrUserInactive
	}
	return u, nil
}

// Issue signs a token the verifier accepts. The account system owns real
// issuance; this is for local development and tests.
func (tv *tokenVerifier) Issue(userID uuid.UUID, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := tv.now()
	claims := accessClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    tv.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tv.secret)
}
