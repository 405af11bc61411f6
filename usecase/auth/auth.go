package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/workreport/backend/domain"
	"github.com/workreport/backend/pkg/clock"
	"github.com/workreport/backend/repository"
)

// UseCase issues sessions and access tokens for API callers. Identity is a
// plain user identifier supplied by the deployment's front door; there is
// no local account store.
type UseCase struct {
	sessions repository.SessionRepository
	secret   []byte
	issuer   string
	clock    clock.Clock
	logger   *zap.Logger
}

func New(sessions repository.SessionRepository, secret, issuer string, clk clock.Clock, logger *zap.Logger) *UseCase {
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		sessions: sessions,
		secret:   []byte(secret),
		issuer:   issuer,
		clock:    clk,
		logger:   logger,
	}
}

// Credentials couples a Redis-backed session with a signed bearer token.
type Credentials struct {
	Session *domain.Session
	Token   string
}

func (uc *UseCase) CreateSession(ctx context.Context, userID string, ttl time.Duration) (*Credentials, error) {
	if userID == "" {
		return nil, domain.ErrInvalidPayload
	}
	now := uc.clock.Now()

	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	token, err := uc.signToken(userID, session.ID, now, ttl)
	if err != nil {
		return nil, err
	}
	return &Credentials{Session: session, Token: token}, nil
}

func (uc *UseCase) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(uc.clock.Now()) {
		_ = uc.sessions.Delete(ctx, sessionID)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (uc *UseCase) RefreshSession(ctx context.Context, sessionID string, ttl time.Duration) (*Credentials, error) {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := uc.sessions.Extend(ctx, sessionID, int(ttl.Seconds())); err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	session.ExpiresAt = now.Add(ttl)

	token, err := uc.signToken(session.UserID, session.ID, now, ttl)
	if err != nil {
		return nil, err
	}
	return &Credentials{Session: session, Token: token}, nil
}

func (uc *UseCase) RevokeSession(ctx context.Context, sessionID string) error {
	return uc.sessions.Delete(ctx, sessionID)
}

func (uc *UseCase) signToken(userID, sessionID string, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    userID,
		"session_id": sessionID,
		"iss":        uc.issuer,
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(uc.secret)
}
