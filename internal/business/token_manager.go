package business

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Agurato/kolnoa/internal/model"
	"github.com/Agurato/kolnoa/internal/utilities"
)

const maxAccessCodeLength = 128

type TokenStorer interface {
	SaveToken(ctx context.Context, token *model.Token) error
	GetToken(ctx context.Context, accessCode string) (*model.Token, error)
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// TokenManager caches third-party access tokens under an access code
type TokenManager struct {
	TokenStorer
	now func() time.Time
}

func NewTokenManager(ts TokenStorer) *TokenManager {
	return NewTokenManagerWithClock(ts, time.Now)
}

func NewTokenManagerWithClock(ts TokenStorer, now func() time.Time) *TokenManager {
	return &TokenManager{
		TokenStorer: ts,
		now:         now,
	}
}

// Store saves value under accessCode. The token expires at expiresAt if set, otherwise after ttl.
// One of them is required and the expiry must be in the future.
func (tm TokenManager) Store(ctx context.Context, accessCode, value string, ttl time.Duration, expiresAt time.Time) (*model.Token, error) {
	accessCode = strings.TrimSpace(accessCode)
	if accessCode == "" || len(accessCode) > maxAccessCodeLength {
		return nil, fmt.Errorf("accessCode must be 1 to %d characters: %w", maxAccessCodeLength, model.ErrInvalidInput)
	}
	if value == "" {
		return nil, fmt.Errorf("token is required: %w", model.ErrInvalidInput)
	}
	if ttl < 0 {
		return nil, fmt.Errorf("ttl must not be negative: %w", model.ErrInvalidInput)
	}

	now := tm.now()
	if expiresAt.IsZero() {
		if ttl == 0 {
			return nil, fmt.Errorf("ttl or expiresAt is required: %w", model.ErrInvalidInput)
		}
		expiresAt = now.Add(ttl)
	}
	if !expiresAt.After(now) {
		return nil, fmt.Errorf("expiresAt must be in the future: %w", model.ErrInvalidInput)
	}
	token := &model.Token{
		AccessCode: accessCode,
		Value:      value,
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
	}
	if err := tm.TokenStorer.SaveToken(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// Check looks a token up by its access code
func (tm TokenManager) Check(ctx context.Context, accessCode string) (model.TokenStatus, error) {
	accessCode = strings.TrimSpace(accessCode)
	if accessCode == "" {
		return model.TokenStatus{}, fmt.Errorf("accessCode is required: %w", model.ErrInvalidInput)
	}
	token, err := tm.TokenStorer.GetToken(ctx, accessCode)
	if errors.Is(err, model.ErrNotFound) {
		return model.TokenStatus{Reason: model.TokenReasonNotFound}, nil
	} else if err != nil {
		return model.TokenStatus{}, err
	}

	expiresAt := &token.ExpiresAt
	if utilities.IsExpired(token.ExpiresAt, tm.now()) {
		return model.TokenStatus{Reason: model.TokenReasonExpired, ExpiresAt: expiresAt}, nil
	}
	return model.TokenStatus{Valid: true, Token: token.Value, ExpiresAt: expiresAt}, nil
}

// PurgeExpired deletes the expired tokens
func (tm TokenManager) PurgeExpired(ctx context.Context) (int64, error) {
	deleted, err := tm.TokenStorer.DeleteExpiredTokens(ctx, tm.now())
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("Purged expired tokens")
	}
	return deleted, nil
}
