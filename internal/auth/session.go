package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/procare/procare_api/internal/user"
)

func sessionKey(userID string) string {
	return fmt.Sprintf("session:user:%s", userID)
}

func blacklistKey(token string) string {
	return fmt.Sprintf("blacklist:token:%s", token)
}

func refreshTokenKey(token string) string {
	return fmt.Sprintf("refresh_token:%s", token)
}

func refreshUserKey(userID string) string {
	return fmt.Sprintf("refresh:user:%s", userID)
}

// TokenPair is the credential set returned by login, registration and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
}

// IssueSession signs an access token, stores it as the single active session
// for the account (overwriting any prior one) and rotates the refresh token.
func (s *Service) IssueSession(ctx context.Context, u user.User) (TokenPair, error) {
	access, exp, err := s.tokens.Sign(u)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := randomRefreshToken()
	if err != nil {
		return TokenPair{}, err
	}

	if err := s.store.Set(ctx, sessionKey(u.ID), access, s.cfg.SessionTTL); err != nil {
		return TokenPair{}, err
	}

	// Both directions are kept: token -> user for lookup on refresh, user ->
	// token so a newer login supersedes the old refresh token.
	if err := s.store.Set(ctx, refreshTokenKey(refresh), u.ID, s.cfg.RefreshTokenTTL); err != nil {
		return TokenPair{}, err
	}
	if err := s.store.Set(ctx, refreshUserKey(u.ID), refresh, s.cfg.RefreshTokenTTL); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(time.Until(exp).Seconds()),
	}, nil
}

// Authorize checks a bearer token against signature, active session and
// blacklist, in that order. The blacklist check runs even after a session
// match because a session overwritten by a newer login leaves the old token
// cryptographically valid; only logout populates the blacklist.
func (s *Service) Authorize(ctx context.Context, token string) (Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Claims{}, err
	}

	stored, ok, err := s.store.Get(ctx, sessionKey(claims.UserID))
	if err != nil {
		return Claims{}, err
	}

	// An explicitly revoked token stays revoked even when its session key is
	// gone or already holds a newer token.
	_, blacklisted, err := s.store.Get(ctx, blacklistKey(token))
	if err != nil {
		return Claims{}, err
	}
	if blacklisted {
		return Claims{}, newError(KindTokenBlacklisted, "token_revoked", "token has been revoked")
	}

	if !ok || stored != token {
		return Claims{}, newError(KindSessionInvalid, "session_expired", "session expired or invalid")
	}

	return claims, nil
}

// Logout deletes the active session and blacklists the presented token for
// the remainder of its signature validity, capped by the configured ceiling.
func (s *Service) Logout(ctx context.Context, userID, token string) error {
	_, ok, err := s.store.Get(ctx, sessionKey(userID))
	if err != nil {
		return err
	}
	if !ok {
		return newError(KindNoActiveSession, "no_active_session", "session not found")
	}

	if err := s.store.Del(ctx, sessionKey(userID)); err != nil {
		return err
	}

	ttl := s.cfg.BlacklistTTL
	if claims, parseErr := s.tokens.Parse(token); parseErr == nil && claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 && remaining < ttl {
			ttl = remaining
		}
	}

	if err := s.store.Set(ctx, blacklistKey(token), "1", ttl); err != nil {
		return err
	}

	s.logger.Info("session revoked", "user_id", userID)
	return nil
}

// Refresh exchanges a live refresh token for a new token pair. Tokens rotate
// on every refresh; presenting a superseded token fails, which also surfaces
// token theft where the stolen copy was used after the legitimate one.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	userID, ok, err := s.store.Get(ctx, refreshTokenKey(refreshToken))
	if err != nil {
		return TokenPair{}, err
	}
	if !ok {
		return TokenPair{}, newError(KindInvalidToken, "invalid_refresh_token", "invalid or expired refresh token")
	}

	current, ok, err := s.store.Get(ctx, refreshUserKey(userID))
	if err != nil {
		return TokenPair{}, err
	}
	if !ok || current != refreshToken {
		return TokenPair{}, newError(KindRefreshRotated, "refresh_rotated", "refresh token superseded by a newer one")
	}

	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, user.ErrNotFound) {
		return TokenPair{}, newError(KindUserNotFound, "user_not_found", "user not found")
	}
	if err != nil {
		return TokenPair{}, err
	}
	if u.Status != user.StatusOpen {
		return TokenPair{}, newError(KindAccessDenied, "account_not_active", "account is not active")
	}

	// IssueSession overwrites the user -> token mapping, so the token just
	// presented turns stale and any replay of it fails the rotation check.
	return s.IssueSession(ctx, u)
}
