package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"parlay.app/coordinator/common/id"
	"parlay.app/coordinator/internal/esign"
	"parlay.app/coordinator/internal/model"
	"parlay.app/coordinator/internal/store"
)

// tokenExpirySkew is subtracted from the recorded expiry so a token is
// refreshed before it can go stale mid-request.
const tokenExpirySkew = 2 * time.Minute

// ConnectionManager hands out a live provider connection, transparently
// refreshing the access token when it is expired or about to expire. It
// implements esign.ConnectionSource.
type ConnectionManager struct {
	connections store.ConnectionStore
	oauth       *esign.OAuthClient

	// refreshMu keeps concurrent callers from racing duplicate refreshes
	// against the provider's one-shot refresh tokens.
	refreshMu sync.Mutex
}

func NewConnectionManager(connections store.ConnectionStore, oauth *esign.OAuthClient) *ConnectionManager {
	return &ConnectionManager{connections: connections, oauth: oauth}
}

// CompleteAuthorization finishes the provider's OAuth consent flow: it trades
// the authorization code for tokens, resolves the default account, and stores
// the result as the active connection.
func (m *ConnectionManager) CompleteAuthorization(ctx context.Context, code string) (*model.ProviderConnection, error) {
	if code == "" {
		return nil, NewValidation("authorization code is required")
	}

	tok, err := m.oauth.ExchangeCode(ctx, code)
	if err != nil {
		var upstream *esign.UpstreamError
		if errors.As(err, &upstream) && upstream.StatusCode >= 400 && upstream.StatusCode < 500 {
			return nil, NewValidation("provider rejected the authorization code")
		}
		return nil, NewUpstream("exchanging authorization code", err)
	}

	info, err := m.oauth.UserInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, NewUpstream("resolving provider account", err)
	}
	account := info.DefaultAccount()
	if account == nil {
		return nil, NewUpstream("provider returned no accounts for the authorized user", nil)
	}

	conn := &model.ProviderConnection{
		ID:           id.New(),
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
		AccountID:    account.AccountID,
		BaseURI:      account.BaseURI,
	}
	if err := m.connections.Create(ctx, conn); err != nil {
		return nil, fmt.Errorf("storing provider connection: %w", err)
	}

	slog.InfoContext(ctx, "provider connection authorized",
		"connection_id", conn.ID,
		"account_id", conn.AccountID,
	)
	return conn, nil
}

// GetConnection returns the active connection with a usable access token.
// When no connection exists, or the token cannot be refreshed, the caller
// gets an expired-credentials error directing an operator to re-authorize.
func (m *ConnectionManager) GetConnection(ctx context.Context) (*model.ProviderConnection, error) {
	conn, err := m.connections.GetActive(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewExpiredCredentials("no signing provider connection; authorization required")
		}
		return nil, fmt.Errorf("loading provider connection: %w", err)
	}

	if !conn.Expired(tokenExpirySkew) {
		return conn, nil
	}

	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	// Another caller may have refreshed while we waited on the lock.
	conn, err = m.connections.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("reloading provider connection: %w", err)
	}
	if !conn.Expired(tokenExpirySkew) {
		return conn, nil
	}

	if conn.RefreshToken == "" {
		return nil, NewExpiredCredentials("provider access token expired and no refresh token is available; re-authorization required")
	}

	tok, err := m.oauth.RefreshToken(ctx, conn.RefreshToken)
	if err != nil {
		var upstream *esign.UpstreamError
		if errors.As(err, &upstream) && upstream.StatusCode >= 400 && upstream.StatusCode < 500 {
			return nil, NewExpiredCredentials("provider rejected the refresh token; re-authorization required")
		}
		return nil, NewUpstream("refreshing provider token", err)
	}

	expiresAt := time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	refreshToken := tok.RefreshToken
	if refreshToken == "" {
		refreshToken = conn.RefreshToken
	}
	if err := m.connections.UpdateTokens(ctx, conn.ID, tok.AccessToken, refreshToken, expiresAt); err != nil {
		return nil, fmt.Errorf("persisting refreshed tokens: %w", err)
	}

	slog.InfoContext(ctx, "provider token refreshed", "connection_id", conn.ID, "expires_at", expiresAt)

	conn.AccessToken = tok.AccessToken
	conn.RefreshToken = refreshToken
	conn.ExpiresAt = expiresAt
	return conn, nil
}
