// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/fudosync/internal/config"
	"github.com/tomtom215/fudosync/internal/logging"
	"github.com/tomtom215/fudosync/internal/metrics"
	"github.com/tomtom215/fudosync/internal/models"
	"github.com/tomtom215/fudosync/internal/secrets"
	"github.com/tomtom215/fudosync/internal/state"
)

// Authenticator hands out a valid bearer token per branch, exchanging the
// branch credentials for a new one when the cached token is missing or
// expires within the grace period.
type Authenticator struct {
	endpoint string
	client   *http.Client
	secrets  secrets.Provider
	tokens   state.TokenStore
	grace    time.Duration
	now      func() time.Time
	breaker  *breaker[tokenResponse]
	logger   *logging.SyncLogger
}

type tokenResponse struct {
	Token     string
	ExpiresAt time.Time
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(fudo config.FudoConfig, grace time.Duration, provider secrets.Provider, tokens state.TokenStore) *Authenticator {
	return &Authenticator{
		endpoint: fudo.AuthEndpoint,
		client:   &http.Client{Timeout: fudo.AuthTimeout},
		secrets:  provider,
		tokens:   tokens,
		grace:    grace,
		now:      time.Now,
		breaker:  newBreaker[tokenResponse]("fudo-auth", defaultBreakerTimeout),
		logger:   logging.NewSyncLogger(),
	}
}

// Token returns a token for branch valid for at least the grace period.
// Failures are returned as *BranchError.
func (a *Authenticator) Token(ctx context.Context, branch models.Branch) (string, error) {
	cached, err := a.tokens.GetToken(ctx, branch.ID)
	if err != nil {
		return "", &BranchError{BranchID: branch.ID, Kind: PersistenceFailure, Err: err}
	}
	if cached != nil && cached.ValidFor(a.now(), a.grace) {
		return cached.Token, nil
	}

	token, err := a.refresh(ctx, branch)
	metrics.RecordTokenRefresh(err)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Invalidate forgets the cached token so the next Token call exchanges
// credentials again. Used after the API rejected the token.
func (a *Authenticator) Invalidate(ctx context.Context, branchID string) error {
	return a.tokens.SetToken(ctx, branchID, "", time.Unix(0, 0).UTC())
}

func (a *Authenticator) refresh(ctx context.Context, branch models.Branch) (string, error) {
	apiKey, err := a.secrets.Resolve(ctx, branch.APIKeySecret)
	if err != nil {
		return "", &BranchError{BranchID: branch.ID, Kind: CredentialsUnavailable, Err: fmt.Errorf("resolve api key: %w", err)}
	}
	apiSecret, err := a.secrets.Resolve(ctx, branch.APISecretSecret)
	if err != nil {
		return "", &BranchError{BranchID: branch.ID, Kind: CredentialsUnavailable, Err: fmt.Errorf("resolve api secret: %w", err)}
	}

	resp, err := a.breaker.execute(func() (tokenResponse, error) {
		return a.exchange(ctx, apiKey, apiSecret)
	})
	if err != nil {
		kind, _, _, _ := classify(err)
		if errors.Is(err, ErrNoToken) {
			kind = AuthInvalid
		}
		return "", &BranchError{BranchID: branch.ID, Kind: kind, Err: fmt.Errorf("token exchange: %w", err)}
	}

	if err := a.tokens.SetToken(ctx, branch.ID, resp.Token, resp.ExpiresAt); err != nil {
		return "", &BranchError{BranchID: branch.ID, Kind: PersistenceFailure, Err: fmt.Errorf("persist token: %w", err)}
	}
	a.logger.LogTokenRefreshed(ctx, resp.Token, resp.ExpiresAt)
	return resp.Token, nil
}

// exchange posts the credentials and parses {"token", "exp"}.
func (a *Authenticator) exchange(ctx context.Context, apiKey, apiSecret string) (tokenResponse, error) {
	payload, err := json.Marshal(map[string]string{"apiKey": apiKey, "apiSecret": apiSecret})
	if err != nil {
		return tokenResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return tokenResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return tokenResponse{}, newStatusError(resp)
	}

	var body struct {
		Token string      `json:"token"`
		Exp   json.Number `json:"exp"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return tokenResponse{}, &decodeError{err: err}
	}
	if body.Token == "" {
		return tokenResponse{}, ErrNoToken
	}

	expiresAt, err := tokenExpiry(body.Token, body.Exp)
	if err != nil {
		return tokenResponse{}, err
	}
	return tokenResponse{Token: body.Token, ExpiresAt: expiresAt}, nil
}

// tokenExpiry prefers the exp field of the response and falls back to the
// exp claim of the token itself. The token is parsed without verification.
func tokenExpiry(token string, exp json.Number) (time.Time, error) {
	if exp != "" {
		seconds, err := strconv.ParseFloat(exp.String(), 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid exp %q: %w", exp, err)
		}
		return time.Unix(int64(seconds), 0).UTC(), nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("auth response has no exp and token is not a JWT: %w", err)
	}
	expClaim, err := claims.GetExpirationTime()
	if err != nil || expClaim == nil {
		return time.Time{}, errors.New("auth response has no exp and token has no exp claim")
	}
	return expClaim.UTC(), nil
}
