// Package auth loads Google OAuth2 credentials for the Sheets API.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

// ErrMissingCredentials is returned when the client config or token is empty
var ErrMissingCredentials = errors.New("google credentials or token missing")

// expiryLayouts are the timestamp formats seen in stored tokens. Tokens
// written by the Python client library omit the zone.
var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999Z",
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// AuthorizedUser is a stored user token. Both the Go oauth2 layout
// (access_token) and the Python google-auth layout (token) are accepted.
type AuthorizedUser struct {
	Token        string   `json:"token"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	Expiry       string   `json:"expiry"`
}

// ParseToken decodes a stored token
func ParseToken(data []byte) (*AuthorizedUser, error) {
	var user AuthorizedUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to parse token JSON: %w", err)
	}
	if user.Token == "" {
		user.Token = user.AccessToken
	}
	if user.Token == "" && user.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token has neither access nor refresh token", ErrMissingCredentials)
	}
	return &user, nil
}

// OAuth2Token converts the stored token. An unparseable expiry is treated as
// already expired so the first use refreshes it.
func (u *AuthorizedUser) OAuth2Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  u.Token,
		RefreshToken: u.RefreshToken,
		TokenType:    "Bearer",
	}
	if u.Expiry != "" {
		tok.Expiry = parseExpiry(u.Expiry)
	}
	return tok
}

func parseExpiry(s string) time.Time {
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Unix(1, 0)
}

// Config builds the OAuth2 client config from the client secrets JSON, using
// token fields to fill anything the secrets leave out
func Config(credentialsJSON []byte, user *AuthorizedUser) (*oauth2.Config, error) {
	cfg, err := google.ConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client credentials: %w", err)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = user.ClientID
	}
	if cfg.ClientSecret == "" {
		cfg.ClientSecret = user.ClientSecret
	}
	if user.TokenURI != "" {
		cfg.Endpoint.TokenURL = user.TokenURI
	}
	return cfg, nil
}

// TokenSource returns a token source that reuses the stored token until it
// expires. Refreshes are serialized: concurrent callers wait for the one
// refresh in flight.
func TokenSource(ctx context.Context, credentialsJSON, tokenJSON string, logger *zerolog.Logger) (*Source, error) {
	if strings.TrimSpace(credentialsJSON) == "" || strings.TrimSpace(tokenJSON) == "" {
		return nil, ErrMissingCredentials
	}

	user, err := ParseToken([]byte(tokenJSON))
	if err != nil {
		return nil, err
	}
	cfg, err := Config([]byte(credentialsJSON), user)
	if err != nil {
		return nil, err
	}

	src := &Source{}
	refresher := &refreshingSource{
		ctx:          ctx,
		config:       cfg,
		refreshToken: user.RefreshToken,
		logger:       logger,
		refreshes:    &src.refreshes,
	}
	src.ts = oauth2.ReuseTokenSource(user.OAuth2Token(), refresher)
	return src, nil
}

// Source is a serialized, logging token source
type Source struct {
	ts        oauth2.TokenSource
	refreshes atomic.Int64
}

// Token returns a valid token, refreshing it if needed
func (s *Source) Token() (*oauth2.Token, error) {
	return s.ts.Token()
}

// Refreshes returns the number of token exchanges performed
func (s *Source) Refreshes() int64 {
	return s.refreshes.Load()
}

type refreshingSource struct {
	ctx          context.Context
	config       *oauth2.Config
	refreshToken string
	logger       *zerolog.Logger
	refreshes    *atomic.Int64
}

// Token is only called by the ReuseTokenSource, which holds its lock for
// the duration of the call
func (r *refreshingSource) Token() (*oauth2.Token, error) {
	if r.refreshToken == "" {
		return nil, errors.New("token expired and no refresh token is available")
	}

	tok, err := r.config.TokenSource(r.ctx, &oauth2.Token{RefreshToken: r.refreshToken}).Token()
	if err != nil {
		r.logger.Error().Err(err).Msg("Token refresh failed")
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if tok.RefreshToken != "" {
		r.refreshToken = tok.RefreshToken
	}
	r.refreshes.Add(1)

	r.logger.Info().Time("expiry", tok.Expiry).Msg("Token refreshed")
	return tok, nil
}
