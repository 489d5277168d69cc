package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// AuthMode selects how requests are authenticated.
type AuthMode string

// Supported auth modes.
const (
	AuthOAuth  AuthMode = "oauth"
	AuthClient AuthMode = "client"
	AuthToken  AuthMode = "token"
	AuthNone   AuthMode = "none"
)

// EarlyExpiry is how long before expiry a cached token is replaced.
const EarlyExpiry = time.Second

const tokenPath = "/oauth/token"

// Auth holds the credentials for an environment.
type Auth struct {
	Mode AuthMode
	// Address is the base URL of the token endpoint host. It defaults to the
	// environment address.
	Address      string
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
	Token        string
}

// TokenSource returns the tracked token source for a, or nil when no auth is
// configured. Token requests use base.
//
//nolint:ireturn // oauth2.TokenSource is the contract consumed by oauth2.Transport.
func (a Auth) TokenSource(base *http.Client) (oauth2.TokenSource, error) {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	tokenURL := strings.TrimSuffix(a.Address, "/") + tokenPath

	switch a.Mode {
	case "", AuthNone:
		return nil, nil
	case AuthToken:
		if a.Token == "" {
			return nil, fmt.Errorf("token auth requires a token")
		}
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: a.Token}), nil
	case AuthOAuth:
		if a.Username == "" {
			return nil, fmt.Errorf("oauth auth requires a username")
		}
		cfg := &oauth2.Config{
			ClientID:     a.ClientID,
			ClientSecret: a.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInHeader},
		}
		return NewTokenTracker(passwordSource{ctx: ctx, cfg: cfg, username: a.Username, password: a.Password}), nil
	case AuthClient:
		if a.ClientID == "" {
			return nil, fmt.Errorf("client auth requires a client id")
		}
		cfg := &clientcredentials.Config{
			ClientID:     a.ClientID,
			ClientSecret: a.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		return NewTokenTracker(clientSource{ctx: ctx, cfg: cfg}), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q, must be one of: [%s %s %s %s]", a.Mode, AuthOAuth, AuthClient, AuthToken, AuthNone)
	}
}

// NewTokenTracker caches tokens from src and requests a new one once the
// cached token is within EarlyExpiry of expiring.
//
//nolint:ireturn // wraps an oauth2.TokenSource.
func NewTokenTracker(src oauth2.TokenSource) oauth2.TokenSource {
	return oauth2.ReuseTokenSourceWithExpiry(nil, src, EarlyExpiry)
}

type passwordSource struct {
	ctx                context.Context
	cfg                *oauth2.Config
	username, password string
}

func (s passwordSource) Token() (*oauth2.Token, error) {
	return s.cfg.PasswordCredentialsToken(s.ctx, s.username, s.password)
}

// clientSource fetches a fresh token on every call; caching is left to the
// tracker.
type clientSource struct {
	ctx context.Context
	cfg *clientcredentials.Config
}

func (s clientSource) Token() (*oauth2.Token, error) {
	return s.cfg.Token(s.ctx)
}
