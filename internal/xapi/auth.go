package xapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

const tokenPath = "/2/oauth2/token"

// tokenFile is the OAuth2 PKCE token file: access_token, refresh_token and
// expires_at in unix seconds.
type tokenFile struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	TokenType    string  `json:"token_type,omitempty"`
	ExpiresAt    float64 `json:"expires_at,omitempty"`
}

func (f tokenFile) token() *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  f.AccessToken,
		RefreshToken: f.RefreshToken,
		TokenType:    f.TokenType,
	}
	if f.ExpiresAt > 0 {
		sec := int64(f.ExpiresAt)
		t.Expiry = time.Unix(sec, int64((f.ExpiresAt-float64(sec))*1e9))
	}
	return t
}

// OAuthConfig describes the OAuth2 client that issued the user tokens.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	// BaseURL hosts the token endpoint. Empty uses api.x.com.
	BaseURL string
}

// LoadTokenSource reads a token file and returns a source that refreshes the
// access token when it expires. X rotates the refresh token on every use, so
// refreshed tokens are written back to path.
func LoadTokenSource(ctx context.Context, path string, oc OAuthConfig) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	var f tokenFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing token file %s: %w", path, err)
	}
	if f.AccessToken == "" {
		return nil, fmt.Errorf("token file %s has no access_token", path)
	}

	tok := f.token()
	if f.RefreshToken == "" || oc.ClientID == "" {
		// Nothing to refresh with; the access token is used until it expires.
		return oauth2.StaticTokenSource(tok), nil
	}

	base := oc.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	conf := &oauth2.Config{
		ClientID:     oc.ClientID,
		ClientSecret: oc.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: strings.TrimRight(base, "/") + tokenPath},
	}
	return &fileTokenSource{
		path: path,
		src:  conf.TokenSource(ctx, tok),
		last: tok.AccessToken,
	}, nil
}

type fileTokenSource struct {
	path string
	src  oauth2.TokenSource

	mu   sync.Mutex
	last string
}

func (s *fileTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken == s.last {
		return tok, nil
	}
	if err := saveToken(s.path, tok); err != nil {
		return nil, err
	}
	s.last = tok.AccessToken
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	f := tokenFile{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		f.ExpiresAt = float64(tok.Expiry.Unix())
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".x_tokens-*")
	if err != nil {
		return fmt.Errorf("saving refreshed token: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("saving refreshed token: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("saving refreshed token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saving refreshed token: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// NewOAuthClient creates a client that authenticates with user-context
// OAuth2 tokens from ts.
func NewOAuthClient(ctx context.Context, baseURL string, ts oauth2.TokenSource) *Client {
	c := NewClient(baseURL, "")
	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = c.client.Timeout
	c.client = hc
	return c
}

// ErrNoCredentials means neither a bearer token nor a token file is available.
var ErrNoCredentials = errors.New("no X API credentials")

// Credentials are the ways a client can authenticate.
type Credentials struct {
	BearerToken string
	TokenPath   string
	OAuth       OAuthConfig
}

// NewFromCredentials prefers the app bearer token and falls back to the
// OAuth2 token file when it exists.
func NewFromCredentials(ctx context.Context, baseURL string, cr Credentials) (*Client, error) {
	if cr.BearerToken != "" {
		return NewClient(baseURL, cr.BearerToken), nil
	}
	if cr.TokenPath == "" {
		return nil, ErrNoCredentials
	}
	if _, err := os.Stat(cr.TokenPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: token file %s not found", ErrNoCredentials, cr.TokenPath)
	}
	if cr.OAuth.BaseURL == "" {
		cr.OAuth.BaseURL = baseURL
	}
	ts, err := LoadTokenSource(ctx, cr.TokenPath, cr.OAuth)
	if err != nil {
		return nil, err
	}
	return NewOAuthClient(ctx, baseURL, ts), nil
}
