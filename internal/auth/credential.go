// Package auth obtains a usable OAuth credential for the Gmail API:
// it loads the cached token, refreshes it, or runs the interactive
// authorization flow, and caches the result for the next run.
package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
)

// expiryDelta treats a token as expired slightly before its deadline so a
// request started now does not race the expiry.
const expiryDelta = 10 * time.Second

// DefaultScopes are requested on authorization and required of cached tokens.
var DefaultScopes = []string{
	gmail.GmailSendScope,
	gmail.GmailReadonlyScope,
	gmail.GmailSettingsBasicScope,
	gmail.GmailComposeScope,
}

// Credential is the cached token in authorized-user JSON form. It carries
// the client that issued it so a refresh needs no other configuration.
type Credential struct {
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenURI     string    `json:"token_uri,omitempty"`
	ClientID     string    `json:"client_id,omitempty"`
	ClientSecret string    `json:"client_secret,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

// Expired reports whether the access token is past (or about to pass) its
// expiry. A zero expiry never expires.
func (c *Credential) Expired(now time.Time) bool {
	if c.Expiry.IsZero() {
		return false
	}
	return !now.Add(expiryDelta).Before(c.Expiry)
}

// HasScopes reports whether every required scope was granted.
func (c *Credential) HasScopes(required []string) bool {
	for _, s := range required {
		if !slices.Contains(c.Scopes, s) {
			return false
		}
	}
	return true
}

// Valid reports whether the credential can be used as-is.
func (c *Credential) Valid(now time.Time, required []string) bool {
	return c != nil && c.AccessToken != "" && !c.Expired(now) && c.HasScopes(required)
}

// Token converts the credential for use with an oauth2 HTTP client.
func (c *Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.Expiry,
	}
}

// Config returns an oauth2 config able to refresh this credential.
func (c *Credential) Config() *oauth2.Config {
	tokenURL := c.TokenURI
	if tokenURL == "" {
		tokenURL = googleTokenURL
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     oauth2.Endpoint{AuthURL: googleAuthURL, TokenURL: tokenURL},
		Scopes:       c.Scopes,
	}
}

func newCredential(tok *oauth2.Token, oc *oauth2.Config) *Credential {
	return &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenURI:     oc.Endpoint.TokenURL,
		ClientID:     oc.ClientID,
		ClientSecret: oc.ClientSecret,
		Scopes:       slices.Clone(oc.Scopes),
		Expiry:       tok.Expiry,
	}
}

// LoadCredential reads a credential from path.
func LoadCredential(path string) (*Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode token file %s: %w", path, err)
	}
	return &c, nil
}

// SaveCredential writes c to path with owner-only permissions, creating
// parent directories as needed.
func SaveCredential(path string, c *Credential) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}
