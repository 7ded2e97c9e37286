package auth

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/joshsymonds/gmail-cli/internal/apperr"
	"github.com/joshsymonds/gmail-cli/internal/config"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"
	loopbackURL    = "http://localhost"
)

// ClientConfig builds the oauth2 client for desc. The redirect URL is a
// loopback placeholder; the authorizer replaces it with its listener.
func ClientConfig(desc config.ClientDescriptor, scopes []string) (*oauth2.Config, error) {
	switch d := desc.(type) {
	case config.FileClient:
		data, err := os.ReadFile(d.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, apperr.Auth("credentials file not found at %s; download OAuth client credentials from Google Cloud Console", d.Path)
			}
			return nil, apperr.Wrap(err, apperr.KindAuth, "cannot read credentials file %s", d.Path)
		}
		oc, err := google.ConfigFromJSON(data, scopes...)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.KindAuth, "invalid credentials file %s", d.Path)
		}
		return oc, nil
	case config.InlineClient:
		return &oauth2.Config{
			ClientID:     d.ID,
			ClientSecret: d.Secret,
			Endpoint:     oauth2.Endpoint{AuthURL: googleAuthURL, TokenURL: googleTokenURL},
			RedirectURL:  loopbackURL,
			Scopes:       scopes,
		}, nil
	default:
		return nil, apperr.Auth("no valid authentication method configured; provide --credentials-file or --client-id and --client-secret")
	}
}

// Refresher exchanges a credential's refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, c *Credential) (*Credential, error)
}

// OAuth2Refresher refreshes against the token endpoint stored in the credential.
type OAuth2Refresher struct{}

func (OAuth2Refresher) Refresh(ctx context.Context, c *Credential) (*Credential, error) {
	if c.RefreshToken == "" {
		return nil, fmt.Errorf("refresh token: no refresh token")
	}
	expired := c.Token()
	// Force the token source to hit the endpoint.
	expired.AccessToken = ""
	tok, err := c.Config().TokenSource(ctx, expired).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	next := *c
	next.AccessToken = tok.AccessToken
	next.Expiry = tok.Expiry
	if tok.RefreshToken != "" {
		next.RefreshToken = tok.RefreshToken
	}
	return &next, nil
}

var _ Refresher = OAuth2Refresher{}
