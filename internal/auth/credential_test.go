package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

func TestSaveCredentialWritesAuthorizedUserShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	c := &Credential{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenURI:     "https://oauth2.example.test/token",
		ClientID:     "id",
		ClientSecret: "secret",
		Scopes:       DefaultScopes,
		Expiry:       testNow,
	}
	if err := SaveCredential(path, c); err != nil {
		t.Fatalf("SaveCredential: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("perm = %o, want 600", perm)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"token", "refresh_token", "token_uri", "client_id", "client_secret", "scopes", "expiry"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("token file missing %q: %s", key, data)
		}
	}

	got, err := LoadCredential(path)
	if err != nil {
		t.Fatalf("LoadCredential: %v", err)
	}
	if got.AccessToken != "access" || got.RefreshToken != "refresh" || !got.Expiry.Equal(testNow) {
		t.Fatalf("round trip = %+v", got)
	}
	if !got.HasScopes(DefaultScopes) {
		t.Fatalf("scopes lost: %v", got.Scopes)
	}
}

func TestLoadCredentialErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadCredential(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := LoadCredential(bad)
	if err == nil || !strings.Contains(err.Error(), "decode token file") {
		t.Fatalf("err = %v, want decode error", err)
	}
}

func TestCredentialExpired(t *testing.T) {
	tests := []struct {
		name   string
		expiry time.Time
		want   bool
	}{
		{"zero never expires", time.Time{}, false},
		{"future", testNow.Add(time.Hour), false},
		{"inside delta", testNow.Add(expiryDelta / 2), true},
		{"past", testNow.Add(-time.Minute), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Credential{AccessToken: "a", Expiry: tt.expiry}
			if got := c.Expired(testNow); got != tt.want {
				t.Errorf("Expired = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCredentialConfigDefaultsTokenURL(t *testing.T) {
	c := &Credential{ClientID: "id", ClientSecret: "secret"}
	if got := c.Config().Endpoint.TokenURL; got != googleTokenURL {
		t.Fatalf("token url = %q", got)
	}
	c.TokenURI = "https://oauth2.example.test/token"
	if got := c.Config().Endpoint.TokenURL; got != c.TokenURI {
		t.Fatalf("token url = %q", got)
	}
}

func TestNewCredentialCopiesClient(t *testing.T) {
	oc := &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: "https://oauth2.example.test/token"},
		Scopes:       []string{"a", "b"},
	}
	tok := &oauth2.Token{AccessToken: "x", RefreshToken: "y", Expiry: testNow}
	c := newCredential(tok, oc)
	oc.Scopes[0] = "changed"
	if c.Scopes[0] != "a" {
		t.Fatalf("scopes share backing array with config")
	}
	if c.ClientID != "id" || c.TokenURI != oc.Endpoint.TokenURL || c.RefreshToken != "y" {
		t.Fatalf("credential = %+v", c)
	}
}
