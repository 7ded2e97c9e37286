// Package config resolves how gmail-cli authenticates from built-in
// defaults, an optional JSON config file, and command-line overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	appDirName          = "gmail-cli"
	configFileName      = "config.json"
	tokenFileName       = "token.json"
	draftStoreFileName  = "drafts.json"
	legacyTokenFileName = "gmail_token.json"
	legacyCredsFileName = "OAuth Client ID Secret (1).json"
)

// Paths holds the fixed locations the resolver falls back to.
type Paths struct {
	ConfigDir             string
	ConfigFile            string
	LegacyCredentialsFile string
	LegacyTokenFile       string
}

// DefaultPaths derives Paths from the user's home and working directories.
func DefaultPaths() (Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("locate home directory: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return Paths{}, fmt.Errorf("locate working directory: %w", err)
	}
	dir := filepath.Join(home, ".config", appDirName)
	return Paths{
		ConfigDir:             dir,
		ConfigFile:            filepath.Join(dir, configFileName),
		LegacyCredentialsFile: filepath.Join(home, "Downloads", legacyCredsFileName),
		LegacyTokenFile:       filepath.Join(cwd, legacyTokenFileName),
	}, nil
}

// TokenFile is the default token location inside ConfigDir.
func (p Paths) TokenFile() string {
	return filepath.Join(p.ConfigDir, tokenFileName)
}

// DraftStoreFile is where local draft records are kept.
func (p Paths) DraftStoreFile() string {
	return filepath.Join(p.ConfigDir, draftStoreFileName)
}

// ClientDescriptor identifies the OAuth client used to start authorization.
// It is either a FileClient or an InlineClient.
type ClientDescriptor interface {
	clientDescriptor()
}

// FileClient points at a downloaded OAuth client secrets JSON file.
type FileClient struct {
	Path string
}

// InlineClient carries a client id and secret given directly.
type InlineClient struct {
	ID     string
	Secret string
}

func (FileClient) clientDescriptor()   {}
func (InlineClient) clientDescriptor() {}

// AuthConfig is the resolved authentication configuration for one run.
type AuthConfig struct {
	TokenFile       string
	ClientID        string
	ClientSecret    string
	CredentialsFile string
	ConfigDir       string

	// Client is set by Validate.
	Client ClientDescriptor
}

// Overrides are the values given on the command line. Empty means unset.
type Overrides struct {
	ConfigFile      string
	CredentialsFile string
	TokenFile       string
	ClientID        string
	ClientSecret    string
}

func (c AuthConfig) hasClientPair() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
