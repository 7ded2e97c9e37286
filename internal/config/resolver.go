package config

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/joshsymonds/gmail-cli/internal/apperr"
	"github.com/joshsymonds/gmail-cli/internal/prompt"
)

const missingAuthMessage = `authentication configuration missing. You must provide either:
  1. Credentials file via --credentials-file (command line only)
  2. Client ID and secret via --client-id and --client-secret (command line or config file)`

// fileValues are the only settings honored from the config file.
type fileValues struct {
	TokenFile    string
	ClientID     string
	ClientSecret string
}

// Resolver merges defaults, the config file, and overrides into an AuthConfig.
type Resolver struct {
	Paths   Paths
	Logger  *slog.Logger
	Confirm prompt.Confirmer
}

// NewResolver returns a Resolver. A nil confirmer declines every prompt.
func NewResolver(paths Paths, logger *slog.Logger, confirm prompt.Confirmer) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if confirm == nil {
		confirm = prompt.Fixed(false)
	}
	return &Resolver{Paths: paths, Logger: logger, Confirm: confirm}
}

// Resolve creates the config directory, merges all sources, validates the
// result, and offers to migrate a legacy token file.
func (r *Resolver) Resolve(ctx context.Context, o Overrides) (AuthConfig, error) {
	if err := r.EnsureConfigDir(); err != nil {
		return AuthConfig{}, err
	}
	cfg, err := r.Merge(o)
	if err != nil {
		return AuthConfig{}, err
	}
	if err := r.Validate(&cfg); err != nil {
		return AuthConfig{}, err
	}
	r.MigrateLegacyToken(ctx, cfg)
	return cfg, nil
}

// EnsureConfigDir creates the per-user config directory.
func (r *Resolver) EnsureConfigDir() error {
	if err := os.MkdirAll(r.Paths.ConfigDir, 0o700); err != nil {
		return apperr.Wrap(err, apperr.KindConfig, "cannot create configuration directory %s", r.Paths.ConfigDir)
	}
	return nil
}

// Merge applies, in order: defaults, whitelisted config file keys, non-empty
// overrides. The credentials file only ever comes from the override or the
// legacy fallback.
func (r *Resolver) Merge(o Overrides) (AuthConfig, error) {
	cfg := AuthConfig{
		TokenFile: r.Paths.TokenFile(),
		ConfigDir: r.Paths.ConfigDir,
	}

	path := o.ConfigFile
	if path == "" {
		path = r.Paths.ConfigFile
	}
	fv, err := loadFile(path)
	if err != nil {
		return AuthConfig{}, err
	}
	setIfNonEmpty(&cfg.TokenFile, fv.TokenFile)
	setIfNonEmpty(&cfg.ClientID, fv.ClientID)
	setIfNonEmpty(&cfg.ClientSecret, fv.ClientSecret)

	setIfNonEmpty(&cfg.TokenFile, o.TokenFile)
	setIfNonEmpty(&cfg.ClientID, o.ClientID)
	setIfNonEmpty(&cfg.ClientSecret, o.ClientSecret)

	cfg.CredentialsFile = o.CredentialsFile

	if cfg.CredentialsFile == "" && !cfg.hasClientPair() && fileExists(r.Paths.LegacyCredentialsFile) {
		cfg.CredentialsFile = r.Paths.LegacyCredentialsFile
		r.Logger.Warn("using legacy credentials file; consider --client-id and --client-secret instead",
			"path", r.Paths.LegacyCredentialsFile)
	}
	return cfg, nil
}

// Validate requires an existing credentials file or a complete client id and
// secret pair, and records which one will be used. The file wins when both
// are present.
func (r *Resolver) Validate(cfg *AuthConfig) error {
	hasFile := fileExists(cfg.CredentialsFile)
	hasPair := cfg.hasClientPair()

	switch {
	case hasFile && hasPair:
		r.Logger.Warn("both credentials file and client ID/secret provided; using credentials file",
			"path", cfg.CredentialsFile)
		cfg.Client = FileClient{Path: cfg.CredentialsFile}
	case hasFile:
		cfg.Client = FileClient{Path: cfg.CredentialsFile}
	case hasPair:
		cfg.Client = InlineClient{ID: cfg.ClientID, Secret: cfg.ClientSecret}
	case cfg.CredentialsFile != "":
		return apperr.Config("credentials file not found: %s", cfg.CredentialsFile)
	default:
		return apperr.Config("%s", missingAuthMessage)
	}
	return nil
}

// MigrateLegacyToken offers to move a token left in the legacy location.
// Failures are logged; the user can always re-authenticate.
func (r *Resolver) MigrateLegacyToken(ctx context.Context, cfg AuthConfig) {
	legacy := r.Paths.LegacyTokenFile
	if !fileExists(legacy) || fileExists(cfg.TokenFile) {
		return
	}
	ok, err := r.Confirm.Confirm(ctx,
		"Migrate existing token file?",
		"Found "+legacy+". Move it to "+cfg.TokenFile+"?")
	if err != nil {
		r.Logger.Warn("could not ask about token migration", "error", err)
		return
	}
	if !ok {
		return
	}
	if err := os.MkdirAll(filepath.Dir(cfg.TokenFile), 0o700); err != nil {
		r.Logger.Warn("could not migrate token file; you may need to re-authenticate", "error", err)
		return
	}
	if err := os.Rename(legacy, cfg.TokenFile); err != nil {
		r.Logger.Warn("could not migrate token file; you may need to re-authenticate", "error", err)
		return
	}
	r.Logger.Info("token file migrated", "path", cfg.TokenFile)
}

// loadFile reads the JSON config file. A missing file yields no values.
func loadFile(path string) (fileValues, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fileValues{}, nil
		}
		return fileValues{}, apperr.Wrap(err, apperr.KindConfig, "error reading configuration file %s", path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return fileValues{}, apperr.Wrap(err, apperr.KindConfig, "invalid JSON in configuration file %s", path)
	}
	return fileValues{
		TokenFile:    firstString(v, "token_file", "tokenFilePath"),
		ClientID:     firstString(v, "client_id", "clientId"),
		ClientSecret: firstString(v, "client_secret", "clientSecret"),
	}, nil
}

func firstString(v *viper.Viper, keys ...string) string {
	for _, k := range keys {
		if s := v.GetString(k); s != "" {
			return s
		}
	}
	return ""
}

func setIfNonEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
