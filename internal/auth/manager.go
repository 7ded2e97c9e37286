package auth

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/joshsymonds/gmail-cli/internal/apperr"
	"github.com/joshsymonds/gmail-cli/internal/config"
)

// State is where the credential lifecycle ended for this run.
type State int

const (
	StateAbsent State = iota
	StateLoadedInvalid
	StateLoadedValid
	StateRefreshed
	StateAuthorized
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateLoadedInvalid:
		return "loaded-invalid"
	case StateLoadedValid:
		return "loaded-valid"
	case StateRefreshed:
		return "refreshed"
	case StateAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Manager owns the credential lifecycle: load, validate, refresh,
// authorize, persist.
type Manager struct {
	Authorizer Authorizer
	Refresher  Refresher
	Logger     *slog.Logger
	Clock      func() time.Time
	Scopes     []string
}

// NewManager constructs a Manager requesting DefaultScopes.
func NewManager(authorizer Authorizer, refresher Refresher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Manager{
		Authorizer: authorizer,
		Refresher:  refresher,
		Logger:     logger,
		Clock:      time.Now,
		Scopes:     slices.Clone(DefaultScopes),
	}
}

// Obtain returns a credential that is valid now. It fails only with an
// auth error when no path to a valid credential exists.
func (m *Manager) Obtain(ctx context.Context, cfg config.AuthConfig) (*Credential, error) {
	cred, _, err := m.obtain(ctx, cfg)
	return cred, err
}

func (m *Manager) obtain(ctx context.Context, cfg config.AuthConfig) (*Credential, State, error) {
	cred, state := m.load(cfg.TokenFile)
	if state == StateLoadedValid {
		m.Logger.Debug("using cached token", "path", cfg.TokenFile)
		return cred, state, nil
	}

	if state == StateLoadedInvalid && m.refreshable(cred) {
		refreshed, err := m.Refresher.Refresh(ctx, cred)
		if err == nil {
			m.Logger.Info("token refreshed")
			m.persist(cfg.TokenFile, refreshed)
			return refreshed, StateRefreshed, nil
		}
		m.Logger.Warn("could not refresh token; starting authorization", "error", err)
	}

	oc, err := ClientConfig(cfg.Client, m.Scopes)
	if err != nil {
		return nil, state, err
	}
	if m.Authorizer == nil {
		return nil, state, apperr.Auth("interactive authorization is not available")
	}
	tok, err := m.Authorizer.Authorize(ctx, oc)
	if err != nil {
		return nil, state, apperr.Wrap(err, apperr.KindAuth, "authentication failed")
	}
	cred = newCredential(tok, oc)
	m.Logger.Info("authentication successful")
	m.persist(cfg.TokenFile, cred)
	return cred, StateAuthorized, nil
}

// load reads the cached token. Absence or a corrupt file is not an error.
func (m *Manager) load(path string) (*Credential, State) {
	cred, err := LoadCredential(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			m.Logger.Warn("error loading existing token", "error", err)
		}
		return nil, StateAbsent
	}
	if cred.Valid(m.Clock(), m.Scopes) {
		return cred, StateLoadedValid
	}
	return cred, StateLoadedInvalid
}

// refreshable reports whether a refresh could produce a valid credential.
// A refresh cannot widen scopes, so a scope mismatch needs re-authorization.
func (m *Manager) refreshable(c *Credential) bool {
	return m.Refresher != nil && c.RefreshToken != "" && c.HasScopes(m.Scopes)
}

// persist caches cred for the next run. Failure leaves cred usable now.
func (m *Manager) persist(path string, cred *Credential) {
	if err := SaveCredential(path, cred); err != nil {
		m.Logger.Warn("could not save token file", "path", path, "error", err)
	}
}
