// Package mailer sequences the gmail-cli commands: validate input, connect,
// call Gmail, then reconcile the local draft store.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joshsymonds/gmail-cli/internal/apperr"
	"github.com/joshsymonds/gmail-cli/internal/content"
	"github.com/joshsymonds/gmail-cli/internal/draftstore"
	gc "github.com/joshsymonds/gmail-cli/internal/gmail"
	"github.com/joshsymonds/gmail-cli/internal/message"
	"github.com/joshsymonds/gmail-cli/internal/prompt"
	"github.com/joshsymonds/gmail-cli/internal/rate"
)

// ErrAborted is returned when the user declines a confirmation.
var ErrAborted = errors.New("aborted")

const (
	signatureTitle       = "Continue with plaintext + signature conversion?"
	signatureDescription = "Your Gmail signature is HTML and will be converted to plain text; links show as 'text (url)'.\n" +
		"Alternatives: --input-format=markdown, --input-format=html, or --no-signature."
)

// Dialer connects to Gmail. It runs only after local validation passes.
type Dialer func(ctx context.Context) (gc.Client, error)

// DraftStore is the local draft index.
type DraftStore interface {
	Load() map[string]draftstore.Record
	Save(id, subject, to string) error
	Remove(ids ...string) error
}

type Service struct {
	Dial    Dialer
	Store   DraftStore
	Confirm prompt.Confirmer
	Limiter rate.Limiter
	Logger  *slog.Logger

	client gc.Client
}

func NewService(dial Dialer, store DraftStore, confirm prompt.Confirmer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if confirm == nil {
		confirm = prompt.Fixed(false)
	}
	return &Service{
		Dial:    dial,
		Store:   store,
		Confirm: confirm,
		Limiter: rate.NewTokenBucket(10, 5),
		Logger:  logger,
	}
}

func (s *Service) connect(ctx context.Context) (gc.Client, error) {
	if s.client != nil {
		return s.client, nil
	}
	if s.Dial == nil {
		return nil, apperr.Auth("no Gmail connection configured")
	}
	s.Logger.Info("authenticating with Gmail")
	c, err := s.Dial(ctx)
	if err != nil {
		return nil, err
	}
	s.client = c
	return c, nil
}

// Send validates c, sends it, and returns the new message id.
func (s *Service) Send(ctx context.Context, c Compose) (gc.MessageID, error) {
	raw, client, err := s.prepare(ctx, c)
	if err != nil {
		return "", err
	}
	s.Logger.Info("sending email")
	id, err := client.SendMessage(ctx, raw)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Draft validates c, creates a remote draft, and records it locally.
func (s *Service) Draft(ctx context.Context, c Compose) (gc.DraftRef, error) {
	raw, client, err := s.prepare(ctx, c)
	if err != nil {
		return gc.DraftRef{}, err
	}
	s.Logger.Info("creating draft")
	ref, err := client.CreateDraft(ctx, raw)
	if err != nil {
		return gc.DraftRef{}, err
	}
	s.saveRecord(ref.ID, c.Subject, c.recipientsSummary())
	return ref, nil
}

// prepare runs every local check, then connects and renders the message.
func (s *Service) prepare(ctx context.Context, c Compose) (string, gc.Client, error) {
	if err := c.Validate(); err != nil {
		return "", nil, err
	}
	body, err := c.LoadBody()
	if err != nil {
		return "", nil, err
	}
	if err := s.confirmSignature(ctx, c); err != nil {
		return "", nil, err
	}
	client, err := s.connect(ctx)
	if err != nil {
		return "", nil, err
	}
	raw, err := s.render(ctx, client, c, body)
	if err != nil {
		return "", nil, err
	}
	return raw, client, nil
}

func (s *Service) confirmSignature(ctx context.Context, c Compose) error {
	if !c.needsSignatureConfirm() {
		return nil
	}
	s.Logger.Warn("plaintext input with Gmail signature enabled")
	ok, err := s.Confirm.Confirm(ctx, signatureTitle, signatureDescription)
	if err != nil {
		return fmt.Errorf("confirm signature conversion: %w", err)
	}
	if !ok {
		return ErrAborted
	}
	return nil
}

// render resolves sender and signature, converts the body, and encodes the
// message.
func (s *Service) render(ctx context.Context, client gc.Client, c Compose, body string) (string, error) {
	sender := c.Sender
	if sender == "" {
		p, err := client.GetProfile(ctx)
		if err != nil {
			return "", fmt.Errorf("could not retrieve sender email: %w", err)
		}
		sender = p.EmailAddress
	}
	s.Logger.Info("composing email", "from", sender, "format", c.Format)

	html, err := content.ToHTML(body, c.Format)
	if err != nil {
		return "", err
	}

	var signature string
	if c.Signature {
		signature, err = s.signature(ctx, client, c.Format)
		if err != nil {
			return "", err
		}
	}

	if len(c.Attachments) > 0 {
		s.Logger.Info("attaching files", "count", len(c.Attachments))
	}
	return message.Build(message.Message{
		From:        sender,
		To:          c.To,
		Cc:          c.Cc,
		Bcc:         c.Bcc,
		Subject:     c.Subject,
		HTMLBody:    html,
		Signature:   signature,
		Attachments: c.Attachments,
	})
}

// signature fetches the primary send-as signature. Fetch failures are
// reported and the message goes out unsigned.
func (s *Service) signature(ctx context.Context, client gc.Client, format content.Format) (string, error) {
	ids, err := client.ListSendAs(ctx)
	if err != nil {
		s.Logger.Warn("could not retrieve Gmail signature", "error", err)
		return "", nil
	}
	sig := gc.PrimarySignature(ids)
	if sig == "" {
		s.Logger.Info("no Gmail signature found")
		return "", nil
	}
	s.Logger.Debug("Gmail signature retrieved")
	if format == content.FormatPlaintext {
		return content.ToHTML(content.HTMLToPlainText(sig), content.FormatPlaintext)
	}
	return sig, nil
}

func (s *Service) saveRecord(id gc.DraftID, subject, to string) {
	if s.Store == nil {
		return
	}
	if err := s.Store.Save(string(id), subject, to); err != nil {
		s.Logger.Warn("draft created but not saved locally", "id", id, "error", err)
	}
}

func (s *Service) removeRecords(ids ...string) {
	if s.Store == nil || len(ids) == 0 {
		return
	}
	if err := s.Store.Remove(ids...); err != nil {
		s.Logger.Warn("could not update local draft store", "error", err)
	}
}
