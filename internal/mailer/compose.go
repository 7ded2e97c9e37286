package mailer

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joshsymonds/gmail-cli/internal/apperr"
	"github.com/joshsymonds/gmail-cli/internal/content"
	"github.com/joshsymonds/gmail-cli/internal/message"
)

// Compose is a message as described on the command line.
type Compose struct {
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	Body        string
	BodyFile    string
	Format      content.Format
	Attachments []string
	Sender      string
	Signature   bool
}

// HasBody reports whether a body source was supplied.
func (c Compose) HasBody() bool {
	return c.Body != "" || c.BodyFile != ""
}

// Validate checks everything that can be checked locally: exactly one body
// source, a known input format, and readable attachments.
func (c Compose) Validate() error {
	if !c.HasBody() {
		return apperr.Validation("either --body or --body-file must be provided")
	}
	if c.Body != "" && c.BodyFile != "" {
		return apperr.Validation("cannot specify both --body and --body-file")
	}
	if _, err := content.ParseFormat(string(c.Format)); err != nil {
		return err
	}
	return message.CheckAttachments(c.Attachments)
}

// LoadBody returns the inline body or the contents of BodyFile.
func (c Compose) LoadBody() (string, error) {
	if c.BodyFile == "" {
		return c.Body, nil
	}
	data, err := os.ReadFile(c.BodyFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", apperr.Validation("body file not found: %s", c.BodyFile)
		}
		return "", apperr.Wrap(err, apperr.KindIO, "error reading body file")
	}
	return string(data), nil
}

// needsSignatureConfirm is true when an HTML signature would be flattened
// into a plaintext body.
func (c Compose) needsSignatureConfirm() bool {
	return c.Format == content.FormatPlaintext && c.Signature
}

func (c Compose) recipientsSummary() string {
	return strings.Join(c.To, ", ")
}
