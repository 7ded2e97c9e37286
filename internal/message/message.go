// Package message assembles outgoing mail into the base64url-encoded RFC
// 5322 payload the Gmail API accepts as a raw message.
package message

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message/mail"

	"github.com/joshsymonds/gmail-cli/internal/apperr"
)

const fallbackContentType = "application/octet-stream"

// compressedExts name encodings that mime guessing would otherwise report as
// the wrapped document's type.
var compressedExts = map[string]bool{
	".gz": true, ".z": true, ".bz2": true, ".xz": true, ".br": true,
}

// Message is everything needed to render one outgoing email.
type Message struct {
	From        string
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	HTMLBody    string
	Signature   string
	Attachments []string
}

// Body returns the HTML body with the signature appended.
func (m Message) Body() string {
	if m.Signature == "" {
		return m.HTMLBody
	}
	return m.HTMLBody + "<br><br>" + m.Signature
}

// CheckAttachments fails with a validation error naming the first path that
// is not a regular file.
func CheckAttachments(paths []string) error {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			return apperr.Validation("attachment file not found: %s", p)
		}
	}
	return nil
}

// Build renders m and returns its base64url encoding.
func Build(m Message) (string, error) {
	raw, err := Render(m)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

// Render writes m as a multipart/mixed message.
func Render(m Message) ([]byte, error) {
	if err := CheckAttachments(m.Attachments); err != nil {
		return nil, err
	}

	var h mail.Header
	if len(m.To) > 0 {
		h.Set("To", strings.Join(m.To, ", "))
	}
	if m.From != "" {
		h.Set("From", m.From)
	}
	h.SetSubject(m.Subject)
	if len(m.Cc) > 0 {
		h.Set("Cc", strings.Join(m.Cc, ", "))
	}
	if len(m.Bcc) > 0 {
		h.Set("Bcc", strings.Join(m.Bcc, ", "))
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message writer: %w", err)
	}

	var ih mail.InlineHeader
	ih.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	bw, err := mw.CreateSingleInline(ih)
	if err != nil {
		return nil, fmt.Errorf("create body part: %w", err)
	}
	if _, err := io.WriteString(bw, m.Body()); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}
	if err := bw.Close(); err != nil {
		return nil, fmt.Errorf("close body part: %w", err)
	}

	for _, p := range m.Attachments {
		if err := attach(mw, p); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close message: %w", err)
	}
	return buf.Bytes(), nil
}

func attach(mw *mail.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperr.Validation("attachment file not found: %s", path)
		}
		return apperr.Wrap(err, apperr.KindIO, "read attachment %s", path)
	}

	name := filepath.Base(path)
	var ah mail.AttachmentHeader
	ah.Set("Content-Type", ContentType(name))
	ah.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w, err := mw.CreateAttachment(ah)
	if err != nil {
		return fmt.Errorf("create attachment part: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write attachment %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close attachment %s: %w", name, err)
	}
	return nil
}

// ContentType guesses a MIME type from name's extension. Compressed files
// and unknown extensions are sent as application/octet-stream.
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || compressedExts[ext] {
		return fallbackContentType
	}
	t := mime.TypeByExtension(ext)
	if t == "" {
		return fallbackContentType
	}
	return t
}
