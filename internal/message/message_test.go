package message

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/emersion/go-message/mail"

	"github.com/joshsymonds/gmail-cli/internal/apperr"
)

type decodedPart struct {
	contentType string
	filename    string
	body        string
}

func decode(t *testing.T, encoded string) (mail.Header, []decodedPart) {
	t.Helper()
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode base64url: %v", err)
	}
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var parts []decodedPart
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next part: %v", err)
		}
		body, err := io.ReadAll(p.Body)
		if err != nil {
			t.Fatalf("read part: %v", err)
		}
		dp := decodedPart{body: string(body)}
		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			dp.contentType, _, _ = h.ContentType()
		case *mail.AttachmentHeader:
			dp.contentType, _, _ = h.ContentType()
			dp.filename, _ = h.Filename()
		}
		parts = append(parts, dp)
	}
	return mr.Header, parts
}

func TestBuildWithSignature(t *testing.T) {
	encoded, err := Build(Message{
		From:      "me@x",
		To:        []string{"a@x"},
		Subject:   "S",
		HTMLBody:  "<b>B</b>",
		Signature: "Sig",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	h, parts := decode(t, encoded)
	if got := h.Get("To"); got != "a@x" {
		t.Fatalf("To = %q", got)
	}
	if got := h.Get("From"); got != "me@x" {
		t.Fatalf("From = %q", got)
	}
	if subj, _ := h.Subject(); subj != "S" {
		t.Fatalf("Subject = %q", subj)
	}
	if h.Has("Cc") || h.Has("Bcc") {
		t.Fatalf("empty cc/bcc should be omitted")
	}
	if len(parts) != 1 {
		t.Fatalf("parts = %d", len(parts))
	}
	if parts[0].contentType != "text/html" {
		t.Fatalf("content type = %q", parts[0].contentType)
	}
	if !strings.Contains(parts[0].body, "<b>B</b><br><br>Sig") {
		t.Fatalf("body = %q", parts[0].body)
	}
}

func TestBuildRecipientLists(t *testing.T) {
	encoded, err := Build(Message{
		To:       []string{"a@x", "b@x"},
		Cc:       []string{"c@x"},
		Bcc:      []string{"d@x", "e@x"},
		Subject:  "Ünïcode subject",
		HTMLBody: "hi",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	h, parts := decode(t, encoded)
	if got := h.Get("To"); got != "a@x, b@x" {
		t.Fatalf("To = %q", got)
	}
	if got := h.Get("Cc"); got != "c@x" {
		t.Fatalf("Cc = %q", got)
	}
	if got := h.Get("Bcc"); got != "d@x, e@x" {
		t.Fatalf("Bcc = %q", got)
	}
	if h.Has("From") {
		t.Fatalf("From should be left to the server when empty")
	}
	if subj, _ := h.Subject(); subj != "Ünïcode subject" {
		t.Fatalf("Subject = %q", subj)
	}
	if parts[0].body != "hi" {
		t.Fatalf("body without signature = %q", parts[0].body)
	}
}

func TestBuildAttachments(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.html")
	archive := filepath.Join(dir, "logs.tar.gz")
	blob := filepath.Join(dir, "data.unknownext")
	for path, body := range map[string]string{notes: "hello notes", archive: "\x1f\x8b binary", blob: "blob"} {
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	encoded, err := Build(Message{
		To:          []string{"a@x"},
		Subject:     "files",
		HTMLBody:    "see attached",
		Attachments: []string{notes, archive, blob},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	_, parts := decode(t, encoded)
	if len(parts) != 4 {
		t.Fatalf("parts = %d", len(parts))
	}

	want := []decodedPart{
		{contentType: "text/html", filename: "notes.html", body: "hello notes"},
		{contentType: "application/octet-stream", filename: "logs.tar.gz", body: "\x1f\x8b binary"},
		{contentType: "application/octet-stream", filename: "data.unknownext", body: "blob"},
	}
	for i, w := range want {
		got := parts[i+1]
		if got != w {
			t.Errorf("attachment %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestBuildMissingAttachment(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.pdf")
	_, err := Build(Message{To: []string{"a@x"}, HTMLBody: "x", Attachments: []string{missing}})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), missing) {
		t.Fatalf("error %q does not name %s", err, missing)
	}
}

func TestCheckAttachmentsRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := CheckAttachments([]string{dir}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"report.pdf":  "application/pdf",
		"photo.PNG":   "image/png",
		"a.tar.gz":    fallbackContentType,
		"a.tar.bz2":   fallbackContentType,
		"README":      fallbackContentType,
		"x.nosuchext": fallbackContentType,
	}
	for name, want := range tests {
		if got := ContentType(name); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", name, got, want)
		}
	}
}
