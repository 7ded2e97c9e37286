package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rogpeppe/go-internal/testscript"
	"github.com/spf13/cobra"

	"github.com/joshsymonds/gmail-cli/internal/content"
	"github.com/joshsymonds/gmail-cli/internal/mailer"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"gmail-cli": func() int { return run(os.Args[1:], os.Stdout, os.Stderr) },
	}))
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		Setup: func(env *testscript.Env) error {
			env.Setenv("HOME", env.WorkDir)
			return nil
		},
	})
}

// --- run ---

func TestRunNoArgs(t *testing.T) {
	var stdout bytes.Buffer
	code := run(nil, &stdout, &bytes.Buffer{})
	if code != 0 {
		t.Errorf("run(nil) = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "Available Commands") {
		t.Errorf("stdout missing help text: %q", stdout.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var stderr bytes.Buffer
	code := run([]string{"blorp"}, &bytes.Buffer{}, &stderr)
	if code != 1 {
		t.Errorf("run([blorp]) = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), `gmail-cli: unknown command "blorp"`) {
		t.Errorf("stderr = %q, want 'unknown command'", stderr.String())
	}
}

func TestRunMissingAuthFailsBeforeValidation(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	var stdout, stderr bytes.Buffer
	code := run([]string{"send", "--to", "a@example.com", "--subject", "s"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "authentication configuration missing") {
		t.Errorf("stderr = %q", stderr.String())
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want empty", stdout.String())
	}
}

// --- errors ---

func TestReportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"aborted", mailer.ErrAborted, "Aborted!\n"},
		{"wrapped abort", fmt.Errorf("send: %w", mailer.ErrAborted), "Aborted!\n"},
		{"plain", errors.New("boom"), "gmail-cli: boom\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			reportError(&buf, tt.err)
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

// --- flags ---

func parseCompose(t *testing.T, args ...string) mailer.Compose {
	t.Helper()
	var f composeFlags
	cmd := &cobra.Command{Use: "x"}
	f.bind(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return f.compose()
}

func TestComposeFlagsDefaults(t *testing.T) {
	c := parseCompose(t, "--to", "a@example.com", "--body", "hi")
	if c.Format != content.FormatMarkdown {
		t.Errorf("format = %q, want markdown", c.Format)
	}
	if !c.Signature {
		t.Error("signature should default to on")
	}
}

func TestComposeFlagsRepeatable(t *testing.T) {
	c := parseCompose(t,
		"--to", "a@example.com", "--to", "b@example.com",
		"--cc", "c@example.com",
		"--bcc", "d@example.com",
		"--attachment", "one.pdf", "--attachment", "two.png",
		"--input-format", "html",
		"--sender", "me@example.com",
	)
	if len(c.To) != 2 || c.To[1] != "b@example.com" {
		t.Errorf("to = %v", c.To)
	}
	if len(c.Cc) != 1 || len(c.Bcc) != 1 {
		t.Errorf("cc = %v bcc = %v", c.Cc, c.Bcc)
	}
	if len(c.Attachments) != 2 {
		t.Errorf("attachments = %v", c.Attachments)
	}
	if c.Format != content.FormatHTML || c.Sender != "me@example.com" {
		t.Errorf("format = %q sender = %q", c.Format, c.Sender)
	}
}

func TestComposeFlagsNoSignature(t *testing.T) {
	for _, args := range [][]string{
		{"--no-signature"},
		{"--signature=false"},
	} {
		if c := parseCompose(t, args...); c.Signature {
			t.Errorf("%v: signature still enabled", args)
		}
	}
}

func TestDraftIDAlias(t *testing.T) {
	for _, flag := range []string{"--draft-id", "--id"} {
		var id string
		cmd := &cobra.Command{Use: "x"}
		bindDraftID(cmd, &id, "")
		if err := cmd.ParseFlags([]string{flag, "r-42"}); err != nil {
			t.Fatalf("parse %s: %v", flag, err)
		}
		if id != "r-42" {
			t.Errorf("%s: id = %q", flag, id)
		}
	}
}

// --- list-drafts output ---

func TestPrintListingEmpty(t *testing.T) {
	var buf bytes.Buffer
	printListing(&buf, mailer.Listing{Complete: true}, 20)
	if got := buf.String(); got != "No drafts found.\n" {
		t.Errorf("got %q", got)
	}
}

func TestPrintListingTable(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 30, 0, 0, time.Local)
	l := mailer.Listing{
		Drafts: []mailer.DraftEntry{
			{ID: "r-1", To: "a@example.com", Subject: "Hello", Local: true, Created: created},
			{ID: "r-2"},
		},
		Stale:    []string{"r-9"},
		Complete: true,
	}
	var buf bytes.Buffer
	printListing(&buf, l, 20)
	out := buf.String()
	for _, want := range []string{
		"ID", "SUBJECT",
		"r-1", "a@example.com", "Hello", "2024-05-01 12:30",
		"r-2", "(no subject)",
		"1 local draft record(s) no longer exist in Gmail",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Use --max") {
		t.Errorf("complete listing should not suggest --max:\n%s", out)
	}
}

func TestPrintListingTruncatedAndPruned(t *testing.T) {
	l := mailer.Listing{
		Drafts:   []mailer.DraftEntry{{ID: "r-1"}, {ID: "r-2"}},
		Complete: false,
		Pruned:   3,
		Stale:    []string{"a", "b", "c"},
	}
	var buf bytes.Buffer
	printListing(&buf, l, 2)
	out := buf.String()
	if !strings.Contains(out, "Showing the first 2 drafts") {
		t.Errorf("missing truncation notice:\n%s", out)
	}
	if !strings.Contains(out, "Removed 3 stale local draft record(s).") {
		t.Errorf("missing prune notice:\n%s", out)
	}
	if strings.Contains(out, "Run with --prune") {
		t.Errorf("prune hint shown after pruning:\n%s", out)
	}
}

func TestEffectiveLimit(t *testing.T) {
	if got := effectiveLimit(0); got != mailer.DefaultListLimit {
		t.Errorf("effectiveLimit(0) = %d", got)
	}
	if got := effectiveLimit(5); got != 5 {
		t.Errorf("effectiveLimit(5) = %d", got)
	}
}
