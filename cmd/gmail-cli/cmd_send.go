package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/joshsymonds/gmail-cli/internal/apperr"
	"github.com/joshsymonds/gmail-cli/internal/content"
	gc "github.com/joshsymonds/gmail-cli/internal/gmail"
	"github.com/joshsymonds/gmail-cli/internal/mailer"
)

// composeFlags are the message flags shared by send, draft and update-draft.
type composeFlags struct {
	to          []string
	cc          []string
	bcc         []string
	subject     string
	body        string
	bodyFile    string
	format      string
	attachments []string
	sender      string
	signature   bool
	noSignature bool
}

func (f *composeFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringArrayVar(&f.to, "to", nil, "recipient address (repeatable)")
	fs.StringArrayVar(&f.cc, "cc", nil, "CC address (repeatable)")
	fs.StringArrayVar(&f.bcc, "bcc", nil, "BCC address (repeatable)")
	fs.StringVar(&f.subject, "subject", "", "email subject")
	fs.StringVar(&f.body, "body", "", "email body text")
	fs.StringVar(&f.bodyFile, "body-file", "", "read the email body from a file")
	fs.StringVar(&f.format, "input-format", string(content.FormatMarkdown),
		"body format: markdown, html or plaintext")
	fs.StringArrayVar(&f.attachments, "attachment", nil, "file to attach (repeatable)")
	fs.StringVar(&f.sender, "sender", "", "override the sender address (if permitted)")
	fs.BoolVar(&f.signature, "signature", true, "append the Gmail default signature")
	fs.BoolVar(&f.noSignature, "no-signature", false, "do not append the Gmail signature")
}

func (f *composeFlags) compose() mailer.Compose {
	return mailer.Compose{
		To:          f.to,
		Cc:          f.cc,
		Bcc:         f.bcc,
		Subject:     f.subject,
		Body:        f.body,
		BodyFile:    f.bodyFile,
		Format:      content.Format(f.format),
		Attachments: f.attachments,
		Sender:      f.sender,
		Signature:   f.signature && !f.noSignature,
	}
}

// requireAddressing enforces the flags a new message cannot do without.
func (f *composeFlags) requireAddressing() error {
	if len(f.to) == 0 {
		return apperr.Validation("--to is required")
	}
	if f.subject == "" {
		return apperr.Validation("--subject is required")
	}
	return nil
}

func newSendCmd(g *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var f composeFlags
	var draftID string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an email, or an existing draft by id",
		Long: `Send an email via the Gmail API.

The body comes from --body or --body-file and is converted to HTML from
--input-format (markdown by default). With --draft-id, the existing draft is
sent instead and the compose flags are ignored.`,
		Example: `  gmail-cli send --to bob@example.com --subject "Hi" --body "**Hello**"
  gmail-cli send --to bob@example.com --subject Report --body-file report.md --attachment report.pdf
  gmail-cli send --draft-id r-123456789`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if draftID != "" {
				return sendDraft(cmd, g, gc.DraftID(draftID), stdout, stderr)
			}
			svc, err := newService(cmd.Context(), g, stderr)
			if err != nil {
				return err
			}
			if err := f.requireAddressing(); err != nil {
				return err
			}
			id, err := svc.Send(cmd.Context(), f.compose())
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Email sent successfully! Message ID: %s\n", id) //nolint:errcheck // best-effort stdout
			return nil
		},
	}
	f.bind(cmd)
	bindDraftID(cmd, &draftID, "send this existing draft instead of composing")
	return cmd
}

func newDraftCmd(g *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var f composeFlags
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Create a Gmail draft",
		Long: `Create a draft in Gmail and remember it locally.

Takes the same compose flags as send. The new draft id is printed and
recorded in ~/.config/gmail-cli/drafts.json.`,
		Example: `  gmail-cli draft --to bob@example.com --subject "Later" --body "Draft text"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService(cmd.Context(), g, stderr)
			if err != nil {
				return err
			}
			if err := f.requireAddressing(); err != nil {
				return err
			}
			ref, err := svc.Draft(cmd.Context(), f.compose())
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Draft created successfully! Draft ID: %s\n", ref.ID) //nolint:errcheck // best-effort stdout
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

// bindDraftID registers --draft-id with --id as an alias.
func bindDraftID(cmd *cobra.Command, dst *string, usage string) {
	fs := cmd.Flags()
	fs.StringVar(dst, "draft-id", "", usage)
	fs.StringVar(dst, "id", "", "alias for --draft-id")
}
