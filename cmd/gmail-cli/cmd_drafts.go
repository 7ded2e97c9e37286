package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	gc "github.com/joshsymonds/gmail-cli/internal/gmail"
	"github.com/joshsymonds/gmail-cli/internal/mailer"
)

func newListDraftsCmd(g *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var opts mailer.ListOptions
	cmd := &cobra.Command{
		Use:   "list-drafts",
		Short: "List Gmail drafts",
		Long: `List drafts in the Gmail account with recipients and subject.

Drafts created by gmail-cli are marked with the time they were saved.
Local records whose draft no longer exists in Gmail are counted; --prune
removes them.`,
		Example: `  gmail-cli list-drafts
  gmail-cli list-drafts --max 50 --prune`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService(cmd.Context(), g, stderr)
			if err != nil {
				return err
			}
			listing, err := svc.ListDrafts(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printListing(stdout, listing, effectiveLimit(opts.Max))
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Max, "max", mailer.DefaultListLimit, "maximum number of drafts to list")
	cmd.Flags().BoolVar(&opts.Prune, "prune", false, "remove local records of drafts that no longer exist")
	return cmd
}

func effectiveLimit(n int) int {
	if n <= 0 {
		return mailer.DefaultListLimit
	}
	return n
}

func printListing(w io.Writer, l mailer.Listing, limit int) {
	if len(l.Drafts) == 0 {
		fmt.Fprintln(w, "No drafts found.") //nolint:errcheck // best-effort stdout
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTO\tSUBJECT\tSAVED LOCALLY") //nolint:errcheck // best-effort stdout
		for _, d := range l.Drafts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, orDash(d.To), subjectOrPlaceholder(d.Subject), savedColumn(d)) //nolint:errcheck // best-effort stdout
		}
		tw.Flush() //nolint:errcheck // best-effort stdout
	}
	if !l.Complete {
		fmt.Fprintf(w, "Showing the first %d drafts. Use --max to list more.\n", limit) //nolint:errcheck // best-effort stdout
	}
	switch {
	case l.Pruned > 0:
		fmt.Fprintf(w, "Removed %d stale local draft record(s).\n", l.Pruned) //nolint:errcheck // best-effort stdout
	case len(l.Stale) > 0:
		fmt.Fprintf(w, "%d local draft record(s) no longer exist in Gmail. Run with --prune to remove them.\n", len(l.Stale)) //nolint:errcheck // best-effort stdout
	}
}

func savedColumn(d mailer.DraftEntry) string {
	if !d.Local {
		return "-"
	}
	if d.Created.IsZero() {
		return "yes"
	}
	return d.Created.Local().Format("2006-01-02 15:04")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func subjectOrPlaceholder(s string) string {
	if s == "" {
		return "(no subject)"
	}
	return s
}

func newSendDraftCmd(g *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var draftID string
	cmd := &cobra.Command{
		Use:     "send-draft",
		Short:   "Send an existing draft",
		Example: `  gmail-cli send-draft --draft-id r-123456789`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sendDraft(cmd, g, gc.DraftID(draftID), stdout, stderr)
		},
	}
	bindDraftID(cmd, &draftID, "id of the draft to send")
	return cmd
}

// sendDraft backs both send-draft and send --draft-id.
func sendDraft(cmd *cobra.Command, g *globalFlags, id gc.DraftID, stdout, stderr io.Writer) error {
	svc, err := newService(cmd.Context(), g, stderr)
	if err != nil {
		return err
	}
	msgID, err := svc.SendDraft(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Draft %s sent successfully! Message ID: %s\n", id, msgID) //nolint:errcheck // best-effort stdout
	return nil
}

func newUpdateDraftCmd(g *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var f composeFlags
	var draftID string
	cmd := &cobra.Command{
		Use:   "update-draft",
		Short: "Replace the content of an existing draft",
		Long: `Replace the content of an existing draft.

A new body is always required because Gmail does not return the existing
body for merging. Recipients and subject that are not given are kept from
the current draft. The draft id does not change.`,
		Example: `  gmail-cli update-draft --draft-id r-123456789 --body "Revised text"
  gmail-cli update-draft --id r-123456789 --subject "New subject" --body-file v2.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService(cmd.Context(), g, stderr)
			if err != nil {
				return err
			}
			ref, err := svc.UpdateDraft(cmd.Context(), gc.DraftID(draftID), f.compose())
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Draft %s updated successfully!\n", ref.ID) //nolint:errcheck // best-effort stdout
			return nil
		},
	}
	f.bind(cmd)
	bindDraftID(cmd, &draftID, "id of the draft to update")
	return cmd
}
