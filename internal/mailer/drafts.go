package mailer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/joshsymonds/gmail-cli/internal/apperr"
	"github.com/joshsymonds/gmail-cli/internal/draftstore"
	gc "github.com/joshsymonds/gmail-cli/internal/gmail"
	"github.com/joshsymonds/gmail-cli/internal/rate"
)

// DefaultListLimit bounds list-drafts when no --max is given.
const DefaultListLimit = 20

type ListOptions struct {
	Max   int
	Prune bool
}

// DraftEntry is one remote draft annotated with local knowledge.
type DraftEntry struct {
	ID      gc.DraftID
	To      string
	Subject string
	Snippet string
	Local   bool
	Created time.Time
}

// Listing is the result of list-drafts.
type Listing struct {
	Drafts []DraftEntry
	// Stale holds local ids with no remote draft. It is only computed when
	// the remote listing was complete.
	Stale    []string
	Complete bool
	Pruned   int
}

// ListDrafts lists remote drafts, fetching headers for each, and marks the
// ones this tool created.
func (s *Service) ListDrafts(ctx context.Context, opts ListOptions) (Listing, error) {
	limit := opts.Max
	if limit <= 0 {
		limit = DefaultListLimit
	}
	client, err := s.connect(ctx)
	if err != nil {
		return Listing{}, err
	}

	refs, err := client.ListDrafts(ctx, limit)
	if err != nil {
		return Listing{}, err
	}
	local := s.loadRecords()

	lim := s.Limiter
	if lim == nil {
		lim = rate.Unlimited{}
	}

	out := Listing{Drafts: make([]DraftEntry, 0, len(refs)), Complete: len(refs) < limit}
	for _, ref := range refs {
		if err := lim.Wait(ctx); err != nil {
			return Listing{}, err
		}
		meta, err := client.GetDraft(ctx, ref.ID)
		if err != nil {
			if apperr.ReasonOf(err) == apperr.ReasonNotFound {
				s.Logger.Debug("draft disappeared while listing", "id", ref.ID)
				continue
			}
			return Listing{}, err
		}
		entry := DraftEntry{
			ID:      ref.ID,
			To:      meta.Header("To"),
			Subject: meta.Header("Subject"),
			Snippet: meta.Snippet,
		}
		if rec, ok := local[string(ref.ID)]; ok {
			entry.Local = true
			entry.Created = rec.Created
		}
		out.Drafts = append(out.Drafts, entry)
	}

	remote := refs
	if opts.Prune && !out.Complete {
		if remote, err = client.ListDrafts(ctx, 0); err != nil {
			return Listing{}, err
		}
		out.Complete = true
	}
	if out.Complete {
		out.Stale = staleIDs(local, remote)
	}
	if opts.Prune && len(out.Stale) > 0 {
		s.removeRecords(out.Stale...)
		out.Pruned = len(out.Stale)
		s.Logger.Info("pruned local draft records", "count", out.Pruned)
	}
	return out, nil
}

func (s *Service) loadRecords() map[string]draftstore.Record {
	if s.Store == nil {
		return map[string]draftstore.Record{}
	}
	return s.Store.Load()
}

func staleIDs(local map[string]draftstore.Record, remote []gc.DraftRef) []string {
	seen := make(map[string]bool, len(remote))
	for _, r := range remote {
		seen[string(r.ID)] = true
	}
	var stale []string
	for id := range local {
		if !seen[id] {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)
	return stale
}

// SendDraft sends an existing draft and forgets it locally.
func (s *Service) SendDraft(ctx context.Context, id gc.DraftID) (gc.MessageID, error) {
	if id == "" {
		return "", apperr.Validation("a draft id is required")
	}
	client, err := s.connect(ctx)
	if err != nil {
		return "", err
	}
	s.Logger.Info("sending draft", "id", id)
	msgID, err := client.SendDraft(ctx, id)
	if err != nil {
		return "", err
	}
	s.removeRecords(string(id))
	return msgID, nil
}

// UpdateDraft replaces the content of draft id. Recipients and subject not
// given in c are carried over from the current draft. The body is always
// required because Gmail does not return it for merging.
func (s *Service) UpdateDraft(ctx context.Context, id gc.DraftID, c Compose) (gc.DraftRef, error) {
	if id == "" {
		return gc.DraftRef{}, apperr.Validation("a draft id is required")
	}
	if !c.HasBody() {
		return gc.DraftRef{}, apperr.Validation(
			"update-draft requires --body or --body-file; the existing draft body cannot be retrieved for merging")
	}
	if err := c.Validate(); err != nil {
		return gc.DraftRef{}, err
	}
	body, err := c.LoadBody()
	if err != nil {
		return gc.DraftRef{}, err
	}
	if err := s.confirmSignature(ctx, c); err != nil {
		return gc.DraftRef{}, err
	}
	client, err := s.connect(ctx)
	if err != nil {
		return gc.DraftRef{}, err
	}

	current, err := client.GetDraft(ctx, id)
	if err != nil {
		return gc.DraftRef{}, fmt.Errorf("fetch draft %s: %w", id, err)
	}
	merged := mergeDraft(c, current)

	raw, err := s.render(ctx, client, merged, body)
	if err != nil {
		return gc.DraftRef{}, err
	}
	s.Logger.Info("updating draft", "id", id)
	return client.UpdateDraft(ctx, id, raw)
}

func mergeDraft(c Compose, current gc.DraftMeta) Compose {
	if len(c.To) == 0 {
		c.To = gc.SplitAddresses(current.Header("To"))
	}
	if len(c.Cc) == 0 {
		c.Cc = gc.SplitAddresses(current.Header("Cc"))
	}
	if len(c.Bcc) == 0 {
		c.Bcc = gc.SplitAddresses(current.Header("Bcc"))
	}
	if c.Subject == "" {
		c.Subject = current.Header("Subject")
	}
	return c
}
