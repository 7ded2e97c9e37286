package gmail

import "context"

// Client is the narrow Gmail surface required by gmail-cli. Raw payloads
// are base64url-encoded RFC 5322 messages.
type Client interface {
	GetProfile(ctx context.Context) (Profile, error)
	ListSendAs(ctx context.Context) ([]SendAs, error)
	SendMessage(ctx context.Context, raw string) (MessageID, error)
	ListDrafts(ctx context.Context, limit int) ([]DraftRef, error)
	GetDraft(ctx context.Context, id DraftID) (DraftMeta, error)
	CreateDraft(ctx context.Context, raw string) (DraftRef, error)
	UpdateDraft(ctx context.Context, id DraftID, raw string) (DraftRef, error)
	SendDraft(ctx context.Context, id DraftID) (MessageID, error)
}
