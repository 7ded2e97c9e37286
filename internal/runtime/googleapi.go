// internal/runtime/googleapi.go adapts *gmail.Service to our small interface
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/joshsymonds/gmail-cli/internal/apperr"
	gc "github.com/joshsymonds/gmail-cli/internal/gmail"
)

const me = "me"

type googleClient struct {
	svc *gmail.Service
	cb  *gobreaker.CircuitBreaker
}

// NewGoogleAPIClient wraps svc. Calls fail fast once the API has failed
// with server-side errors several times in a row.
func NewGoogleAPIClient(svc *gmail.Service, logger *slog.Logger) gc.Client {
	return &googleClient{svc: svc, cb: newBreaker(logger)}
}

func newBreaker(logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Debug("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			}
		},
	})
}

// call runs fn through the breaker. Only server-side and transport
// failures count against it; client errors pass through untouched.
func call[T any](g *googleClient, op string, fn func() (T, error)) (T, error) {
	var out T
	var clientErr error
	_, err := g.cb.Execute(func() (interface{}, error) {
		v, err := fn()
		if err != nil {
			if !tripsBreaker(err) {
				clientErr = err
				return nil, nil
			}
			return nil, err
		}
		out = v
		return nil, nil
	})
	if err == nil {
		err = clientErr
	}
	if err != nil {
		return out, MapError(op, err)
	}
	return out, nil
}

func tripsBreaker(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled)
}

// MapError converts a Gmail API failure into an apperr.Error keyed on the
// HTTP status.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperr.API(apperr.ReasonOther, "Gmail API is failing repeatedly; try again later", err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusForbidden:
			return apperr.API(apperr.ReasonForbidden,
				"Gmail API access denied. Please check your OAuth consent and API permissions", err)
		case http.StatusTooManyRequests:
			return apperr.API(apperr.ReasonQuota, "Gmail API quota exceeded. Please try again later", err)
		case http.StatusNotFound:
			return apperr.API(apperr.ReasonNotFound, fmt.Sprintf("%s: not found", op), err)
		}
	}
	return apperr.API(apperr.ReasonOther, fmt.Sprintf("Gmail API error during %s", op), err)
}

func (g *googleClient) GetProfile(ctx context.Context) (gc.Profile, error) {
	return call(g, "get profile", func() (gc.Profile, error) {
		p, err := g.svc.Users.GetProfile(me).Context(ctx).Do()
		if err != nil {
			return gc.Profile{}, err
		}
		return gc.Profile{EmailAddress: p.EmailAddress}, nil
	})
}

func (g *googleClient) ListSendAs(ctx context.Context) ([]gc.SendAs, error) {
	return call(g, "list send-as identities", func() ([]gc.SendAs, error) {
		res, err := g.svc.Users.Settings.SendAs.List(me).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		out := make([]gc.SendAs, 0, len(res.SendAs))
		for _, s := range res.SendAs {
			out = append(out, gc.SendAs{
				Email:       s.SendAsEmail,
				DisplayName: s.DisplayName,
				Signature:   s.Signature,
				IsPrimary:   s.IsPrimary,
			})
		}
		return out, nil
	})
}

func (g *googleClient) SendMessage(ctx context.Context, raw string) (gc.MessageID, error) {
	return call(g, "send message", func() (gc.MessageID, error) {
		m, err := g.svc.Users.Messages.Send(me, &gmail.Message{Raw: raw}).Context(ctx).Do()
		if err != nil {
			return "", err
		}
		return gc.MessageID(m.Id), nil
	})
}

func (g *googleClient) ListDrafts(ctx context.Context, limit int) ([]gc.DraftRef, error) {
	return call(g, "list drafts", func() ([]gc.DraftRef, error) {
		var out []gc.DraftRef
		pageToken := ""
		for {
			c := g.svc.Users.Drafts.List(me).Context(ctx)
			if limit > 0 {
				c = c.MaxResults(int64(limit - len(out)))
			}
			if pageToken != "" {
				c = c.PageToken(pageToken)
			}
			res, err := c.Do()
			if err != nil {
				return nil, err
			}
			for _, d := range res.Drafts {
				out = append(out, toDraftRef(d))
			}
			if res.NextPageToken == "" || (limit > 0 && len(out) >= limit) {
				break
			}
			pageToken = res.NextPageToken
		}
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return out, nil
	})
}

func (g *googleClient) GetDraft(ctx context.Context, id gc.DraftID) (gc.DraftMeta, error) {
	return call(g, "get draft "+string(id), func() (gc.DraftMeta, error) {
		d, err := g.svc.Users.Drafts.Get(me, string(id)).Format("metadata").Context(ctx).Do()
		if err != nil {
			return gc.DraftMeta{}, err
		}
		meta := gc.DraftMeta{DraftRef: toDraftRef(d), Headers: map[string]string{}}
		if d.Message != nil {
			meta.Snippet = d.Message.Snippet
			if d.Message.Payload != nil {
				for _, h := range d.Message.Payload.Headers {
					for _, want := range gc.DraftHeaders {
						if strings.EqualFold(h.Name, want) {
							meta.Headers[want] = h.Value
						}
					}
				}
			}
		}
		return meta, nil
	})
}

func (g *googleClient) CreateDraft(ctx context.Context, raw string) (gc.DraftRef, error) {
	return call(g, "create draft", func() (gc.DraftRef, error) {
		d, err := g.svc.Users.Drafts.Create(me, &gmail.Draft{Message: &gmail.Message{Raw: raw}}).Context(ctx).Do()
		if err != nil {
			return gc.DraftRef{}, err
		}
		return toDraftRef(d), nil
	})
}

func (g *googleClient) UpdateDraft(ctx context.Context, id gc.DraftID, raw string) (gc.DraftRef, error) {
	return call(g, "update draft "+string(id), func() (gc.DraftRef, error) {
		body := &gmail.Draft{Id: string(id), Message: &gmail.Message{Raw: raw}}
		d, err := g.svc.Users.Drafts.Update(me, string(id), body).Context(ctx).Do()
		if err != nil {
			return gc.DraftRef{}, err
		}
		return toDraftRef(d), nil
	})
}

func (g *googleClient) SendDraft(ctx context.Context, id gc.DraftID) (gc.MessageID, error) {
	return call(g, "send draft "+string(id), func() (gc.MessageID, error) {
		m, err := g.svc.Users.Drafts.Send(me, &gmail.Draft{Id: string(id)}).Context(ctx).Do()
		if err != nil {
			return "", err
		}
		return gc.MessageID(m.Id), nil
	})
}

func toDraftRef(d *gmail.Draft) gc.DraftRef {
	ref := gc.DraftRef{ID: gc.DraftID(d.Id)}
	if d.Message != nil {
		ref.MessageID = gc.MessageID(d.Message.Id)
	}
	return ref
}
