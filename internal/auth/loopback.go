package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/browser"
	"golang.org/x/oauth2"
)

const callbackPage = "The authentication flow has completed. You may close this window.\n"

// Authorizer runs an interactive authorization-code flow for oc.
type Authorizer interface {
	Authorize(ctx context.Context, oc *oauth2.Config) (*oauth2.Token, error)
}

// LoopbackAuthorizer opens the consent page in a browser and receives the
// redirect on an ephemeral 127.0.0.1 listener.
type LoopbackAuthorizer struct {
	Out         io.Writer
	Logger      *slog.Logger
	OpenBrowser func(url string) error
}

// NewLoopbackAuthorizer returns an authorizer that prints the consent URL to out.
func NewLoopbackAuthorizer(out io.Writer, logger *slog.Logger) *LoopbackAuthorizer {
	return &LoopbackAuthorizer{Out: out, Logger: logger, OpenBrowser: browser.OpenURL}
}

type callbackResult struct {
	code string
	err  error
}

// Authorize blocks until the provider redirects back or ctx is done.
func (a *LoopbackAuthorizer) Authorize(ctx context.Context, oc *oauth2.Config) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen for oauth redirect: %w", err)
	}

	conf := *oc
	conf.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/", ln.Addr().(*net.TCPAddr).Port)
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler:           callbackHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if serveErr := srv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			select {
			case results <- callbackResult{err: fmt.Errorf("serve oauth redirect: %w", serveErr)}:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(a.Out, "Please visit this URL to authorize this application:\n%s\n", authURL) //nolint:errcheck // best-effort
	if a.OpenBrowser != nil {
		if openErr := a.OpenBrowser(authURL); openErr != nil && a.Logger != nil {
			a.Logger.Debug("could not open browser", "error", openErr)
		}
	}

	var res callbackResult
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for authorization: %w", ctx.Err())
	case res = <-results:
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := conf.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
		case q.Get("state") != state:
			res.err = errors.New("authorization response has mismatched state")
		case q.Get("code") == "":
			res.err = errors.New("authorization response has no code")
		default:
			res.code = q.Get("code")
		}
		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			_, _ = io.WriteString(w, callbackPage)
		}
		select {
		case results <- res:
		default:
		}
	})
}

var _ Authorizer = (*LoopbackAuthorizer)(nil)
