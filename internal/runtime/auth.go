// internal/runtime/auth.go
package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/joshsymonds/gmail-cli/internal/auth"
	gc "github.com/joshsymonds/gmail-cli/internal/gmail"
)

// NewGmailClient builds a Gmail client authorized by cred. The token source
// refreshes cred in memory if it expires mid-run.
func NewGmailClient(ctx context.Context, cred *auth.Credential, logger *slog.Logger) (gc.Client, error) {
	httpClient := cred.Config().Client(ctx, cred.Token())
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return NewGoogleAPIClient(svc, logger), nil
}

func DefaultLogger(verbose bool) *slog.Logger {
	return NewLogger(os.Stderr, verbose)
}

func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
