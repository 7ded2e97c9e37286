// gmail-cli sends mail and manages Gmail drafts from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/joshsymonds/gmail-cli/internal/auth"
	"github.com/joshsymonds/gmail-cli/internal/config"
	"github.com/joshsymonds/gmail-cli/internal/draftstore"
	gc "github.com/joshsymonds/gmail-cli/internal/gmail"
	"github.com/joshsymonds/gmail-cli/internal/mailer"
	"github.com/joshsymonds/gmail-cli/internal/prompt"
	"github.com/joshsymonds/gmail-cli/internal/runtime"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI with args and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(stdout, stderr)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		reportError(stderr, err)
		return 1
	}
	return 0
}

func reportError(stderr io.Writer, err error) {
	if errors.Is(err, mailer.ErrAborted) {
		fmt.Fprintln(stderr, "Aborted!") //nolint:errcheck // best-effort stderr
		return
	}
	fmt.Fprintf(stderr, "gmail-cli: %v\n", err) //nolint:errcheck // best-effort stderr
}

// globalFlags are accepted by every subcommand.
type globalFlags struct {
	credentialsFile string
	tokenFile       string
	clientID        string
	clientSecret    string
	configFile      string
	verbose         bool
	yes             bool
	accessible      bool
}

func (g *globalFlags) overrides() config.Overrides {
	return config.Overrides{
		ConfigFile:      g.configFile,
		CredentialsFile: g.credentialsFile,
		TokenFile:       g.tokenFile,
		ClientID:        g.clientID,
		ClientSecret:    g.clientSecret,
	}
}

func (g *globalFlags) confirmer() prompt.Confirmer {
	if g.yes {
		return prompt.Fixed(true)
	}
	return prompt.Terminal{Accessible: g.accessible}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "gmail-cli",
		Short: "Send email and manage drafts through the Gmail API",
		Long: `Send email and manage drafts through the Gmail API.

Authentication uses OAuth2. Provide either a downloaded client secrets file
with --credentials-file, or a client id and secret with --client-id and
--client-secret (also accepted from ~/.config/gmail-cli/config.json).`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return fmt.Errorf("unknown command %q", args[0])
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.credentialsFile, "credentials-file", "",
		"path to OAuth2 client secrets JSON file (command line only)")
	pf.StringVar(&g.tokenFile, "token-file", "",
		"path to store/read the OAuth2 token (default: ~/.config/gmail-cli/token.json)")
	pf.StringVar(&g.clientID, "client-id", "", "OAuth2 client ID")
	pf.StringVar(&g.clientSecret, "client-secret", "", "OAuth2 client secret")
	pf.StringVar(&g.configFile, "config-file", "",
		"path to configuration JSON file (default: ~/.config/gmail-cli/config.json)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log debug detail to stderr")
	pf.BoolVarP(&g.yes, "yes", "y", false, "answer yes to every confirmation prompt")
	pf.BoolVar(&g.accessible, "accessible", false, "use plain line-based prompts")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newSendCmd(g, stdout, stderr),
		newDraftCmd(g, stdout, stderr),
		newListDraftsCmd(g, stdout, stderr),
		newSendDraftCmd(g, stdout, stderr),
		newUpdateDraftCmd(g, stdout, stderr),
	)
	return root
}

// newService resolves configuration and returns a mailer whose Gmail
// connection is established on first use.
func newService(ctx context.Context, g *globalFlags, stderr io.Writer) (*mailer.Service, error) {
	logger := runtime.NewLogger(stderr, g.verbose)
	confirm := g.confirmer()

	paths, err := config.DefaultPaths()
	if err != nil {
		return nil, err
	}
	cfg, err := config.NewResolver(paths, logger, confirm).Resolve(ctx, g.overrides())
	if err != nil {
		return nil, err
	}

	dial := func(ctx context.Context) (gc.Client, error) {
		mgr := auth.NewManager(auth.NewLoopbackAuthorizer(stderr, logger), auth.OAuth2Refresher{}, logger)
		cred, err := mgr.Obtain(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return runtime.NewGmailClient(ctx, cred, logger)
	}
	store := draftstore.New(paths.DraftStoreFile(), logger)
	return mailer.NewService(dial, store, confirm, logger), nil
}

