// Package prompt asks the user yes/no questions on the terminal.
package prompt

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
)

// Confirmer asks a yes/no question. A false answer is not an error.
type Confirmer interface {
	Confirm(ctx context.Context, title, description string) (bool, error)
}

// Terminal confirms through an interactive huh form.
type Terminal struct {
	// Accessible renders a plain line-based prompt instead of the TUI.
	Accessible bool
}

// Confirm runs a confirm field and returns the answer. Aborting the
// form (ctrl+c, esc) counts as "no".
func (t Terminal) Confirm(ctx context.Context, title, description string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithAccessible(t.Accessible)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("run confirm prompt: %w", err)
	}
	return ok, nil
}

// Fixed answers every question the same way. It backs --yes and tests.
type Fixed bool

func (f Fixed) Confirm(context.Context, string, string) (bool, error) {
	return bool(f), nil
}

var (
	_ Confirmer = Terminal{}
	_ Confirmer = Fixed(false)
)
