package cli

import (
	"context"
	"errors"
	"strings"
)

var errNotConfirmed = errors.New("not confirmed")

// confirm asks a yes/no question. Without a terminal nothing can be asked,
// so the action is refused unless the caller passed -y.
func (a *App) confirm(ctx context.Context, question string, preconfirmed bool) error {
	if preconfirmed {
		return nil
	}
	if !a.interactive {
		return errors.New("confirmation required: re-run with -y")
	}

	answer, err := a.readLine(ctx, question+" [y/N] ")
	if err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	default:
		return errNotConfirmed
	}
}
