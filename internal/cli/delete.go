package cli

import (
	"context"
	"errors"
	"fmt"
)

func (a *App) Delete(ctx context.Context, id string, confirmed bool) error {
	e, err := a.store.GetByID(ctx, id)
	if err != nil {
		return notFoundHint(id, err)
	}

	err = a.confirm(ctx, fmt.Sprintf("Delete %s (%s)?", e.Name, e.ID), confirmed)
	if errors.Is(err, errNotConfirmed) {
		fmt.Fprintln(a.out, "cancelled")
		return nil
	}
	if err != nil {
		return err
	}

	if err := a.store.DeleteByID(ctx, id); err != nil {
		return notFoundHint(id, err)
	}
	fmt.Fprintf(a.out, "deleted %s\n", e.Name)
	return nil
}

func (a *App) Clear(ctx context.Context, confirmed bool) error {
	st, err := a.store.Stats(ctx)
	if err != nil {
		return err
	}
	if st.Count == 0 {
		fmt.Fprintln(a.out, "no files")
		return nil
	}

	err = a.confirm(ctx, fmt.Sprintf("Delete all %d files?", st.Count), confirmed)
	if errors.Is(err, errNotConfirmed) {
		fmt.Fprintln(a.out, "cancelled")
		return nil
	}
	if err != nil {
		return err
	}

	if err := a.store.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted %d files\n", st.Count)
	return nil
}
