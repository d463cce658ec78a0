package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/models"
	"github.com/dustin/go-humanize"
)

const timeLayout = "2006-01-02 15:04:05"

func (a *App) List(ctx context.Context) error {
	entries, err := a.store.ListAll(ctx)
	if err != nil {
		return err
	}
	a.printEntries(entries)
	return a.Stats(ctx)
}

func (a *App) Search(ctx context.Context, query string) error {
	entries, err := a.store.Search(ctx, query)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(a.out, "no files match %q\n", query)
		return nil
	}
	a.printEntries(entries)
	return nil
}

func (a *App) Info(ctx context.Context, id string) error {
	e, err := a.store.GetByID(ctx, id)
	if err != nil {
		return notFoundHint(id, err)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", e.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", e.Name)
	fmt.Fprintf(tw, "Size:\t%s (%d bytes)\n", humanize.IBytes(uint64(e.Size)), e.Size)
	fmt.Fprintf(tw, "Type:\t%s\n", e.Type)
	fmt.Fprintf(tw, "Created:\t%s\n", formatCreated(e.CreatedAt))
	if e.Checksum != "" {
		fmt.Fprintf(tw, "BLAKE2b:\t%s\n", e.Checksum)
	}
	return tw.Flush()
}

func (a *App) Stats(ctx context.Context) error {
	st, err := a.store.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Files: %d · Used: %s\n", st.Count, humanize.IBytes(uint64(st.TotalSize)))
	return nil
}

func (a *App) printEntries(entries []models.FileEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "no files")
		return
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tTYPE\tCREATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Name, humanize.IBytes(uint64(e.Size)), e.Type, formatCreated(e.CreatedAt))
	}
	_ = tw.Flush()
}

func formatCreated(t time.Time) string {
	return t.Local().Format(timeLayout)
}

func notFoundHint(id string, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("no file with id %s: %w", id, common.ErrorNotFound)
	}
	return err
}
