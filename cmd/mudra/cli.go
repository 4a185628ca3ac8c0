package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/viz"
)

// cli implements the library maintenance commands.
type cli struct {
	store *store.Store
}

func (c *cli) list(w io.Writer) error {
	gestures := c.store.List()
	if len(gestures) == 0 {
		fmt.Fprintln(w, "no gestures stored")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFRAMES\tUPDATED")
	for _, g := range gestures {
		updated := "-"
		if !g.Timestamp.IsZero() {
			updated = g.Timestamp.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", g.Name, g.Sequence.Len(), updated)
	}
	return tw.Flush()
}

func (c *cli) delete(w io.Writer, name string) error {
	existed, err := c.store.Delete(name)
	if err != nil {
		return err
	}
	if !existed {
		return fmt.Errorf("gesture %q: %w", name, store.ErrNotFound)
	}
	fmt.Fprintf(w, "deleted %s\n", name)
	return nil
}

func (c *cli) clear(w io.Writer) error {
	n := c.store.Len()
	if err := c.store.Clear(); err != nil {
		return err
	}
	fmt.Fprintf(w, "deleted %d gestures\n", n)
	return nil
}

func (c *cli) plot(w io.Writer, name, out string) error {
	g, ok := c.store.Get(name)
	if !ok {
		return fmt.Errorf("gesture %q: %w", name, store.ErrNotFound)
	}
	if err := viz.WritePNG(out, g.Name, g.Sequence); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %s (%d frames)\n", out, g.Sequence.Len())
	return nil
}

func listBuiltins(w io.Writer) error {
	names := make([]string, 0)
	for name := range gesture.Heuristics() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(w, name)
	}
	return nil
}
