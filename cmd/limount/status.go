//go:build windows

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	cli "github.com/urfave/cli/v2"

	"github.com/becksclair/limount-sub001/internal/log"
	"github.com/becksclair/limount-sub001/internal/state"
)

var statusCommand = &cli.Command{
	Name:  "status",
	Usage: "list tracked mounts",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "print machine-readable output",
		},
		&cli.BoolFlag{
			Name:  "verify",
			Usage: "reconcile against real host state first",
		},
	},
	Action: func(c *cli.Context) error {
		t, err := newToolkit(c)
		if err != nil {
			return err
		}
		defer t.close()

		if c.Bool("verify") || t.cfg.ReconcileOnStart {
			dropped, err := t.store.Reconcile(c.Context)
			if err != nil {
				return err
			}
			reportDropped(dropped)
		}

		mounts, err := t.store.All(c.Context)
		if err != nil {
			return err
		}
		if c.Bool("json") {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(mounts)
		}
		if len(mounts) == 0 {
			fmt.Println("No mounts tracked.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 2, 8, 2, ' ', 0)
		fmt.Fprintln(w, "DISK\tPART\tACCESS\tHOST PATH\tVERIFIED\tMOUNTED")
		for _, m := range mounts {
			verified := "no"
			if m.Verified {
				verified = "yes"
			}
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n",
				m.DiskIndex, m.Partition, m.AccessInfo().Display(), m.HostPath,
				verified, log.FormatTime(m.MountedAt))
		}
		return w.Flush()
	},
}

var reconcileCommand = &cli.Command{
	Name:  "reconcile",
	Usage: "compare tracked mounts against real host state and drop orphans",
	Action: func(c *cli.Context) error {
		t, err := newToolkit(c)
		if err != nil {
			return err
		}
		defer t.close()

		dropped, err := t.store.Reconcile(c.Context)
		if err != nil {
			return err
		}
		reportDropped(dropped)
		if len(dropped) == 0 {
			fmt.Println("All tracked mounts check out.")
		}
		return nil
	},
}

func reportDropped(dropped []*state.ActiveMount) {
	for _, m := range dropped {
		if d := m.AccessInfo().Display(); d != "" {
			fmt.Printf("Dropped orphaned mount: disk %d partition %d (%s)\n", m.DiskIndex, m.Partition, d)
		} else {
			fmt.Printf("Dropped orphaned mount: disk %d partition %d\n", m.DiskIndex, m.Partition)
		}
	}
}

var clearStateCommand = &cli.Command{
	Name:  "clear-state",
	Usage: "forget every tracked mount without touching the system",
	Action: func(c *cli.Context) error {
		t, err := newToolkit(c)
		if err != nil {
			return err
		}
		defer t.close()

		if err := t.store.ClearAll(c.Context); err != nil {
			return err
		}
		fmt.Println("Mount state cleared.")
		return nil
	},
}
