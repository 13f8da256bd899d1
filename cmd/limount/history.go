//go:build windows

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	cli "github.com/urfave/cli/v2"

	"github.com/becksclair/limount-sub001/internal/history"
	"github.com/becksclair/limount-sub001/internal/log"
)

var historyCommand = &cli.Command{
	Name:  "history",
	Usage: "show recent mount and unmount operations",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"n"},
			Usage:   "show the last `count` entries",
			Value:   20,
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		hist, err := history.Open(cfg.HistoryFile())
		if err != nil {
			return err
		}
		defer hist.Close()

		entries, err := hist.Recent(c.Context, c.Int("limit"))
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 2, 8, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tOP\tDISK\tPART\tOUTCOME")
		for _, e := range entries {
			outcome := "ok"
			if !e.Success {
				outcome = fmt.Sprintf("failed (%s): %s", e.FailedStep, e.ErrorMessage)
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
				log.FormatTime(e.When), e.Op, e.DiskIndex, e.Partition, outcome)
		}
		return w.Flush()
	},
}
