//go:build windows

package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	cli "github.com/urfave/cli/v2"

	"github.com/becksclair/limount-sub001/internal/appargs"
	"github.com/becksclair/limount-sub001/internal/diskinfo"
	"github.com/becksclair/limount-sub001/internal/fsdetect"
)

var detectCommand = &cli.Command{
	Name:      "detect",
	Usage:     "infer the filesystem type of a partition via a transient bare attach",
	ArgsUsage: "<disk-index> [partition]",
	Before:    appargs.Validate(appargs.Required, appargs.Optional),
	Action: func(c *cli.Context) error {
		disk, err := diskArg(c)
		if err != nil {
			return err
		}
		partition := 1
		if p := c.Args().Get(1); p != "" {
			if partition, err = strconv.Atoi(p); err != nil || partition < 1 {
				return fmt.Errorf("invalid partition %q", p)
			}
		}
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		svc, err := newService(cfg)
		if err != nil {
			return err
		}

		det := fsdetect.New(svc, svc, newProber(cfg), svc.ResolveDistro(c.Context))
		fs := det.Detect(c.Context, disk, partition)
		fmt.Println(fs)
		if fs == fsdetect.Unknown {
			return cli.Exit("", 1)
		}
		return nil
	},
}

var disksCommand = &cli.Command{
	Name:  "disks",
	Usage: "list the host's physical drives",
	Action: func(c *cli.Context) error {
		disks, err := diskinfo.List(c.Context)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 2, 8, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tMODEL\tBUS\tSIZE\tPARTS\tPATH")
		for _, d := range disks {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
				d.Index, d.Model, d.Interface, diskinfo.HumanSize(d.SizeBytes), d.Partitions, d.Path)
		}
		return w.Flush()
	},
}
