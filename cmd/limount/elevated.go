//go:build windows

package main

import (
	"strings"

	cli "github.com/urfave/cli/v2"

	"github.com/becksclair/limount-sub001/internal/wsl2"
)

// The elevated-* commands are the far side of the UAC re-execution in
// internal/wsl2: the unelevated parent launches this binary elevated with
// one of them, and consumes the typed result from the file named by
// --result. A result file is always written, even for transport failures,
// so the parent never has to wait out its timeout for a diagnosis.

var elevatedAttachCommand = &cli.Command{
	Name:   "elevated-attach",
	Hidden: true,
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "result", Required: true},
		&cli.IntFlag{Name: "disk"},
		&cli.StringFlag{Name: "vhd"},
		&cli.BoolFlag{Name: "bare"},
		&cli.IntFlag{Name: "partition"},
		&cli.StringFlag{Name: "type"},
		&cli.StringFlag{Name: "options"},
		&cli.StringFlag{Name: "distro"},
		&cli.StringSliceFlag{Name: "extra"},
	},
	Action: func(c *cli.Context) error {
		req := wsl2.AttachRequest{
			DiskIndex:  c.Int("disk"),
			VHDPath:    c.String("vhd"),
			Bare:       c.Bool("bare"),
			Partition:  c.Int("partition"),
			Filesystem: c.String("type"),
			Distro:     c.String("distro"),
		}
		if opts := c.String("options"); opts != "" {
			req.Options = strings.Split(opts, ",")
		}
		// No elevation config: this process is the elevated one. The
		// parent forwards its extra passthrough arguments so the attach
		// it delegated is the attach that runs.
		svc := wsl2.NewService(&wsl2.Config{
			Distro:         req.Distro,
			ExtraMountArgs: c.StringSlice("extra"),
		})
		res, err := svc.Attach(c.Context, req)
		if err != nil {
			res = &wsl2.AttachResult{ErrorMessage: err.Error()}
		}
		return wsl2.WriteResultFile(c.String("result"), res)
	},
}

var elevatedDetachCommand = &cli.Command{
	Name:   "elevated-detach",
	Hidden: true,
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "result", Required: true},
		&cli.IntFlag{Name: "disk"},
	},
	Action: func(c *cli.Context) error {
		svc := wsl2.NewService(nil)
		res, err := svc.Detach(c.Context, c.Int("disk"))
		if err != nil {
			res = &wsl2.DetachResult{DiskIndex: c.Int("disk"), ErrorMessage: err.Error()}
		}
		return wsl2.WriteResultFile(c.String("result"), res)
	},
}
