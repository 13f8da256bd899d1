//go:build windows

package main

import (
	"fmt"
	"strconv"

	cli "github.com/urfave/cli/v2"

	"github.com/becksclair/limount-sub001/internal/access"
	"github.com/becksclair/limount-sub001/internal/appargs"
	"github.com/becksclair/limount-sub001/internal/appconfig"
	"github.com/becksclair/limount-sub001/internal/fsdetect"
	"github.com/becksclair/limount-sub001/internal/history"
	"github.com/becksclair/limount-sub001/internal/mount"
	"github.com/becksclair/limount-sub001/internal/state"
	"github.com/becksclair/limount-sub001/internal/wsl2"
)

// toolkit bundles the wired-up collaborators a command needs.
type toolkit struct {
	cfg     *appconfig.Config
	service *wsl2.Service
	store   *state.Store
	manager *mount.Manager
	hist    *history.Log
}

func newToolkit(c *cli.Context) (*toolkit, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	svc, err := newService(cfg)
	if err != nil {
		return nil, err
	}
	prober := newProber(cfg)
	store := state.NewStore(cfg.StateFile(), prober, access.Letters{}, &state.Options{
		ProbeTimeout: cfg.ReconcileTimeout.Std(),
	})

	var rec mount.Recorder
	hist, err := history.Open(cfg.HistoryFile())
	if err != nil {
		warnf("could not open the history log: %v", err)
	} else {
		rec = hist
	}

	mgr := mount.NewManager(svc, access.NewGateway(), store, rec, prober, &mount.Options{
		PathWaitAttempts: cfg.HostPathAttempts,
		PathWaitDelay:    cfg.HostPathDelay.Std(),
		Progress:         printProgress,
	})
	return &toolkit{cfg: cfg, service: svc, store: store, manager: mgr, hist: hist}, nil
}

func (t *toolkit) close() {
	if t.hist != nil {
		_ = t.hist.Close()
	}
	_ = t.store.Close()
}

func printProgress(s mount.Step) {
	switch s {
	case mount.StepMount:
		fmt.Println("Attaching disk...")
	case mount.StepMap:
		fmt.Println("Creating access surface...")
	case mount.StepUnmount:
		fmt.Println("Detaching disk...")
	case mount.StepUnmap:
		fmt.Println("Removing access surface...")
	}
}

func diskArg(c *cli.Context) (int, error) {
	n, err := strconv.Atoi(c.Args().First())
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid disk index %q", c.Args().First())
	}
	return n, nil
}

func resultError(res *mount.Result) error {
	msg := fmt.Sprintf("%s failed: %s", res.FailedStep, res.ErrorMessage)
	if res.ErrorHint != "" {
		msg += "\n" + res.ErrorHint
	}
	return cli.Exit(msg, 1)
}

func printWarnings(res *mount.Result) {
	for _, w := range res.Warnings {
		fmt.Println("warning:", w)
	}
}

var mountCommand = &cli.Command{
	Name:      "mount",
	Usage:     "attach a partition to WSL2 and expose it to Windows",
	ArgsUsage: "<disk-index>",
	Before:    appargs.Validate(appargs.Required),
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "partition",
			Aliases: []string{"p"},
			Usage:   "1-based partition `number`",
			Value:   1,
		},
		&cli.StringFlag{
			Name:    "type",
			Aliases: []string{"t"},
			Usage:   "filesystem `type` to mount; detected when omitted",
		},
		&cli.BoolFlag{
			Name:  "no-detect",
			Usage: "skip filesystem detection when --type is omitted",
		},
		&cli.StringFlag{
			Name:    "mode",
			Aliases: []string{"m"},
			Usage:   "access surface: network-location, drive-letter-legacy or none",
		},
		&cli.StringFlag{
			Name:    "letter",
			Aliases: []string{"l"},
			Usage:   "drive `letter` for drive-letter-legacy mode",
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "display `name` of the network location",
		},
		&cli.StringSliceFlag{
			Name:    "options",
			Aliases: []string{"o"},
			Usage:   "extra mount `options` passed to the guest",
		},
	},
	Action: func(c *cli.Context) error {
		disk, err := diskArg(c)
		if err != nil {
			return err
		}
		t, err := newToolkit(c)
		if err != nil {
			return err
		}
		defer t.close()

		modeName := c.String("mode")
		if modeName == "" {
			modeName = t.cfg.AccessMode
		}
		mode, err := access.ParseMode(modeName)
		if err != nil {
			return err
		}

		fstype := c.String("type")
		if fstype == "" && !c.Bool("no-detect") {
			fmt.Println("Detecting filesystem...")
			det := fsdetect.New(t.service, t.service, newProber(t.cfg), t.service.ResolveDistro(c.Context))
			if fs := det.Detect(c.Context, disk, c.Int("partition")); fs != fsdetect.Unknown {
				fmt.Println("Detected", fs)
				fstype = fs
			} else {
				fmt.Println("Could not detect the filesystem; the platform default will be used")
			}
		}

		res := t.manager.MountAndMap(c.Context, mount.MountRequest{
			DiskIndex:    disk,
			Partition:    c.Int("partition"),
			Mode:         mode,
			DriveLetter:  c.String("letter"),
			LocationName: c.String("name"),
			Filesystem:   fstype,
			Distro:       t.cfg.Distro,
			Options:      c.StringSlice("options"),
		})
		printWarnings(res)
		if !res.Success {
			return resultError(res)
		}
		if res.AlreadyAttached {
			fmt.Println("The disk was already attached.")
		}
		if d := res.Display(); d != "" {
			fmt.Printf("Mounted disk %d partition %d at %s (%s)\n", disk, c.Int("partition"), d, res.HostPath)
		} else {
			fmt.Printf("Mounted disk %d partition %d at %s\n", disk, c.Int("partition"), res.HostPath)
		}
		return nil
	},
}

var unmountCommand = &cli.Command{
	Name:      "unmount",
	Aliases:   []string{"umount"},
	Usage:     "remove a mount's access surface and detach the disk",
	ArgsUsage: "<disk-index>",
	Before:    appargs.Validate(appargs.Required),
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "mode",
			Aliases: []string{"m"},
			Usage:   "access surface the mount was created with",
		},
		&cli.StringFlag{
			Name:    "letter",
			Aliases: []string{"l"},
			Usage:   "drive `letter` of the mount",
		},
	},
	Action: func(c *cli.Context) error {
		disk, err := diskArg(c)
		if err != nil {
			return err
		}
		t, err := newToolkit(c)
		if err != nil {
			return err
		}
		defer t.close()

		req := mount.UnmountRequest{DiskIndex: disk, DriveLetter: c.String("letter")}
		if name := c.String("mode"); name != "" {
			if req.Mode, err = access.ParseMode(name); err != nil {
				return err
			}
		} else if recs, err := t.store.ForDisk(c.Context, disk); err == nil && len(recs) > 0 {
			// No mode given: trust what the record says was created.
			req.Mode = recs[0].Mode
			if req.DriveLetter == "" {
				req.DriveLetter = recs[0].DriveLetter
			}
		} else {
			req.Mode = access.ModeNone
		}

		res := t.manager.UnmountAndUnmap(c.Context, req)
		printWarnings(res)
		if !res.Success {
			return resultError(res)
		}
		if d := res.Display(); d != "" {
			fmt.Printf("Unmounted disk %d and removed %s\n", disk, d)
		} else {
			fmt.Printf("Unmounted disk %d\n", disk)
		}
		return nil
	},
}
