//go:build windows

// limount mounts physical disk partitions into the WSL2 utility VM and
// exposes them back to Windows through a drive letter or an Explorer
// network location, keeping a durable record of what is mounted.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"github.com/becksclair/limount-sub001/internal/appconfig"
	"github.com/becksclair/limount-sub001/internal/hostpath"
	"github.com/becksclair/limount-sub001/internal/log"
	"github.com/becksclair/limount-sub001/internal/wsl2"
)

func main() {
	app := &cli.App{
		Name:  "limount",
		Usage: "mount physical disk partitions through WSL2",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "settings file `path`",
				Value: appconfig.DefaultPath(),
			},
			&cli.StringFlag{
				Name:  "distro",
				Usage: "distribution to mount through, overriding the settings file",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			logrus.SetOutput(os.Stderr)
			if c.Bool("debug") {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.WarnLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			mountCommand,
			unmountCommand,
			statusCommand,
			detectCommand,
			disksCommand,
			reconcileCommand,
			historyCommand,
			clearStateCommand,
			elevatedAttachCommand,
			elevatedDetachCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*appconfig.Config, error) {
	cfg, err := appconfig.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if d := c.String("distro"); d != "" {
		cfg.Distro = d
	}
	return cfg, nil
}

// newService builds the wsl.exe gateway, with UAC re-execution wired so
// unelevated invocations still work.
func newService(cfg *appconfig.Config) (*wsl2.Service, error) {
	extra, err := cfg.MountArgs()
	if err != nil {
		return nil, err
	}
	return wsl2.NewService(&wsl2.Config{
		Distro:         cfg.Distro,
		ExtraMountArgs: extra,
		Elevation: &wsl2.ElevationConfig{
			ResultTimeout: cfg.ElevationTimeout.Std(),
			PollInterval:  cfg.ElevationPoll.Std(),
		},
	}), nil
}

func newProber(cfg *appconfig.Config) *hostpath.Prober {
	return &hostpath.Prober{Timeout: cfg.ReconcileTimeout.Std()}
}

func warnf(format string, args ...interface{}) {
	log.L.Warnf(format, args...)
}
