//go:build windows

package wsl2

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"

	"github.com/becksclair/limount-sub001/internal/log"
	"github.com/becksclair/limount-sub001/internal/logfields"
)

// Elevation re-executes the current binary through the UAC "runas" verb.
// ShellExecute yields no process handle to wait on, so the elevated child
// reports back through a JSON result file which the parent polls for. The
// file is written atomically, so a readable file is a complete result.

// ElevationConfig controls transparent re-execution through UAC.
type ElevationConfig struct {
	// ResultTimeout bounds how long the parent waits for the elevated
	// child to report. Zero means a minute.
	ResultTimeout time.Duration
	// PollInterval is how often the result file is checked for. Zero
	// means 200ms.
	PollInterval time.Duration
	// SelfPath overrides the executable to launch. Empty launches the
	// current executable.
	SelfPath string
}

func (c *ElevationConfig) resultTimeout() time.Duration {
	if c.ResultTimeout > 0 {
		return c.ResultTimeout
	}
	return time.Minute
}

func (c *ElevationConfig) pollInterval() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return 200 * time.Millisecond
}

func (c *ElevationConfig) launch(ctx context.Context, args []string) error {
	exe := c.SelfPath
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return errors.Wrap(err, "locating own executable")
		}
	}
	escaped := make([]string, len(args))
	for i, a := range args {
		escaped[i] = windows.EscapeArg(a)
	}
	log.G(ctx).WithFields(logrus.Fields{
		logfields.Path:    exe,
		logfields.Command: strings.Join(escaped, " "),
	}).Debug("launching elevated helper")

	verb, err := windows.UTF16PtrFromString("runas")
	if err != nil {
		return err
	}
	file, err := windows.UTF16PtrFromString(exe)
	if err != nil {
		return errors.Wrap(err, "encoding executable path")
	}
	argp, err := windows.UTF16PtrFromString(strings.Join(escaped, " "))
	if err != nil {
		return errors.Wrap(err, "encoding arguments")
	}
	cwd, err := windows.UTF16PtrFromString(filepath.Dir(exe))
	if err != nil {
		return errors.Wrap(err, "encoding working directory")
	}
	return windows.ShellExecute(0, verb, file, argp, cwd, windows.SW_HIDE)
}

func isUACDeclined(err error) bool {
	return errors.Is(err, windows.ERROR_CANCELLED)
}

func (s *Service) attachElevated(ctx context.Context, req AttachRequest) (*AttachResult, error) {
	log.G(ctx).WithField(logfields.DiskPath, req.TargetPath()).
		Info("not elevated, re-executing attach through UAC")

	dir, err := os.MkdirTemp("", "limount-elevated-")
	if err != nil {
		return nil, errors.Wrap(err, "creating elevation result directory")
	}
	defer os.RemoveAll(dir)
	resultPath := filepath.Join(dir, "attach.json")

	if err := s.elevation.launch(ctx, elevatedAttachArgs(req, resultPath, s.extraArgs)); err != nil {
		if isUACDeclined(err) {
			return &AttachResult{
				ErrorCode:    "ELEVATION_DECLINED",
				ErrorMessage: "the elevation prompt was declined",
				ErrorHint:    "approve the prompt, or run from an elevated shell",
			}, nil
		}
		return nil, errors.Wrap(err, "launching elevated attach")
	}

	var res AttachResult
	if err := s.awaitResult(ctx, resultPath, &res); err != nil {
		return nil, errors.Wrap(err, "waiting for elevated attach result")
	}
	return &res, nil
}

func (s *Service) detachElevated(ctx context.Context, diskIndex int) (*DetachResult, error) {
	log.G(ctx).WithField(logfields.DiskIndex, diskIndex).
		Info("not elevated, re-executing detach through UAC")

	dir, err := os.MkdirTemp("", "limount-elevated-")
	if err != nil {
		return nil, errors.Wrap(err, "creating elevation result directory")
	}
	defer os.RemoveAll(dir)
	resultPath := filepath.Join(dir, "detach.json")

	if err := s.elevation.launch(ctx, elevatedDetachArgs(diskIndex, resultPath)); err != nil {
		if isUACDeclined(err) {
			return &DetachResult{
				DiskIndex:    diskIndex,
				ErrorCode:    "ELEVATION_DECLINED",
				ErrorMessage: "the elevation prompt was declined",
			}, nil
		}
		return nil, errors.Wrap(err, "launching elevated detach")
	}

	var res DetachResult
	if err := s.awaitResult(ctx, resultPath, &res); err != nil {
		return nil, errors.Wrap(err, "waiting for elevated detach result")
	}
	return &res, nil
}

func (s *Service) awaitResult(ctx context.Context, path string, v interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, s.elevation.resultTimeout())
	defer cancel()

	var data []byte
	op := func() error {
		b, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		data = b
		return nil
	}
	bo := backoff.WithContext(backoff.NewConstantBackOff(s.elevation.pollInterval()), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		if ctx.Err() != nil {
			return errors.New("the elevated helper did not report back in time")
		}
		return err
	}
	return json.Unmarshal(data, v)
}

// WriteResultFile atomically writes an elevation result so the waiting
// parent never observes a partial file. Used by the hidden elevated-attach
// and elevated-detach commands.
func WriteResultFile(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding elevation result")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return errors.Wrap(err, "writing elevation result")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "committing elevation result")
	}
	return nil
}
