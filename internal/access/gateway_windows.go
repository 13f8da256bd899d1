//go:build windows

package access

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/becksclair/limount-sub001/internal/log"
	"github.com/becksclair/limount-sub001/internal/logfields"
	"github.com/becksclair/limount-sub001/internal/otelutil"
)

// Gateway creates and removes access surfaces on the live system: drive
// letters through net.exe, network locations through the shell.
type Gateway struct {
	netPath string
}

func NewGateway() *Gateway {
	return &Gateway{netPath: defaultNetPath()}
}

func defaultNetPath() string {
	if root := os.Getenv("SystemRoot"); root != "" {
		p := filepath.Join(root, "System32", "net.exe")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "net.exe"
}

// Create builds the requested access surface. Helper-reported failures come
// back as a populated result; the error return is for launch failures only.
func (g *Gateway) Create(ctx context.Context, req CreateRequest) (_ *CreateResult, err error) {
	ctx, span := otelutil.StartSpan(ctx, "access::Create")
	defer span.End()
	defer func() { otelutil.SetSpanStatus(span, err) }()

	info := &Info{
		Mode:      req.Mode,
		HostPath:  req.HostPath,
		DiskIndex: req.DiskIndex,
		Partition: req.Partition,
	}
	switch req.Mode {
	case ModeNone:
		return &CreateResult{Success: true, Info: info}, nil
	case ModeDriveLetter:
		letter, lerr := NormalizeLetter(req.DriveLetter)
		if lerr != nil {
			return &CreateResult{ErrorMessage: lerr.Error()}, nil
		}
		info.DriveLetter = letter
		return g.mapDrive(ctx, info)
	case ModeNetworkLocation:
		info.LocationName = req.LocationName
		if info.LocationName == "" {
			info.LocationName = DefaultLocationName(req.DiskIndex, req.Partition)
		}
		return g.createLocation(ctx, info)
	}
	return nil, errors.Errorf("unknown access mode %q", req.Mode)
}

// Remove tears down a previously created surface. Removal of a surface that
// no longer exists is success.
func (g *Gateway) Remove(ctx context.Context, info Info) (_ *RemoveResult, err error) {
	ctx, span := otelutil.StartSpan(ctx, "access::Remove")
	defer span.End()
	defer func() { otelutil.SetSpanStatus(span, err) }()

	switch info.Mode {
	case ModeNone:
		return &RemoveResult{Success: true}, nil
	case ModeDriveLetter:
		return g.unmapDrive(ctx, info)
	case ModeNetworkLocation:
		return g.removeLocation(ctx, info)
	}
	return nil, errors.Errorf("unknown access mode %q", info.Mode)
}

func (g *Gateway) mapDrive(ctx context.Context, info *Info) (*CreateResult, error) {
	// /persistent:no keeps the mapping out of the profile; reconnection
	// after reboot is the reconciler's call, not the shell's.
	out, exit, err := g.runNet(ctx, "use", info.DriveLetter+":", info.HostPath, "/persistent:no")
	if err != nil {
		return nil, err
	}
	if exit != 0 {
		msg := firstLine(out)
		log.G(ctx).WithFields(logrus.Fields{
			logfields.DriveLetter: info.DriveLetter,
			logfields.ExitCode:    exit,
		}).Warn("drive mapping failed")
		return &CreateResult{
			ErrorMessage: msg,
			FailedHint:   mapHint(out),
		}, nil
	}
	return &CreateResult{Success: true, Info: info}, nil
}

func (g *Gateway) unmapDrive(ctx context.Context, info Info) (*RemoveResult, error) {
	out, exit, err := g.runNet(ctx, "use", info.DriveLetter+":", "/delete", "/y")
	if err != nil {
		return nil, err
	}
	res := &RemoveResult{ExitCode: exit}
	switch {
	case exit == 0:
		res.Success = true
	case isNotMapped(out):
		// Nothing to delete means the surface is already gone.
		log.G(ctx).WithField(logfields.DriveLetter, info.DriveLetter).
			Info("drive letter was not mapped")
		res.Success = true
	default:
		res.ErrorMessage = firstLine(out)
		res.FailedHint = unmapHint(out)
		log.G(ctx).WithFields(logrus.Fields{
			logfields.DriveLetter: info.DriveLetter,
			logfields.ExitCode:    exit,
		}).Warn("drive unmapping failed")
	}
	return res, nil
}

// net.exe phrases outcomes in localized prose; these markers only fire on
// English systems and exist to improve hints, not to decide success.
func isNotMapped(out string) bool {
	return containsFold(out, "connection could not be found") ||
		containsFold(out, "2250")
}

func mapHint(out string) string {
	switch {
	case containsFold(out, "local device name is already in use"), containsFold(out, "85"):
		return "the drive letter is taken; pick another with --letter"
	case containsFold(out, "access is denied"):
		return "mapping drives into an elevated session does not affect the normal one; run unelevated"
	case containsFold(out, "network path was not found"), containsFold(out, "53"):
		return "the mount's network path is not reachable yet; retry in a moment"
	}
	return ""
}

func unmapHint(out string) string {
	if containsFold(out, "open files") || containsFold(out, "2401") {
		return "close programs using the drive and retry"
	}
	return ""
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func firstLine(out string) string {
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return ""
}

func (g *Gateway) runNet(ctx context.Context, args ...string) (string, int, error) {
	cmd := exec.CommandContext(ctx, g.netPath, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	start := time.Now()
	runErr := cmd.Run()
	out := strings.ReplaceAll(buf.String(), "\r\n", "\n")

	exit := 0
	if runErr != nil {
		if ctx.Err() != nil {
			return "", -1, ctx.Err()
		}
		var ee *exec.ExitError
		if !errors.As(runErr, &ee) {
			return "", -1, errors.Wrapf(runErr, "launching %s", g.netPath)
		}
		exit = ee.ExitCode()
	}
	log.G(ctx).WithFields(logrus.Fields{
		logfields.Command:  g.netPath + " " + strings.Join(args, " "),
		logfields.ExitCode: exit,
		logfields.Duration: time.Since(start),
	}).Debug("net.exe completed")
	return out, exit, nil
}
