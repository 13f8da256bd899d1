//go:build windows

package wsl2

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/blang/semver/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"

	"github.com/becksclair/limount-sub001/internal/log"
	"github.com/becksclair/limount-sub001/internal/logfields"
	"github.com/becksclair/limount-sub001/internal/otelutil"
	"github.com/becksclair/limount-sub001/osversion"
)

// Config configures a Service.
type Config struct {
	// Distro overrides the default distribution used for host paths and
	// guest commands.
	Distro string
	// WSLPath overrides the wsl.exe location. Empty resolves the System32
	// copy, falling back to PATH.
	WSLPath string
	// ExtraMountArgs are appended verbatim to every attach invocation.
	ExtraMountArgs []string
	// Elevation enables transparent re-execution through UAC when the
	// process lacks administrator rights. Nil fails such calls instead.
	Elevation *ElevationConfig
}

// Service runs attach and detach operations through wsl.exe and answers
// inspection queries by executing commands inside the guest.
type Service struct {
	distro    string
	wslPath   string
	extraArgs []string
	elevation *ElevationConfig

	mu             sync.Mutex
	resolvedDistro string
}

func NewService(cfg *Config) *Service {
	if cfg == nil {
		cfg = &Config{}
	}
	wslPath := cfg.WSLPath
	if wslPath == "" {
		wslPath = defaultWSLPath()
	}
	return &Service{
		distro:    cfg.Distro,
		wslPath:   wslPath,
		extraArgs: cfg.ExtraMountArgs,
		elevation: cfg.Elevation,
	}
}

func defaultWSLPath() string {
	if root := os.Getenv("SystemRoot"); root != "" {
		p := filepath.Join(root, "System32", "wsl.exe")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "wsl.exe"
}

// IsElevated reports whether the current process runs with administrator
// rights.
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// Attach attaches a disk to the utility VM and, unless the request is bare,
// mounts it under /mnt/wsl. A platform report that the disk was attached
// before the call is normalized to success with AlreadyAttached set.
//
// When the process is not elevated and elevation is configured, the
// operation transparently re-executes through UAC.
func (s *Service) Attach(ctx context.Context, req AttachRequest) (_ *AttachResult, err error) {
	ctx, span := otelutil.StartSpan(ctx, "wsl2::Attach")
	defer span.End()
	defer func() { otelutil.SetSpanStatus(span, err) }()

	if res := s.checkSupport(ctx, req); res != nil {
		return res, nil
	}
	if !IsElevated() {
		if s.elevation != nil {
			return s.attachElevated(ctx, req)
		}
		return &AttachResult{
			ErrorCode:    "E_ACCESSDENIED",
			ErrorMessage: "attaching disks requires administrator rights",
			ErrorHint:    HintFor("E_ACCESSDENIED"),
		}, nil
	}
	return s.attach(ctx, req)
}

func (s *Service) attach(ctx context.Context, req AttachRequest) (*AttachResult, error) {
	out, exit, err := s.runWSL(ctx, attachArgs(req, s.extraArgs)...)
	if err != nil {
		return nil, err
	}
	if exit == 0 {
		return s.attachSuccess(ctx, req), nil
	}
	if IsAlreadyAttached(out) {
		log.G(ctx).WithField(logfields.DiskPath, req.TargetPath()).
			Info("disk was already attached")
		res := s.attachSuccess(ctx, req)
		res.AlreadyAttached = true
		return res, nil
	}
	code := ExtractErrorCode(out)
	log.G(ctx).WithFields(logrus.Fields{
		logfields.DiskPath:  req.TargetPath(),
		logfields.ExitCode:  exit,
		logfields.ErrorCode: code,
	}).Warn("attach failed")
	return &AttachResult{
		ErrorCode:    code,
		ErrorMessage: FirstLine(out),
		ErrorHint:    HintFor(code),
		Diagnostic:   Excerpt(out, 240),
	}, nil
}

func (s *Service) attachSuccess(ctx context.Context, req AttachRequest) *AttachResult {
	res := &AttachResult{Success: true}
	if req.Bare {
		return res
	}
	res.Distro = req.Distro
	if res.Distro == "" {
		res.Distro = s.ResolveDistro(ctx)
	}
	res.GuestPath = guestMountRoot + "/" + MountNameFor(req.TargetPath(), req.Partition)
	if res.Distro != "" {
		res.HostPath = HostPath(res.Distro, res.GuestPath)
		// One quick probe only; the path often takes a moment to become
		// enumerable and callers poll for it themselves.
		if fi, err := os.Stat(res.HostPath); err == nil && fi.IsDir() {
			res.HostPathVerified = true
		}
	}
	return res
}

// Detach removes a disk from the utility VM. A platform report that the disk
// was not attached is normalized to success with NotAttached set.
func (s *Service) Detach(ctx context.Context, diskIndex int) (_ *DetachResult, err error) {
	ctx, span := otelutil.StartSpan(ctx, "wsl2::Detach")
	defer span.End()
	defer func() { otelutil.SetSpanStatus(span, err) }()

	if !IsElevated() {
		if s.elevation != nil {
			return s.detachElevated(ctx, diskIndex)
		}
		return &DetachResult{
			DiskIndex:    diskIndex,
			ErrorCode:    "E_ACCESSDENIED",
			ErrorMessage: "detaching disks requires administrator rights",
		}, nil
	}
	return s.detach(ctx, diskIndex)
}

func (s *Service) detach(ctx context.Context, diskIndex int) (*DetachResult, error) {
	out, exit, err := s.runWSL(ctx, detachArgs(diskIndex)...)
	if err != nil {
		return nil, err
	}
	res := &DetachResult{DiskIndex: diskIndex}
	switch {
	case exit == 0:
		res.Success = true
	case IsNotAttached(out):
		log.G(ctx).WithField(logfields.DiskIndex, diskIndex).
			Info("disk was not attached")
		res.Success = true
		res.NotAttached = true
	default:
		res.ErrorCode = ExtractErrorCode(out)
		res.ErrorMessage = FirstLine(out)
		log.G(ctx).WithFields(logrus.Fields{
			logfields.DiskIndex: diskIndex,
			logfields.ExitCode:  exit,
			logfields.ErrorCode: res.ErrorCode,
		}).Warn("detach failed")
	}
	return res, nil
}

// checkSupport gates attach on platform capability, reporting unsupported
// configurations as typed failures before wsl.exe is invoked.
func (s *Service) checkSupport(ctx context.Context, req AttachRequest) *AttachResult {
	if build := osversion.Build(); build < osversion.MinDiskMountBuild {
		return &AttachResult{
			ErrorCode:    "UNSUPPORTED_BUILD",
			ErrorMessage: "this Windows build cannot attach disks to WSL2",
			ErrorHint:    "disk mounting needs Windows 11 or a Store install of WSL (wsl --update)",
		}
	}
	if req.VHDPath != "" {
		v, ok := s.storeVersion(ctx)
		if !ok || v.LT(minVHDVersion) {
			return &AttachResult{
				ErrorCode:    "VHD_UNSUPPORTED",
				ErrorMessage: "this WSL release cannot mount VHD files",
				ErrorHint:    "update to the Store release of WSL with wsl --update",
			}
		}
	}
	return nil
}

// storeVersion reports the Store WSL release, or false on inbox WSL where
// the --version flag does not exist.
func (s *Service) storeVersion(ctx context.Context) (v semver.Version, ok bool) {
	out, exit, err := s.runWSL(ctx, "--version")
	if err != nil || exit != 0 {
		return v, false
	}
	return ParseWSLVersion(out)
}

// ResolveDistro returns the distribution host paths go through: the
// configured one, or the platform default. The result is cached.
func (s *Service) ResolveDistro(ctx context.Context) string {
	if s.distro != "" {
		return s.distro
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolvedDistro != "" {
		return s.resolvedDistro
	}
	out, exit, err := s.runWSL(ctx, "--list", "--quiet")
	if err != nil || exit != 0 {
		log.G(ctx).WithError(err).WithField(logfields.ExitCode, exit).
			Warn("could not list distributions")
		return ""
	}
	// The default distribution is listed first.
	for _, line := range strings.Split(out, "\n") {
		if d := strings.TrimSpace(line); d != "" {
			s.resolvedDistro = d
			return d
		}
	}
	return ""
}

// runWSL executes wsl.exe and returns its decoded combined output and exit
// code. The error return is reserved for launch failures and cancellation.
func (s *Service) runWSL(ctx context.Context, args ...string) (string, int, error) {
	cmd := exec.CommandContext(ctx, s.wslPath, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	start := time.Now()
	runErr := cmd.Run()
	out := DecodeOutput(buf.Bytes())

	exit := 0
	if runErr != nil {
		if ctx.Err() != nil {
			return "", -1, ctx.Err()
		}
		var ee *exec.ExitError
		if !errors.As(runErr, &ee) {
			return "", -1, errors.Wrapf(runErr, "launching %s", s.wslPath)
		}
		exit = ee.ExitCode()
	}
	log.G(ctx).WithFields(logrus.Fields{
		logfields.Command:  s.wslPath + " " + strings.Join(args, " "),
		logfields.ExitCode: exit,
		logfields.Duration: time.Since(start),
	}).Debug("wsl.exe completed")
	return out, exit, nil
}
