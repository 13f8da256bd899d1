//go:build windows

package access

import (
	"context"
	"os"
	"path/filepath"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"

	"github.com/becksclair/limount-sub001/internal/log"
	"github.com/becksclair/limount-sub001/internal/logfields"
)

// A network location is a folder under the profile's Network Shortcuts
// directory marked with the shell's folder-shortcut class and containing a
// target.lnk at the UNC path. Explorer renders it under "This PC".

const networkLocationDesktopINI = "[.ShellClassInfo]\r\n" +
	"CLSID2={0AFACED1-E828-11D1-9187-B532F1E9575D}\r\n" +
	"Flags=2\r\n"

func networkShortcutsDir() (string, error) {
	appdata := os.Getenv("APPDATA")
	if appdata == "" {
		return "", errors.New("APPDATA is not set")
	}
	return filepath.Join(appdata, "Microsoft", "Windows", "Network Shortcuts"), nil
}

func (g *Gateway) createLocation(ctx context.Context, info *Info) (*CreateResult, error) {
	base, err := networkShortcutsDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(base, info.LocationName)
	log.G(ctx).WithFields(logrus.Fields{
		logfields.Location: info.LocationName,
		logfields.HostPath: info.HostPath,
	}).Debug("creating network location")

	if err := os.MkdirAll(dir, 0755); err != nil {
		return &CreateResult{ErrorMessage: err.Error()}, nil
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	ini := filepath.Join(dir, "desktop.ini")
	if err := os.WriteFile(ini, []byte(networkLocationDesktopINI), 0644); err != nil {
		cleanup()
		return &CreateResult{ErrorMessage: err.Error()}, nil
	}
	if err := setAttributes(ini, windows.FILE_ATTRIBUTE_HIDDEN|windows.FILE_ATTRIBUTE_SYSTEM); err != nil {
		cleanup()
		return &CreateResult{ErrorMessage: err.Error()}, nil
	}
	// The read-only bit on the folder is what makes Explorer honor
	// desktop.ini.
	if err := setAttributes(dir, windows.FILE_ATTRIBUTE_READONLY); err != nil {
		cleanup()
		return &CreateResult{ErrorMessage: err.Error()}, nil
	}
	if err := writeShortcut(filepath.Join(dir, "target.lnk"), info.HostPath); err != nil {
		cleanup()
		return &CreateResult{
			ErrorMessage: err.Error(),
			FailedHint:   "the shell scripting host is unavailable; use drive-letter mode instead",
		}, nil
	}
	return &CreateResult{Success: true, Info: info}, nil
}

func (g *Gateway) removeLocation(ctx context.Context, info Info) (*RemoveResult, error) {
	base, err := networkShortcutsDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(base, info.LocationName)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.G(ctx).WithField(logfields.Location, info.LocationName).
			Info("network location was already gone")
		return &RemoveResult{Success: true}, nil
	}
	// RemoveAll refuses read-only directories; clear the bit first.
	_ = setAttributes(dir, windows.FILE_ATTRIBUTE_NORMAL)
	if err := os.RemoveAll(dir); err != nil {
		return &RemoveResult{ErrorMessage: err.Error()}, nil
	}
	return &RemoveResult{Success: true}, nil
}

func setAttributes(path string, attrs uint32) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	return windows.SetFileAttributes(p, attrs)
}

// CoInitializeEx returns S_FALSE when COM was already initialized on the
// thread, which go-ole surfaces as an error.
const comAlreadyInitialized = 1

// writeShortcut creates a .lnk through the WScript.Shell automation object,
// the only stable way to produce one without reimplementing the format.
func writeShortcut(path, target string) error {
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) || oleErr.Code() != comAlreadyInitialized {
			return errors.Wrap(err, "initializing COM")
		}
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WScript.Shell")
	if err != nil {
		return errors.Wrap(err, "creating WScript.Shell")
	}
	defer unknown.Release()
	shell, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return errors.Wrap(err, "querying IDispatch")
	}
	defer shell.Release()

	sc, err := oleutil.CallMethod(shell, "CreateShortcut", path)
	if err != nil {
		return errors.Wrap(err, "creating shortcut object")
	}
	lnk := sc.ToIDispatch()
	defer lnk.Release()

	if _, err := oleutil.PutProperty(lnk, "TargetPath", target); err != nil {
		return errors.Wrap(err, "setting shortcut target")
	}
	if _, err := oleutil.CallMethod(lnk, "Save"); err != nil {
		return errors.Wrap(err, "saving shortcut")
	}
	return nil
}
