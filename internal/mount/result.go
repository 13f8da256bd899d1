package mount

import (
	"time"

	"github.com/becksclair/limount-sub001/internal/access"
)

// Step names the phase of a combined operation that failed. The values are
// stable: they appear in history entries and on the CLI.
type Step string

const (
	// StepNone marks a successful result.
	StepNone Step = ""
	// StepValidation failures happen before any external call is made.
	StepValidation Step = "validation"
	// StepMount is the disk attach through wsl.exe.
	StepMount Step = "mount"
	// StepMap is the creation of the host access surface.
	StepMap Step = "map"
	// StepUnmount is the disk detach.
	StepUnmount Step = "unmount"
	// StepUnmap is the removal of the host access surface.
	StepUnmap Step = "unmap"
)

// Result is the outcome of one combined mount-and-map or
// unmount-and-unmap operation. Exactly one is returned per invocation,
// success or not; a failed result always carries a step and a message.
type Result struct {
	Success    bool `json:"success"`
	FailedStep Step `json:"failedStep,omitempty"`

	ErrorMessage string `json:"errorMessage,omitempty"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorHint    string `json:"errorHint,omitempty"`
	// Diagnostic carries an excerpt of raw helper output on failure.
	Diagnostic string `json:"diagnostic,omitempty"`
	// Warnings collect problems that did not fail the operation: an
	// unrecorded mount, an exhausted host path wait, a normalized unmap
	// quirk. They are surfaced rather than only logged.
	Warnings []string `json:"warnings,omitempty"`

	Mode         access.Mode `json:"mode,omitempty"`
	DriveLetter  string      `json:"driveLetter,omitempty"`
	LocationName string      `json:"locationName,omitempty"`
	Distro       string      `json:"distro,omitempty"`
	GuestPath    string      `json:"guestPath,omitempty"`
	HostPath     string      `json:"hostPath,omitempty"`
	// AlreadyAttached reports that the platform considered the disk
	// attached before this operation.
	AlreadyAttached bool `json:"alreadyAttached,omitempty"`

	When time.Time `json:"when"`
}

func (r *Result) fail(step Step, message string) *Result {
	r.Success = false
	r.FailedStep = step
	r.ErrorMessage = message
	return r
}

func (r *Result) warn(message string) {
	r.Warnings = append(r.Warnings, message)
}

// Display returns the user-facing name of the access surface on a
// successful result, if any.
func (r *Result) Display() string {
	return access.Info{
		Mode:         r.Mode,
		DriveLetter:  r.DriveLetter,
		LocationName: r.LocationName,
	}.Display()
}
