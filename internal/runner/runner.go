// Package runner wraps the subprocess and in-process tools operations use
// to produce derived bytes: ffmpeg, ffprobe, shaka-packager, mpd_generator,
// exiftool, and an in-process libvips image encoder. Every call is async
// with cancellation (context.Context) and returns a structured result or a
// typed catalogerr error; none of these types touch the catalog database.
// Grounded on the teacher's internal/processors/video_helpers.go and
// internal/utils/exif subprocess-wrapping idiom, generalized to the full
// binary set spec.md §6 names.
package runner

import (
	"bytes"
	"context"
	"os/exec"

	"catalogd/internal/catalogerr"
)

// Paths is the configured set of absolute paths (or bare names resolved
// against PATH) for each external binary, per spec.md §6 "Configured set".
type Paths struct {
	FFmpeg        string
	FFprobe       string
	ShakaPackager string
	MpdGenerator  string
	Exiftool      string
}

// DefaultPaths resolves every binary against PATH by its conventional name.
func DefaultPaths() Paths {
	return Paths{
		FFmpeg:        "ffmpeg",
		FFprobe:       "ffprobe",
		ShakaPackager: "packager",
		MpdGenerator:  "mpd_generator",
		Exiftool:      "exiftool",
	}
}

// runCommand runs name with args, capturing stderr for ExternalProcessFailed
// and translating ctx cancellation into catalogerr.Cancelled.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, &catalogerr.Cancelled{Task: name}
	}
	if err != nil {
		exitStatus := -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitStatus = ee.ExitCode()
		}
		return nil, &catalogerr.ExternalProcessFailed{Name: name, ExitStatus: exitStatus, Stderr: stderr.String()}
	}
	return stdout.Bytes(), nil
}

func wrapIoErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &catalogerr.IoError{Op: op, Err: err}
}
