package runner

import (
	"context"
	"fmt"
	"os"
)

// FFmpegTrackSpec describes one output track: either a stream copy or a
// transcode to targetCodec, with an optional scale filter.
type FFmpegTrackSpec struct {
	Copy        bool
	TargetCodec string // e.g. "av1", "opus"; ignored if Copy
	Scale       string // "WxH", empty = no scale filter
	Rotation    int    // not read by Transcode; rotation is stamped separately by RestampRotation
}

// FFmpeg runs ffmpeg transcodes and the rotation re-stamp step PackageVideo
// needs when shaka strips stream side-data (spec.md §4.2 step 3).
type FFmpeg struct {
	Path string
}

func NewFFmpeg(path string) *FFmpeg { return &FFmpeg{Path: path} }

// Transcode runs one ffmpeg invocation producing outputPath from inputPath,
// applying video/audio track specs. Used for the "run ffmpeg once to an
// intermediate file" step of PackageVideo.
func (f *FFmpeg) Transcode(ctx context.Context, inputPath, outputPath string, video, audio FFmpegTrackSpec) error {
	args := []string{"-y", "-i", inputPath}

	if video.Copy {
		args = append(args, "-c:v", "copy")
	} else {
		args = append(args, "-c:v", codecEncoderName(video.TargetCodec))
		if video.Scale != "" {
			args = append(args, "-vf", "scale="+video.Scale)
		}
	}
	if audio.Copy {
		args = append(args, "-c:a", "copy")
	} else {
		args = append(args, "-c:a", codecEncoderName(audio.TargetCodec))
	}

	args = append(args, "-movflags", "+faststart", "-threads", "0", outputPath)

	_, err := runCommand(ctx, f.Path, args...)
	return err
}

// RestampRotation re-writes rotation metadata onto a packaged mp4 in place,
// via a stream-copy through a temp file then rename (spec.md §4.2 step 3:
// "pipe the shaka-packager output through ffmpeg to re-stamp the rotation").
func (f *FFmpeg) RestampRotation(ctx context.Context, path string, rotationDeg int) error {
	tmp := path + ".rotate.tmp.mp4"
	_, err := runCommand(ctx, f.Path, "-y", "-i", path,
		"-c", "copy", "-display_rotation", fmt.Sprint(rotationDeg), tmp)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return wrapIoErr("rename restamped file", err)
	}
	return nil
}

// ExtractFrame pulls a single representative frame as JPEG, used for video
// poster/preview thumbnailing ahead of the bimg encode step.
func (f *FFmpeg) ExtractFrame(ctx context.Context, inputPath, outputPath string, atSeconds float64) error {
	_, err := runCommand(ctx, f.Path,
		"-y", "-ss", fmt.Sprintf("%.3f", atSeconds), "-i", inputPath,
		"-vframes", "1", "-q:v", "2", "-f", "mjpeg", outputPath)
	return err
}

// codecEncoderName maps an acceptable-codec-set name to the ffmpeg encoder
// that produces it. Unknown names pass through unchanged (caller already
// validated against the configured acceptable set).
func codecEncoderName(codec string) string {
	switch codec {
	case "av1":
		return "libaom-av1"
	case "h264":
		return "libx264"
	case "vp9":
		return "libvpx-vp9"
	case "opus":
		return "libopus"
	case "aac":
		return "aac"
	case "flac":
		return "flac"
	default:
		return codec
	}
}
