package runner

import "context"

// Prober is the ffprobe capability.
type Prober interface {
	Probe(ctx context.Context, path string) (ProbeResult, error)
}

// Transcoder is the ffmpeg capability PackageVideo drives.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string, video, audio FFmpegTrackSpec) error
	RestampRotation(ctx context.Context, path string, rotationDeg int) error
}

// Packager is the shaka-packager capability.
type Packager interface {
	Package(ctx context.Context, streams []StreamSpec) error
}

// ManifestGenerator is the mpd_generator capability.
type ManifestGenerator interface {
	Generate(ctx context.Context, mediaInfoPaths []string, outPath string) error
}

// Capabilities bundles every runner an operation's PerformSideEffects may
// call, so operation code takes one argument rather than seven. Built once
// at daemon startup from a Paths config. Every field but Exiftool is an
// interface rather than a concrete runner type so internal/operation's
// tests can substitute in-process fakes for subprocess/libvips boundaries
// (spec.md §9) — Exiftool stays concrete since only internal/indexing
// calls it, and that package is exercised directly with real exiftool
// tag maps, never through Capabilities.
type Capabilities struct {
	FFmpeg     Transcoder
	FFprobe    Prober
	Shaka      Packager
	Mpd        ManifestGenerator
	Exiftool   *Exiftool
	Image      ImageCodec
	RawPreview RawPreviewer
}

// NewCapabilities wires every subprocess wrapper from a resolved Paths set.
func NewCapabilities(paths Paths) *Capabilities {
	return &Capabilities{
		FFmpeg:     NewFFmpeg(paths.FFmpeg),
		FFprobe:    NewFFprobe(paths.FFprobe),
		Shaka:      NewShakaPackager(paths.ShakaPackager),
		Mpd:        NewMpdGenerator(paths.MpdGenerator),
		Exiftool:   NewExiftool(paths.Exiftool),
		Image:      NewImageEncoder(),
		RawPreview: NewRawPreviewExtractor(),
	}
}
