package runner

import (
	"context"
	"fmt"
)

// ShakaPackager wraps shaka-packager: one invocation per representation (or
// audio+video pair), producing the .mp4 plus a sibling .media_info
// (spec.md §6).
type ShakaPackager struct {
	Path string
}

func NewShakaPackager(path string) *ShakaPackager { return &ShakaPackager{Path: path} }

// StreamSpec is one packager "stream descriptor" (input=...,stream=...,
// output=...). MediaInfoOut is derived by the caller via internal/keys and
// always sits alongside Out.
type StreamSpec struct {
	Input        string
	Stream       string // "video" or "audio"
	Out          string
	MediaInfoOut string
}

// Package runs shaka-packager over one or more stream descriptors in a
// single invocation, the idiom used when packaging paired video+audio into
// one DASH period.
func (p *ShakaPackager) Package(ctx context.Context, streams []StreamSpec) error {
	args := make([]string, 0, len(streams))
	for _, s := range streams {
		args = append(args, fmt.Sprintf(
			"input=%s,stream=%s,output=%s,output_format=mp4,playback_media_info_file_name=%s",
			s.Input, s.Stream, s.Out, s.MediaInfoOut))
	}
	args = append(args, "--mpd_output", "/dev/null") // manifest generated separately by mpd_generator
	_, err := runCommand(ctx, p.Path, args...)
	return err
}
