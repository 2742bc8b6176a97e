// Package keys encodes and decodes the storage key grammar fixed by
// SPEC_FULL.md §6. Changing these breaks existing catalogs, so every
// operation resolves its output keys through this package rather than
// building path strings ad hoc.
package keys

import "fmt"

// ThumbnailKind distinguishes the two thumbnail aspect modes.
type ThumbnailKind int

const (
	SmallSquare ThumbnailKind = iota
	LargeOrigAspect
)

// ImageFormat is a thumbnail or image-representation output format.
type ImageFormat string

const (
	Avif ImageFormat = "avif"
	Webp ImageFormat = "webp"
	Jpeg ImageFormat = "jpg"
)

// Thumbnail returns thumb/{assetID}{_sm|}.{ext}.
func Thumbnail(assetID string, kind ThumbnailKind, format ImageFormat) string {
	suffix := ""
	if kind == SmallSquare {
		suffix = "_sm"
	}
	return fmt.Sprintf("thumb/%s%s.%s", assetID, suffix, format)
}

// Image returns image/{assetID}[_{scale}x].{ext}. scale == 0 means no scale
// suffix (original-resolution representation).
func Image(assetID string, scale int, format ImageFormat) string {
	if scale <= 0 {
		return fmt.Sprintf("image/%s.%s", assetID, format)
	}
	return fmt.Sprintf("image/%s_%dx.%s", assetID, scale, format)
}

// DashDir returns dash/{assetID}/.
func DashDir(assetID string) string {
	return fmt.Sprintf("dash/%s", assetID)
}

// DashManifest returns dash/{assetID}/stream.mpd.
func DashManifest(assetID string) string {
	return fmt.Sprintf("%s/stream.mpd", DashDir(assetID))
}

// DashTrack returns dash/{assetID}/{file}, e.g. for a "1920x1080.mp4" or
// "audio.mp4" track plus its sibling ".media_info".
func DashTrack(assetID, file string) string {
	return fmt.Sprintf("%s/%s", DashDir(assetID), file)
}

// DashVideoTrackName returns the conventional {width}x{height}.mp4 track
// filename for a packaged video representation.
func DashVideoTrackName(width, height int) string {
	return fmt.Sprintf("%dx%d.mp4", width, height)
}

// MediaInfoSibling returns the shaka-packager .media_info path for a track
// file key (e.g. dash/{id}/audio.mp4 -> dash/{id}/audio.mp4.media_info).
func MediaInfoSibling(trackKey string) string {
	return trackKey + ".media_info"
}
