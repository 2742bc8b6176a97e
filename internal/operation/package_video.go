package operation

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"catalogd/internal/catalog"
	"catalogd/internal/keys"
	"catalogd/internal/runner"
)

// VideoChoiceKind is the video half of PackageVideo's decision, as named by
// spec.md §4.2: Existing | Transcode(target) | PackageOriginalFile.
type VideoChoiceKind int

const (
	VideoExisting VideoChoiceKind = iota
	VideoTranscode
	VideoPackageOriginal
)

type VideoChoice struct {
	Kind        VideoChoiceKind
	TargetCodec string // only meaningful for VideoTranscode
}

// AudioChoiceKind is the audio half; None means the asset has no audio
// track at all.
type AudioChoiceKind int

const (
	AudioNone AudioChoiceKind = iota
	AudioExisting
	AudioTranscode
	AudioPackageOriginal
)

type AudioChoice struct {
	Kind        AudioChoiceKind
	TargetCodec string // only meaningful for AudioTranscode; defaults to opus (spec.md §4.2)
}

// PackageVideo DASH-packages an asset's video and/or audio track per the
// rules engine's per-track decision (spec.md §4.2). When either choice is
// Existing, the manifest is still regenerated from scratch (e.g. to fold
// in a newly transcoded audio track alongside an already-acceptable video
// track), so ExistingVideoReprs/ExistingAudioReprs carry the media-info
// keys of whichever representations aren't being reproduced by this call -
// mpd_generator is run over every media-info key, new and existing, per
// spec.md §4.2 step 4.
type PackageVideo struct {
	AssetID            catalog.AssetID
	Video              VideoChoice
	Audio              AudioChoice
	ExistingVideoReprs []catalog.VideoRepresentation
	ExistingAudioReprs []catalog.AudioRepresentation
	// MpdOutKey overrides the deterministic dash/{id}/stream.mpd key;
	// empty means use keys.DashManifest(AssetID).
	MpdOutKey string
}

func (PackageVideo) isOperation() {}

// PackagedVideoTrack is the representation row produced for a newly
// packaged or transcoded video track.
type PackagedVideoTrack struct {
	Codec         string
	Width, Height int
	Bitrate       int
	FileKey       string
	MediaInfoKey  string
}

// PackagedAudioTrack is the representation row produced for a newly
// packaged or transcoded audio track.
type PackagedAudioTrack struct {
	Codec        string
	FileKey      string
	MediaInfoKey string
}

// CompletedPackageVideo carries whichever tracks were actually produced;
// nil means that half of the choice was Existing (or None, for audio) and
// Apply must not touch that representation table.
type CompletedPackageVideo struct {
	AssetID     catalog.AssetID
	Video       *PackagedVideoTrack
	Audio       *PackagedAudioTrack
	ManifestKey string
}

func (CompletedPackageVideo) isCompleted() {}

// PerformSideEffects implements spec.md §4.2's three-step packaging
// pipeline: transcode (if requested) each track independently, shaka-package
// both into one DASH set, re-stamp rotation on a directly-packaged original
// video stream (shaka strips side-data), then generate the manifest from
// the resulting .media_info siblings.
func (op PackageVideo) PerformSideEffects(ctx context.Context, d Deps) (CompletedPackageVideo, error) {
	if op.Video.Kind == VideoExisting && op.Audio.Kind != AudioTranscode && op.Audio.Kind != AudioPackageOriginal {
		return CompletedPackageVideo{AssetID: op.AssetID}, nil
	}

	path, err := resolveOriginalPath(ctx, d.Store, op.AssetID)
	if err != nil {
		return CompletedPackageVideo{}, err
	}

	probe, err := d.Caps.FFprobe.Probe(ctx, path)
	if err != nil {
		return CompletedPackageVideo{}, err
	}

	tmpDir, err := os.MkdirTemp("", "catalogd-package-*")
	if err != nil {
		return CompletedPackageVideo{}, err
	}
	defer os.RemoveAll(tmpDir)

	videoSource, audioSource := path, path

	if op.Video.Kind == VideoTranscode {
		out := filepath.Join(tmpDir, "video-transcode.mp4")
		if err := d.Caps.FFmpeg.Transcode(ctx, path, out,
			runner.FFmpegTrackSpec{TargetCodec: op.Video.TargetCodec},
			runner.FFmpegTrackSpec{Copy: true},
		); err != nil {
			return CompletedPackageVideo{}, err
		}
		videoSource = out
	}
	if op.Audio.Kind == AudioTranscode {
		out := filepath.Join(tmpDir, "audio-transcode.mp4")
		if err := d.Caps.FFmpeg.Transcode(ctx, path, out,
			runner.FFmpegTrackSpec{Copy: true},
			runner.FFmpegTrackSpec{TargetCodec: op.Audio.TargetCodec},
		); err != nil {
			return CompletedPackageVideo{}, err
		}
		audioSource = out
	}

	idStr := fmt.Sprint(int64(op.AssetID))
	var streams []runner.StreamSpec
	var localVideoOut, localVideoInfo, localAudioOut, localAudioInfo string
	videoTrackName := keys.DashVideoTrackName(probe.Width, probe.Height)

	packageVideo := op.Video.Kind != VideoExisting
	if packageVideo {
		localVideoOut = filepath.Join(tmpDir, videoTrackName)
		localVideoInfo = localVideoOut + ".media_info"
		streams = append(streams, runner.StreamSpec{Input: videoSource, Stream: "video", Out: localVideoOut, MediaInfoOut: localVideoInfo})
	}

	packageAudio := op.Audio.Kind == AudioTranscode || op.Audio.Kind == AudioPackageOriginal
	if packageAudio {
		localAudioOut = filepath.Join(tmpDir, "audio.mp4")
		localAudioInfo = localAudioOut + ".media_info"
		streams = append(streams, runner.StreamSpec{Input: audioSource, Stream: "audio", Out: localAudioOut, MediaInfoOut: localAudioInfo})
	}

	if len(streams) > 0 {
		if err := d.Caps.Shaka.Package(ctx, streams); err != nil {
			return CompletedPackageVideo{}, err
		}
	}

	// Tracks not being (re)produced by this call still need to appear in
	// the regenerated manifest - fetch their already-packaged media-info
	// siblings down to the same tmpDir so mpd_generator sees every track.
	var existingMediaInfos []string
	if op.Video.Kind == VideoExisting {
		for _, vr := range op.ExistingVideoReprs {
			local, err := downloadToTemp(ctx, d, vr.MediaInfoKey, tmpDir)
			if err != nil {
				return CompletedPackageVideo{}, err
			}
			existingMediaInfos = append(existingMediaInfos, local)
		}
	}
	if op.Audio.Kind == AudioExisting {
		for _, ar := range op.ExistingAudioReprs {
			local, err := downloadToTemp(ctx, d, ar.MediaInfoKey, tmpDir)
			if err != nil {
				return CompletedPackageVideo{}, err
			}
			existingMediaInfos = append(existingMediaInfos, local)
		}
	}

	// shaka strips rotation side-data; a directly-packaged original stream
	// that carried rotation metadata needs it re-stamped back onto the
	// packaged file (spec.md §4.2 step 3).
	if op.Video.Kind == VideoPackageOriginal && probe.RotationDeg != 0 {
		if err := d.Caps.FFmpeg.RestampRotation(ctx, localVideoOut, probe.RotationDeg); err != nil {
			return CompletedPackageVideo{}, err
		}
	}

	result := CompletedPackageVideo{AssetID: op.AssetID}

	if packageVideo {
		finalWidth, finalHeight, finalBitrate, finalCodec := probe.Width, probe.Height, probe.BitRate, probe.VideoCodecName
		if op.Video.Kind == VideoTranscode {
			packaged, err := d.Caps.FFprobe.Probe(ctx, localVideoOut)
			if err != nil {
				return CompletedPackageVideo{}, err
			}
			finalWidth, finalHeight, finalBitrate, finalCodec = packaged.Width, packaged.Height, packaged.BitRate, packaged.VideoCodecName
		}

		trackKey := keys.DashTrack(idStr, keys.DashVideoTrackName(finalWidth, finalHeight))
		mediaInfoKey := keys.MediaInfoSibling(trackKey)
		if err := uploadFile(ctx, d, localVideoOut, trackKey); err != nil {
			return CompletedPackageVideo{}, err
		}
		if err := uploadFile(ctx, d, localVideoInfo, mediaInfoKey); err != nil {
			return CompletedPackageVideo{}, err
		}
		result.Video = &PackagedVideoTrack{Codec: finalCodec, Width: finalWidth, Height: finalHeight, Bitrate: finalBitrate, FileKey: trackKey, MediaInfoKey: mediaInfoKey}
	}

	if packageAudio {
		codec := probe.AudioCodecName
		if op.Audio.Kind == AudioTranscode {
			codec = op.Audio.TargetCodec
		}
		trackKey := keys.DashTrack(idStr, "audio.mp4")
		mediaInfoKey := keys.MediaInfoSibling(trackKey)
		if err := uploadFile(ctx, d, localAudioOut, trackKey); err != nil {
			return CompletedPackageVideo{}, err
		}
		if err := uploadFile(ctx, d, localAudioInfo, mediaInfoKey); err != nil {
			return CompletedPackageVideo{}, err
		}
		result.Audio = &PackagedAudioTrack{Codec: codec, FileKey: trackKey, MediaInfoKey: mediaInfoKey}
	}

	if packageVideo || packageAudio {
		var mediaInfos []string
		if localVideoInfo != "" {
			mediaInfos = append(mediaInfos, localVideoInfo)
		}
		if localAudioInfo != "" {
			mediaInfos = append(mediaInfos, localAudioInfo)
		}
		mediaInfos = append(mediaInfos, existingMediaInfos...)

		localMpd := filepath.Join(tmpDir, "stream.mpd")
		if err := d.Caps.Mpd.Generate(ctx, mediaInfos, localMpd); err != nil {
			return CompletedPackageVideo{}, err
		}
		manifestKey := op.MpdOutKey
		if manifestKey == "" {
			manifestKey = keys.DashManifest(idStr)
		}
		if err := uploadFile(ctx, d, localMpd, manifestKey); err != nil {
			return CompletedPackageVideo{}, err
		}
		result.ManifestKey = manifestKey
	}

	return result, nil
}

// downloadToTemp copies key from storage into a file under dir, named
// after the key's final path segment, returning its local path.
func downloadToTemp(ctx context.Context, d Deps, key, dir string) (string, error) {
	r, err := d.Storage.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", key, err)
	}
	defer r.Close()

	local := filepath.Join(dir, filepath.Base(key))
	f, err := os.Create(local)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("download %s: %w", key, err)
	}
	return local, nil
}

func uploadFile(ctx context.Context, d Deps, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return d.Storage.Put(ctx, key, f)
}

// Apply inserts whichever representation rows were produced and flips
// has_dash when a manifest now exists, all in one transaction (spec.md §3
// invariant: representation presence and has_dash change atomically).
func (op PackageVideo) Apply(ctx context.Context, tx *catalog.Tx, c CompletedPackageVideo) error {
	if c.Video != nil {
		if _, err := tx.InsertVideoRepresentation(ctx, catalog.VideoRepresentation{
			AssetID: c.AssetID, Codec: c.Video.Codec, Width: c.Video.Width, Height: c.Video.Height,
			Bitrate: c.Video.Bitrate, FileKey: c.Video.FileKey, MediaInfoKey: c.Video.MediaInfoKey,
		}); err != nil {
			return err
		}
	}
	if c.Audio != nil {
		if _, err := tx.InsertAudioRepresentation(ctx, catalog.AudioRepresentation{
			AssetID: c.AssetID, Codec: c.Audio.Codec, FileKey: c.Audio.FileKey, MediaInfoKey: c.Audio.MediaInfoKey,
		}); err != nil {
			return err
		}
	}
	if c.ManifestKey != "" {
		if err := tx.SetAssetHasDash(ctx, c.AssetID, true); err != nil {
			return err
		}
	}
	return nil
}
