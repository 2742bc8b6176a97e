// Package rules turns catalog state into the operations that still need to
// run. Each function is pure relative to its inputs (a database connection
// plus a fixed acceptable-codec/format configuration) and keeps no record of
// what it has returned: with no intervening catalog writes, calling it again
// returns the same operations. Grounded on the teacher's per-kind queue dispatch in
// internal/queue/queue_setup.go, generalized from "one River queue per job
// kind, fed by whatever the caller enqueues" into "one pure function per job
// kind that derives its own work list from catalog state".
package rules

import (
	"context"
	"fmt"

	"catalogd/internal/catalog"
	"catalogd/internal/keys"
	"catalogd/internal/operation"
)

// Config is the acceptable-codec/format allow-lists spec.md §7 describes.
// Passed as parameters to the catalog selectors rather than written to
// auxiliary tables (spec.md §8's noted design smell in the original source;
// SPEC_FULL.md's Open Question resolution keeps the rules engine pure by
// threading it through instead).
type Config struct {
	AcceptableVideoCodecs []string
	AcceptableAudioCodecs []string
	AcceptableImageFormats []string
	DefaultAudioTranscodeTarget string // e.g. "opus"
	DefaultVideoTranscodeTarget string // e.g. "av1"
}

// RequiredThumbnails returns one CreateThumbnail per asset still missing any
// of the four thumbnail flags, requesting every kind/format the asset is
// missing in one operation (spec.md §4.2: thumbnails flip all four
// booleans together per apply, so one operation naturally asks for all of
// them rather than issuing four separate ones).
func RequiredThumbnails(ctx context.Context, store *catalog.Store, limit int) ([]operation.CreateThumbnail, error) {
	assets, err := store.GetAssetsWithMissingThumbnail(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("required thumbnails: %w", err)
	}

	var ops []operation.CreateThumbnail
	for _, a := range assets {
		kinds, formats := missingThumbnails(a)
		if len(kinds) == 0 {
			continue
		}
		ops = append(ops, operation.CreateThumbnail{AssetID: a.ID, Kinds: kinds, Formats: formats})
	}
	return ops, nil
}

func missingThumbnails(a catalog.Asset) ([]keys.ThumbnailKind, map[keys.ThumbnailKind][]keys.ImageFormat) {
	var kinds []keys.ThumbnailKind
	formats := map[keys.ThumbnailKind][]keys.ImageFormat{}

	if !a.Thumbnails.SmallAvif || !a.Thumbnails.SmallWebp {
		kinds = append(kinds, keys.SmallSquare)
		if !a.Thumbnails.SmallAvif {
			formats[keys.SmallSquare] = append(formats[keys.SmallSquare], keys.Avif)
		}
		if !a.Thumbnails.SmallWebp {
			formats[keys.SmallSquare] = append(formats[keys.SmallSquare], keys.Webp)
		}
	}
	if !a.Thumbnails.LargeAvif || !a.Thumbnails.LargeWebp {
		kinds = append(kinds, keys.LargeOrigAspect)
		if !a.Thumbnails.LargeAvif {
			formats[keys.LargeOrigAspect] = append(formats[keys.LargeOrigAspect], keys.Avif)
		}
		if !a.Thumbnails.LargeWebp {
			formats[keys.LargeOrigAspect] = append(formats[keys.LargeOrigAspect], keys.Webp)
		}
	}
	return kinds, formats
}

// RequiredImageConversion returns one ConvertImage per image asset whose own
// format isn't acceptable and which has no acceptable ImageRepresentation
// yet (spec.md §4.5).
func RequiredImageConversion(ctx context.Context, store *catalog.Store, cfg Config) ([]operation.ConvertImage, error) {
	assets, err := store.GetImageAssetsWithNoAcceptableRepr(ctx, cfg.AcceptableImageFormats)
	if err != nil {
		return nil, fmt.Errorf("required image conversion: %w", err)
	}

	target := keys.Jpeg
	if len(cfg.AcceptableImageFormats) > 0 {
		target = keys.ImageFormat(cfg.AcceptableImageFormats[0])
	}

	ops := make([]operation.ConvertImage, 0, len(assets))
	for _, a := range assets {
		ops = append(ops, operation.ConvertImage{AssetID: a.ID, Format: target})
	}
	return ops, nil
}

// RequiredVideoPackaging implements spec.md §4.5's three-tier prioritization:
// cheapest first (package the original stream as-is), then videos with no
// acceptable representation at all (must transcode), then videos whose
// codec is acceptable but which carry rotation metadata (must transcode,
// since shaka can't re-stamp rotation on a stream-copied package - spec.md
// §4.2/§9's rotation-forces-transcode rule). A video already covered by an
// earlier tier is never also returned by a later one.
func RequiredVideoPackaging(ctx context.Context, store *catalog.Store, cfg Config) ([]operation.PackageVideo, error) {
	seen := map[catalog.AssetID]bool{}
	var ops []operation.PackageVideo

	cheap, err := store.GetVideosInAcceptableCodecWithoutDash(ctx, cfg.AcceptableVideoCodecs, cfg.AcceptableAudioCodecs)
	if err != nil {
		return nil, fmt.Errorf("required video packaging (package-original tier): %w", err)
	}
	for _, a := range cheap {
		if a.RotationDeg != 0 {
			continue // rotation forces transcode; handled by the rotation tier below
		}
		seen[a.ID] = true
		ops = append(ops, packageOriginalOp(a, cfg))
	}

	needsRepr, err := store.GetVideoAssetsWithNoAcceptableRepr(ctx, cfg.AcceptableVideoCodecs, cfg.AcceptableAudioCodecs)
	if err != nil {
		return nil, fmt.Errorf("required video packaging (no-repr tier): %w", err)
	}
	for _, a := range needsRepr {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		ops = append(ops, transcodeOp(a, cfg))
	}

	for _, a := range cheap {
		if seen[a.ID] || a.RotationDeg == 0 {
			continue
		}
		seen[a.ID] = true
		ops = append(ops, transcodeOp(a, cfg))
	}

	return ops, nil
}

func packageOriginalOp(a catalog.Asset, cfg Config) operation.PackageVideo {
	audio := operation.AudioChoice{Kind: operation.AudioNone}
	if a.Video.AudioCodecName != "" {
		audio = operation.AudioChoice{Kind: operation.AudioPackageOriginal}
	}
	return operation.PackageVideo{
		AssetID: a.ID,
		Video:   operation.VideoChoice{Kind: operation.VideoPackageOriginal},
		Audio:   audio,
	}
}

// transcodeOp always transcodes the video track; the audio track transcodes
// only if its codec isn't already acceptable (spec.md §4.2: "for audio
// transcode target: default to opus when the original codec is outside the
// acceptable set").
func transcodeOp(a catalog.Asset, cfg Config) operation.PackageVideo {
	audio := operation.AudioChoice{Kind: operation.AudioNone}
	if a.Video.AudioCodecName != "" {
		if isAcceptable(a.Video.AudioCodecName, cfg.AcceptableAudioCodecs) {
			audio = operation.AudioChoice{Kind: operation.AudioPackageOriginal}
		} else {
			target := cfg.DefaultAudioTranscodeTarget
			if target == "" {
				target = "opus"
			}
			audio = operation.AudioChoice{Kind: operation.AudioTranscode, TargetCodec: target}
		}
	}

	target := cfg.DefaultVideoTranscodeTarget
	if target == "" {
		target = "av1"
	}
	return operation.PackageVideo{
		AssetID: a.ID,
		Video:   operation.VideoChoice{Kind: operation.VideoTranscode, TargetCodec: target},
		Audio:   audio,
	}
}

func isAcceptable(codec string, acceptable []string) bool {
	for _, c := range acceptable {
		if c == codec {
			return true
		}
	}
	return false
}
