package rules

import (
	"testing"

	"github.com/stretchr/testify/require"

	"catalogd/internal/catalog"
	"catalogd/internal/keys"
	"catalogd/internal/operation"
)

func TestMissingThumbnailsAllMissing(t *testing.T) {
	a := catalog.Asset{ID: 1}
	kinds, formats := missingThumbnails(a)
	require.ElementsMatch(t, []keys.ThumbnailKind{keys.SmallSquare, keys.LargeOrigAspect}, kinds)
	require.ElementsMatch(t, []keys.ImageFormat{keys.Avif, keys.Webp}, formats[keys.SmallSquare])
	require.ElementsMatch(t, []keys.ImageFormat{keys.Avif, keys.Webp}, formats[keys.LargeOrigAspect])
}

func TestMissingThumbnailsPartial(t *testing.T) {
	a := catalog.Asset{ID: 1, Thumbnails: catalog.ThumbnailState{
		SmallAvif: true, SmallWebp: true, LargeAvif: true, LargeWebp: false,
	}}
	kinds, formats := missingThumbnails(a)
	require.Equal(t, []keys.ThumbnailKind{keys.LargeOrigAspect}, kinds)
	require.Equal(t, []keys.ImageFormat{keys.Webp}, formats[keys.LargeOrigAspect])
}

func TestMissingThumbnailsNoneMissing(t *testing.T) {
	a := catalog.Asset{ID: 1, Thumbnails: catalog.ThumbnailState{
		SmallAvif: true, SmallWebp: true, LargeAvif: true, LargeWebp: true,
	}}
	kinds, _ := missingThumbnails(a)
	require.Empty(t, kinds)
}

func TestIsAcceptable(t *testing.T) {
	require.True(t, isAcceptable("av1", []string{"av1", "vp9"}))
	require.False(t, isAcceptable("h265", []string{"av1", "vp9"}))
}

func TestPackageOriginalOpNoAudio(t *testing.T) {
	a := catalog.Asset{ID: 7, Video: &catalog.VideoMeta{}}
	op := packageOriginalOp(a, Config{})
	require.Equal(t, catalog.AssetID(7), op.AssetID)
	require.Equal(t, operation.VideoPackageOriginal, op.Video.Kind)
	require.Equal(t, operation.AudioNone, op.Audio.Kind)
}

func TestPackageOriginalOpWithAudio(t *testing.T) {
	a := catalog.Asset{ID: 7, Video: &catalog.VideoMeta{AudioCodecName: "aac"}}
	op := packageOriginalOp(a, Config{})
	require.Equal(t, operation.AudioPackageOriginal, op.Audio.Kind)
}

func TestTranscodeOpAudioAcceptable(t *testing.T) {
	a := catalog.Asset{ID: 3, Video: &catalog.VideoMeta{AudioCodecName: "opus"}}
	cfg := Config{AcceptableAudioCodecs: []string{"opus"}, DefaultVideoTranscodeTarget: "av1"}
	op := transcodeOp(a, cfg)
	require.Equal(t, operation.VideoTranscode, op.Video.Kind)
	require.Equal(t, "av1", op.Video.TargetCodec)
	require.Equal(t, operation.AudioPackageOriginal, op.Audio.Kind)
}

func TestTranscodeOpAudioNeedsTranscode(t *testing.T) {
	a := catalog.Asset{ID: 3, Video: &catalog.VideoMeta{AudioCodecName: "mp3"}}
	cfg := Config{AcceptableAudioCodecs: []string{"opus"}}
	op := transcodeOp(a, cfg)
	require.Equal(t, operation.AudioTranscode, op.Audio.Kind)
	require.Equal(t, "opus", op.Audio.TargetCodec)
}

func TestTranscodeOpDefaultsWhenConfigEmpty(t *testing.T) {
	a := catalog.Asset{ID: 3, Video: &catalog.VideoMeta{}}
	op := transcodeOp(a, Config{})
	require.Equal(t, "av1", op.Video.TargetCodec)
	require.Equal(t, operation.AudioNone, op.Audio.Kind)
}
