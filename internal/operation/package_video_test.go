package operation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalogd/internal/catalog"
	"catalogd/internal/keys"
	"catalogd/internal/runner"
	"catalogd/internal/storage"
)

// setupTestStore opens a Store against TEST_DATABASE_URL, skipping when
// unset - PerformSideEffects resolves an asset's on-disk path through the
// real catalog store, and there's no in-process fake for that boundary
// (catalog/store_test.go uses the same idiom).
func setupTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}
	require.NoError(t, catalog.Migrate(dsn))
	store, err := catalog.Open(context.Background(), dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

type fakeProber struct {
	result runner.ProbeResult
}

func (f *fakeProber) Probe(ctx context.Context, path string) (runner.ProbeResult, error) {
	return f.result, nil
}

type fakeTranscoder struct{}

func (f *fakeTranscoder) Transcode(ctx context.Context, inputPath, outputPath string, video, audio runner.FFmpegTrackSpec) error {
	return os.WriteFile(outputPath, []byte("transcoded"), 0o644)
}

func (f *fakeTranscoder) RestampRotation(ctx context.Context, path string, rotationDeg int) error {
	return nil
}

type fakePackager struct{}

func (f *fakePackager) Package(ctx context.Context, streams []runner.StreamSpec) error {
	for _, s := range streams {
		if err := os.WriteFile(s.Out, []byte("packaged"), 0o644); err != nil {
			return err
		}
		if err := os.WriteFile(s.MediaInfoOut, []byte("media-info"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

type fakeManifestGenerator struct {
	seenMediaInfos []string
}

func (f *fakeManifestGenerator) Generate(ctx context.Context, mediaInfoPaths []string, outPath string) error {
	f.seenMediaInfos = append([]string{}, mediaInfoPaths...)
	return os.WriteFile(outPath, []byte("mpd"), 0o644)
}

// fakeStorage is an in-memory storage.Provider, standing in for the real
// content-addressed blob sink so tests exercise PackageVideo's upload/
// download calls without a filesystem- or object-store-backed Provider.
type fakeStorage struct {
	blobs map[string][]byte
}

func newFakeStorage() *fakeStorage { return &fakeStorage{blobs: map[string][]byte{}} }

func (s *fakeStorage) Put(ctx context.Context, key string, r io.Reader) error {
	buf, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.blobs[key] = buf
	return nil
}

func (s *fakeStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	buf, ok := s.blobs[key]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(buf)), nil
}

func (s *fakeStorage) Delete(ctx context.Context, key string) error {
	delete(s.blobs, key)
	return nil
}

func (s *fakeStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := s.blobs[key]
	return ok, nil
}

func (s *fakeStorage) Stat(ctx context.Context, key string) (storage.Info, error) {
	return storage.Info{}, nil
}

// TestPackageVideoExistingVideoWithNewAudioRegeneratesManifest exercises
// the case the rules engine doesn't reach yet but the operation's own
// contract must still honor: an audio-only change with an already
// acceptable, unchanged video track. The regenerated manifest must still
// reference the existing video representation's media-info, not just the
// newly produced audio track.
func TestPackageVideoExistingVideoWithNewAudioRegeneratesManifest(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rootDir := t.TempDir()
	rootID, err := store.CreateAssetRoot(ctx, rootDir)
	require.NoError(t, err)

	assetID, err := store.CreateAsset(ctx, catalog.CreateAsset{
		RootID:      rootID,
		Path:        "clip.mp4",
		Kind:        catalog.KindVideo,
		FileType:    "mp4",
		ContentHash: "existing-video-audio-case",
		TakenAt:     time.Now(),
		Timestamp:   catalog.TimestampInfo{Origin: catalog.NoTimestamp},
		Video: &catalog.VideoMeta{
			VideoCodecName: "av1",
			AudioCodecName: "aac",
		},
	})
	require.NoError(t, err)

	idStr := fmt.Sprint(int64(assetID))
	existingVideoInfoKey := keys.MediaInfoSibling(keys.DashTrack(idStr, keys.DashVideoTrackName(1920, 1080)))

	blobStore := newFakeStorage()
	blobStore.blobs[existingVideoInfoKey] = []byte("existing-video-media-info")

	mpd := &fakeManifestGenerator{}
	deps := Deps{
		Caps: &runner.Capabilities{
			FFmpeg:  &fakeTranscoder{},
			FFprobe: &fakeProber{result: runner.ProbeResult{Width: 1920, Height: 1080, VideoCodecName: "av1", AudioCodecName: "aac"}},
			Shaka:   &fakePackager{},
			Mpd:     mpd,
		},
		Storage: blobStore,
		Store:   store,
	}

	op := PackageVideo{
		AssetID: assetID,
		Video:   VideoChoice{Kind: VideoExisting},
		Audio:   AudioChoice{Kind: AudioTranscode, TargetCodec: "opus"},
		ExistingVideoReprs: []catalog.VideoRepresentation{
			{AssetID: assetID, Codec: "av1", Width: 1920, Height: 1080, MediaInfoKey: existingVideoInfoKey},
		},
	}

	completed, err := op.PerformSideEffects(ctx, deps)
	require.NoError(t, err)

	require.Nil(t, completed.Video, "Existing video choice must not produce a new VideoRepresentation")
	require.NotNil(t, completed.Audio)
	require.Equal(t, "opus", completed.Audio.Codec)
	require.NotEmpty(t, completed.ManifestKey)

	require.Len(t, mpd.seenMediaInfos, 2, "manifest must be regenerated from the new audio track plus the existing video track")
}
