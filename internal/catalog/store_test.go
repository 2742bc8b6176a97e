package catalog

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupTestStore opens a Store against TEST_DATABASE_URL, migrating it
// first. Skipped when that variable is unset - these exercise a real
// Postgres connection and have no in-process fake to substitute.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}

	require.NoError(t, Migrate(dsn))
	store, err := Open(context.Background(), dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestCreateAndListAssetRoots(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	id, err := store.CreateAssetRoot(ctx, "/photos/vacation-2026")
	require.NoError(t, err)
	require.NotZero(t, id)

	roots, err := store.ListAssetRoots(ctx)
	require.NoError(t, err)

	var found bool
	for _, r := range roots {
		if r.ID == id {
			found = true
			require.Equal(t, "/photos/vacation-2026", r.Path)
		}
	}
	require.True(t, found, "created asset root must appear in ListAssetRoots")
}

func TestAssetOrDuplicateWithPathExistsUnknownPath(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rootID, err := store.CreateAssetRoot(ctx, "/photos/exists-check")
	require.NoError(t, err)

	exists, err := store.AssetOrDuplicateWithPathExists(ctx, rootID, "never/seen/before.jpg")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestCreateAssetAndFetchByHash(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rootID, err := store.CreateAssetRoot(ctx, "/photos/hash-check")
	require.NoError(t, err)

	id, err := store.CreateAsset(ctx, CreateAsset{
		RootID:      rootID,
		Path:        "2026/01/img_0001.jpg",
		Kind:        KindImage,
		FileType:    "jpg",
		ContentHash: "deadbeefcafef00d",
		Timestamp:   TimestampInfo{Origin: NoTimestamp},
		Width:       4000,
		Height:      3000,
		Image:       &ImageMeta{FormatName: "jpeg"},
	})
	require.NoError(t, err)

	found, ok, err := store.GetAssetWithHash(ctx, "deadbeefcafef00d")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, id, found.ID)
	require.Equal(t, KindImage, found.Kind)
}
