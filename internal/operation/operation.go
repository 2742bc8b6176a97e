// Package operation holds the pure descriptions of the work the rules
// engine dispatches (CreateThumbnail, ConvertImage, PackageVideo) plus the
// two-phase execution discipline spec.md §4.2/§9 requires: PerformSideEffects
// is impure and may read the catalog database but never writes to it; Apply runs inside a
// short catalog transaction and never calls a runner or storage provider.
// Grounded on the teacher's processors/*_task.go staged pipeline shape
// (internal/processors/thumbnail_task.go, transcode_task.go), generalized
// into the tagged-union Operation/Completed pair the spec names explicitly.
package operation

import (
	"context"
	"os"
	"path/filepath"

	"catalogd/internal/catalog"
	"catalogd/internal/runner"
	"catalogd/internal/storage"
)

// Operation is a closed sum type: CreateThumbnail | ConvertImage |
// PackageVideo. The unexported method keeps the set closed to this package.
type Operation interface {
	isOperation()
}

// Completed is the closed sum of side-effect results that Apply consumes.
type Completed interface {
	isCompleted()
}

// Deps bundles everything PerformSideEffects needs: process runners,
// storage, and read-only catalog access. No Deps field is a *catalog.Tx -
// side-effect code never writes to the catalog (spec.md §9's "side-effect
// phase MUST NOT hold a database connection across long-running external
// processes").
type Deps struct {
	Caps    *runner.Capabilities
	Storage storage.Provider
	Store   *catalog.Store
}

// resolveOriginalPath joins an AssetRoot path with an asset's
// path-within-root into the absolute on-disk path.
func resolveOriginalPath(ctx context.Context, store *catalog.Store, id catalog.AssetID) (string, error) {
	root, rel, err := store.GetAssetPathOnDisk(ctx, id)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, rel), nil
}

// openOriginal opens an asset's original file on disk for reading.
func openOriginal(path string) (*os.File, error) {
	return os.Open(path)
}

