package operation

import (
	"bytes"
	"context"
	"fmt"

	"catalogd/internal/catalog"
	"catalogd/internal/keys"
	"catalogd/internal/runner"
)

// ConvertImage encodes an asset's original into an alternative format, at
// full resolution or a named scale, and uploads it to image/{id}[_{n}x].ext
// (spec.md §4.2).
type ConvertImage struct {
	AssetID catalog.AssetID
	Format  keys.ImageFormat
	Scale   int // 0 = original resolution
}

func (ConvertImage) isOperation() {}

// CompletedConvertImage carries the encoded representation's final
// dimensions and byte size for Apply's ImageRepresentation insert.
type CompletedConvertImage struct {
	AssetID  catalog.AssetID
	Format   keys.ImageFormat
	Width    int
	Height   int
	ByteSize int64
	FileKey  string
}

func (CompletedConvertImage) isCompleted() {}

// PerformSideEffects reads the original, encodes it into op.Format at
// op.Scale, and uploads the result.
func (op ConvertImage) PerformSideEffects(ctx context.Context, d Deps) (CompletedConvertImage, error) {
	path, err := resolveOriginalPath(ctx, d.Store, op.AssetID)
	if err != nil {
		return CompletedConvertImage{}, err
	}

	source, err := loadThumbnailSource(ctx, d, path)
	if err != nil {
		return CompletedConvertImage{}, err
	}

	srcWidth, srcHeight, err := d.Caps.Image.Dimensions(bytes.NewReader(source))
	if err != nil {
		return CompletedConvertImage{}, err
	}

	opts := runner.EncodeOptions{Format: toRunnerFormat(op.Format)}
	width, height := srcWidth, srcHeight
	if op.Scale > 0 && srcWidth > 0 {
		width = op.Scale
		height = height * op.Scale / srcWidth
		opts.Width, opts.Height = width, height
	}

	encoded, err := d.Caps.Image.Encode(bytes.NewReader(source), opts)
	if err != nil {
		return CompletedConvertImage{}, err
	}

	idStr := fmt.Sprint(int64(op.AssetID))
	key := keys.Image(idStr, op.Scale, op.Format)
	if err := d.Storage.Put(ctx, key, bytes.NewReader(encoded)); err != nil {
		return CompletedConvertImage{}, err
	}

	return CompletedConvertImage{
		AssetID: op.AssetID, Format: op.Format, Width: width, Height: height,
		ByteSize: int64(len(encoded)), FileKey: key,
	}, nil
}

// Apply inserts the derived ImageRepresentation row.
func (op ConvertImage) Apply(ctx context.Context, tx *catalog.Tx, c CompletedConvertImage) error {
	_, err := tx.InsertImageRepresentation(ctx, catalog.ImageRepresentation{
		AssetID:  c.AssetID,
		Format:   string(c.Format),
		Width:    c.Width,
		Height:   c.Height,
		ByteSize: c.ByteSize,
		FileKey:  c.FileKey,
	})
	return err
}
