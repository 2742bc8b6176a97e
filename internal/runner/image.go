package runner

import (
	"io"

	"github.com/h2non/bimg"

	"catalogd/internal/catalogerr"
)

// ImageCodec is the in-process image decode/encode capability.
type ImageCodec interface {
	Dimensions(r io.Reader) (width, height int, err error)
	Encode(r io.Reader, opts EncodeOptions) ([]byte, error)
}

// ImageEncoder is the in-process libvips-backed encoder spec.md §6 describes
// as "an in-process function that reads the original and writes to a key".
// Grounded on internal/utils/imaging/process.go's bimg.NewImage/Process
// wrapping.
type ImageEncoder struct{}

func NewImageEncoder() *ImageEncoder { return &ImageEncoder{} }

// EncodeOptions mirrors the bimg options the core's operations need:
// square crop for SmallSquare thumbnails, aspect-preserving resize for
// LargeOrigAspect thumbnails and ConvertImage, target format selection.
type EncodeOptions struct {
	Width, Height int
	Crop          bool // true for SmallSquare (centered smart-crop)
	Format        ImageFormat
	Quality       int
}

type ImageFormat int

const (
	FormatAvif ImageFormat = iota
	FormatWebp
	FormatJpeg
)

func (f ImageFormat) bimgType() bimg.ImageType {
	switch f {
	case FormatAvif:
		return bimg.AVIF
	case FormatWebp:
		return bimg.WEBP
	default:
		return bimg.JPEG
	}
}

// Dimensions reads width/height without a full decode+re-encode.
func (e *ImageEncoder) Dimensions(r io.Reader) (width, height int, err error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return 0, 0, wrapIoErr("read image", err)
	}
	size, err := bimg.NewImage(buf).Size()
	if err != nil {
		return 0, 0, &catalogerr.DecodeError{Source: "image header", Err: err}
	}
	return size.Width, size.Height, nil
}

// Encode reads the full original from r and produces bytes in opts.Format
// at opts.Width/Height, per spec.md §4.2's CreateThumbnail/ConvertImage
// side-effect step.
func (e *ImageEncoder) Encode(r io.Reader, opts EncodeOptions) ([]byte, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapIoErr("read image", err)
	}

	bimgOpts := bimg.Options{
		Width:     opts.Width,
		Height:    opts.Height,
		Crop:      opts.Crop,
		Type:      opts.Format.bimgType(),
		Quality:   opts.Quality,
		NoProfile: true,
	}
	if opts.Crop {
		bimgOpts.Gravity = bimg.GravitySmart
	}

	out, err := bimg.NewImage(buf).Process(bimgOpts)
	if err != nil {
		return nil, &catalogerr.DecodeError{Source: "image encode", Err: err}
	}
	return out, nil
}
