package runner

import (
	"context"
	"io"

	"catalogd/internal/catalogerr"
	"catalogd/internal/utils/raw"
)

// RawPreviewer extracts embedded preview images from RAW originals.
type RawPreviewer interface {
	IsRaw(filename string) bool
	ExtractPreview(ctx context.Context, r io.ReadSeeker, filename string) ([]byte, error)
}

// RawPreviewExtractor is a thin adapter over the teacher's RAW processor,
// used as a pre-step of CreateThumbnail: RAW originals get their embedded
// JPEG preview thumbnailed instead of failing to decode directly
// (SPEC_FULL.md §4.3 dropped-feature supplement).
type RawPreviewExtractor struct {
	proc *raw.Processor
}

func NewRawPreviewExtractor() *RawPreviewExtractor {
	return &RawPreviewExtractor{proc: raw.NewProcessor(raw.DefaultProcessingOptions())}
}

// IsRaw reports whether filename's extension marks it as a RAW format.
func (e *RawPreviewExtractor) IsRaw(filename string) bool {
	return raw.IsRAWFile(filename)
}

// ExtractPreview pulls the embedded (or rendered) JPEG preview from a RAW
// file. The reader must support Seek (RAW preview extraction walks the
// container structure).
func (e *RawPreviewExtractor) ExtractPreview(ctx context.Context, r io.ReadSeeker, filename string) ([]byte, error) {
	result, err := e.proc.ProcessRAW(ctx, r, filename)
	if err != nil {
		return nil, &catalogerr.DecodeError{Source: "RAW preview (" + filename + ")", Err: err}
	}
	if len(result.PreviewData) == 0 {
		return nil, &catalogerr.DecodeError{Source: "RAW preview (" + filename + ")", Err: io.ErrUnexpectedEOF}
	}
	return result.PreviewData, nil
}
