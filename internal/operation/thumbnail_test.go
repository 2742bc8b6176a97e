package operation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"catalogd/internal/keys"
	"catalogd/internal/runner"
)

func TestKindSucceeded(t *testing.T) {
	outcomes := []ThumbnailOutcome{
		{Kind: keys.SmallSquare, Format: keys.Avif, Err: nil},
		{Kind: keys.SmallSquare, Format: keys.Webp, Err: nil},
	}
	require.True(t, kindSucceeded(outcomes, keys.SmallSquare))
	require.False(t, kindSucceeded(outcomes, keys.LargeOrigAspect))

	outcomes[1].Err = errors.New("encode failed")
	require.False(t, kindSucceeded(outcomes, keys.SmallSquare))
}

func TestFormatSucceeded(t *testing.T) {
	outcomes := []ThumbnailOutcome{
		{Kind: keys.SmallSquare, Format: keys.Avif, Err: nil},
		{Kind: keys.SmallSquare, Format: keys.Webp, Err: errors.New("boom")},
	}
	require.True(t, formatSucceeded(outcomes, keys.SmallSquare, keys.Avif))
	require.False(t, formatSucceeded(outcomes, keys.SmallSquare, keys.Webp))
	require.False(t, formatSucceeded(outcomes, keys.LargeOrigAspect, keys.Avif))
}

func TestHasKind(t *testing.T) {
	outcomes := []ThumbnailOutcome{{Kind: keys.SmallSquare}}
	require.True(t, hasKind(outcomes, keys.SmallSquare))
	require.False(t, hasKind(outcomes, keys.LargeOrigAspect))
}

func TestToRunnerFormat(t *testing.T) {
	require.Equal(t, runner.FormatAvif, toRunnerFormat(keys.Avif))
	require.Equal(t, runner.FormatWebp, toRunnerFormat(keys.Webp))
	require.Equal(t, runner.FormatJpeg, toRunnerFormat(keys.Jpeg))
}
