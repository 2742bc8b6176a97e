package indexing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"catalogd/internal/catalog"
	"catalogd/internal/runner"
)

func TestExtensionTag(t *testing.T) {
	require.Equal(t, "jpg", extensionTag("albums/2024/IMG_0001.JPG"))
	require.Equal(t, "", extensionTag("no_extension"))
}

func TestFormatNameFromMIME(t *testing.T) {
	require.Equal(t, "jpeg", formatNameFromMIME("image/jpeg"))
	require.Equal(t, "heic", formatNameFromMIME("image/heic; charset=binary"))
}

func TestResolveGPSBothTagsPresent(t *testing.T) {
	tags := runner.ExifTags{"GPSLatitude": "37.7749", "GPSLongitude": "-122.4194"}
	gps := resolveGPS(tags)
	require.NotNil(t, gps)
	require.InDelta(t, 37.7749, gps.Lat, 1e-6)
	require.InDelta(t, -122.4194, gps.Lng, 1e-6)
}

func TestResolveGPSMissingTag(t *testing.T) {
	require.Nil(t, resolveGPS(runner.ExifTags{"GPSLatitude": "1.0"}))
	require.Nil(t, resolveGPS(runner.ExifTags{}))
}

func TestResolveTimestampExplicitOffset(t *testing.T) {
	tags := runner.ExifTags{
		"DateTimeOriginal":   "2024:03:05 14:02:00",
		"OffsetTimeOriginal": "-07:00",
	}
	info, taken := resolveTimestamp(tags, time.Now)
	require.Equal(t, catalog.TzCertain, info.Origin)
	require.Equal(t, -7*60, info.TZOffsetMin)
	require.Equal(t, 2024, taken.Year())
}

func TestResolveTimestampUTCCertainQuicktime(t *testing.T) {
	tags := runner.ExifTags{
		"CreateDate": "2024:03:05 14:02:00",
		"MIMEType":   "video/quicktime",
	}
	info, taken := resolveTimestamp(tags, time.Now)
	require.Equal(t, catalog.UtcCertain, info.Origin)
	require.Equal(t, 14, taken.Hour())
}

func TestResolveTimestampNoUsableTag(t *testing.T) {
	fixedNow := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	info, taken := resolveTimestamp(runner.ExifTags{}, func() time.Time { return fixedNow })
	require.Equal(t, catalog.NoTimestamp, info.Origin)
	require.Equal(t, fixedNow, taken)
}

func TestFirstNonEmpty(t *testing.T) {
	tags := runner.ExifTags{"A": "", "B": "value"}
	v, ok := firstNonEmpty(tags, "A", "B")
	require.True(t, ok)
	require.Equal(t, "value", v)

	_, ok = firstNonEmpty(tags, "C")
	require.False(t, ok)
}
