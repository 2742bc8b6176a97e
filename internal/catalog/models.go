// Package catalog is the database of record: asset rows, per-asset derived
// representations, failed-job memos, and album/timeline grouping. All reads
// and writes funnel through Store; writes that create derived resources are
// transactional. Grounded on the teacher's internal/db/db.go pgx pool and
// internal/db/dbtypes asset model, generalized from UUID asset identity to
// the spec's integer surrogate keys and from a single denormalized asset
// table to the asset/representation split spec.md §3 describes.
package catalog

import "time"

type AssetKind string

const (
	KindImage AssetKind = "Image"
	KindVideo AssetKind = "Video"
)

// AssetRootID, AssetID, etc. are newtypes over int64 surrogate keys so the
// compiler catches an AlbumID passed where an AssetID is expected.
type (
	AssetRootID     int64
	AssetID         int64
	VideoReprID     int64
	AudioReprID     int64
	ImageReprID     int64
	AlbumID         int64
	AlbumItemID     int64
	TimelineGroupID int64
)

// AssetRoot is a watched top-level directory.
type AssetRoot struct {
	ID   AssetRootID
	Path string // absolute, unique
}

// TimestampOrigin records how Asset.TakenDate/TZOffset were derived, per the
// indexing timestamp-origin ladder (spec.md §4.7 step 5).
type TimestampOrigin string

const (
	TzCertain      TimestampOrigin = "TzCertain"      // EXIF/QuickTime tag carried an explicit UTC offset
	UtcCertain     TimestampOrigin = "UtcCertain"      // tag was UTC-certain (e.g. QuickTime CreateDate)
	TzGuessedLocal TimestampOrigin = "TzGuessedLocal"  // only a local datetime was present; offset is the indexing host's
	NoTimestamp    TimestampOrigin = "NoTimestamp"     // no usable tag; TakenDate synthesized as indexing time
)

// TimestampInfo is the taken-date plus the provenance of that date.
type TimestampInfo struct {
	Origin      TimestampOrigin
	TZOffsetMin int // minutes east of UTC; meaningful for TzCertain/TzGuessedLocal
}

// GPSCoords is a decimal-degree location, optional on an Asset.
type GPSCoords struct {
	Lat float64
	Lng float64
}

// ThumbnailState is the thumbnail presence tracked on an Asset row: four
// flags, small/large × AVIF/WebP. No thumbnail size metadata is recorded.
type ThumbnailState struct {
	SmallAvif bool
	SmallWebp bool
	LargeAvif bool
	LargeWebp bool
}

func (t ThumbnailState) HasKind(small bool) bool {
	if small {
		return t.SmallAvif && t.SmallWebp
	}
	return t.LargeAvif && t.LargeWebp
}

// Asset is a canonical original file recorded in the catalog. Kind-specific
// fields live in ImageMeta/VideoMeta, populated according to Kind (spec.md
// §3 invariant: "Asset.kind and kind-specific fields agree").
type Asset struct {
	ID           AssetID
	RootID       AssetRootID
	Path         string // path within root
	Kind         AssetKind
	FileType     string // container/extension tag, e.g. "jpeg", "mp4"
	ContentHash  string // "" if not yet hashed
	AddedAt      time.Time
	Timestamp    TimestampInfo
	TakenAt      time.Time
	Width        int
	Height       int
	RotationDeg  int // correction to apply when displaying (0/90/180/270)
	GPS          *GPSCoords
	Thumbnails   ThumbnailState

	// TimelineGroupID and AlbumID are tie-break fields in the timeline
	// ordering key (spec.md §3); both are optional and independent of
	// explicit AlbumItem membership.
	TimelineGroupID *TimelineGroupID
	AlbumID         *AlbumID

	Image *ImageMeta // non-nil iff Kind == KindImage
	Video *VideoMeta // non-nil iff Kind == KindVideo
}

// ImageMeta holds Kind==Image-specific fields.
type ImageMeta struct {
	FormatName string // e.g. "jpeg", "heic", "png"
}

// VideoMeta holds Kind==Video-specific fields.
type VideoMeta struct {
	VideoCodecName string
	VideoBitrate   int
	AudioCodecName string // "" if the video has no audio stream
	HasDash        bool
	ProbeBlob      []byte // raw ffprobe JSON, captured once at index time
}

// DuplicateAsset records a second discovery of content already present
// under ExistingAssetID.
type DuplicateAsset struct {
	ID              int64
	ExistingAssetID AssetID
	RootID          AssetRootID
	Path            string
}

// VideoRepresentation is a derived, DASH-packaged video track.
type VideoRepresentation struct {
	ID            VideoReprID
	AssetID       AssetID
	Codec         string
	Width, Height int
	Bitrate       int
	FileKey       string
	MediaInfoKey  string
}

// AudioRepresentation is a derived, DASH-packaged audio track.
type AudioRepresentation struct {
	ID           AudioReprID
	AssetID      AssetID
	Codec        string
	FileKey      string
	MediaInfoKey string
}

// ImageRepresentation is a derived alternative-format image.
type ImageRepresentation struct {
	ID        ImageReprID
	AssetID   AssetID
	Format    string
	Width     int
	Height    int
	ByteSize  int64
	FileKey   string
}

// FailedThumbnailJob memoizes "we tried and failed to thumbnail this exact
// file content"; see spec.md §4.5.
type FailedThumbnailJob struct {
	AssetID AssetID
	Hash    string
	At      time.Time
}

// Album groups assets (and free-text items) in a user-ordered sequence.
type Album struct {
	ID          AlbumID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AlbumItem is one entry in an album's dense 0..n ordering. Exactly one of
// AssetID/Text is set.
type AlbumItem struct {
	ID      AlbumItemID
	AlbumID AlbumID
	Index   int
	AssetID *AssetID
	Text    *string
}

// TimelineGroup clusters assets under a display date/name (e.g. a trip),
// used to override an asset's natural taken-date ordering in the timeline.
type TimelineGroup struct {
	ID          TimelineGroupID
	DisplayDate time.Time
	Name        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TimelineElement is one row of a timeline page: either a bare Asset or an
// Asset grouped under a TimelineGroup. Ordering key is documented on
// TimelineCursor.
type TimelineElement struct {
	Asset       Asset
	Group       *TimelineGroup // non-nil if the asset belongs to a group
	SortDate    time.Time      // Group.DisplayDate if Group != nil, else Asset.TakenAt
}
