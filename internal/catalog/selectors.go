package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"catalogd/internal/catalogerr"
	"github.com/jackc/pgx/v5"
)

const assetColumns = `
	id, root_id, path, kind, file_type, content_hash, added_at, taken_at, ts_origin,
	tz_offset_min, width, height, rotation_deg, gps_lat, gps_lng,
	thumb_small_avif, thumb_small_webp, thumb_large_avif, thumb_large_webp,
	timeline_group_id, album_id,
	image_format_name, video_codec_name, video_bitrate, audio_codec_name, has_dash, probe_blob
`

// assetScanFields are the scan destinations for assetColumns, in order.
// Shared by scanAsset (plain asset queries) and the timeline join, which
// appends further columns to the same row after these.
type assetScanFields struct {
	contentHash               sql.NullString
	gpsLat, gpsLng            *float64
	imageFormat               *string
	videoCodec, audioCodec    *string
	videoBitrate              *int
	hasDash                   *bool
	probeBlob                 []byte
	timelineGroupID, albumID  *int64
}

func (f *assetScanFields) dest(a *Asset) []any {
	return []any{
		&a.ID, &a.RootID, &a.Path, &a.Kind, &a.FileType, &f.contentHash, &a.AddedAt,
		&a.TakenAt, &a.Timestamp.Origin, &a.Timestamp.TZOffsetMin,
		&a.Width, &a.Height, &a.RotationDeg, &f.gpsLat, &f.gpsLng,
		&a.Thumbnails.SmallAvif, &a.Thumbnails.SmallWebp, &a.Thumbnails.LargeAvif, &a.Thumbnails.LargeWebp,
		&f.timelineGroupID, &f.albumID,
		&f.imageFormat, &f.videoCodec, &f.videoBitrate, &f.audioCodec, &f.hasDash, &f.probeBlob,
	}
}

func (f *assetScanFields) apply(a *Asset) {
	a.ContentHash = f.contentHash.String
	if f.gpsLat != nil && f.gpsLng != nil {
		a.GPS = &GPSCoords{Lat: *f.gpsLat, Lng: *f.gpsLng}
	}
	if f.timelineGroupID != nil {
		id := TimelineGroupID(*f.timelineGroupID)
		a.TimelineGroupID = &id
	}
	if f.albumID != nil {
		id := AlbumID(*f.albumID)
		a.AlbumID = &id
	}
	switch a.Kind {
	case KindImage:
		a.Image = &ImageMeta{FormatName: derefStr(f.imageFormat)}
	case KindVideo:
		a.Video = &VideoMeta{
			VideoCodecName: derefStr(f.videoCodec),
			VideoBitrate:   derefInt(f.videoBitrate),
			AudioCodecName: derefStr(f.audioCodec),
			HasDash:        f.hasDash != nil && *f.hasDash,
			ProbeBlob:      f.probeBlob,
		}
	}
}

func scanAsset(row pgx.Row) (Asset, error) {
	var a Asset
	var f assetScanFields
	if err := row.Scan(f.dest(&a)...); err != nil {
		return Asset{}, err
	}
	f.apply(&a)
	return a, nil
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefTime(p *time.Time) time.Time {
	if p == nil {
		return time.Time{}
	}
	return *p
}

// GetAsset returns the full asset row, or NotFound if id is unknown.
func (s *Store) GetAsset(ctx context.Context, id AssetID) (Asset, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id)
	a, err := scanAsset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Asset{}, &catalogerr.NotFound{Kind: "asset", ID: fmt.Sprint(id)}
	}
	if err != nil {
		return Asset{}, fmt.Errorf("scan asset %d: %w", id, err)
	}
	return a, nil
}

// GetAssetPathOnDisk returns (root path, path-within-root) for id.
func (s *Store) GetAssetPathOnDisk(ctx context.Context, id AssetID) (rootPath, relPath string, err error) {
	row := s.pool.QueryRow(ctx, `
		SELECT ar.path, a.path
		FROM assets a JOIN asset_roots ar ON ar.id = a.root_id
		WHERE a.id = $1`, id)
	if err := row.Scan(&rootPath, &relPath); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", &catalogerr.NotFound{Kind: "asset", ID: fmt.Sprint(id)}
		}
		return "", "", fmt.Errorf("get asset path %d: %w", id, err)
	}
	return rootPath, relPath, nil
}

// AssetOrDuplicateWithPathExists reports whether indexing should skip this
// file because it (or a duplicate pointer to it) is already cataloged.
func (s *Store) AssetOrDuplicateWithPathExists(ctx context.Context, rootID AssetRootID, path string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM assets WHERE root_id = $1 AND path = $2)
		OR EXISTS(SELECT 1 FROM duplicate_assets WHERE root_id = $1 AND path = $2)
	`, rootID, path).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check existing path: %w", err)
	}
	return exists, nil
}

// GetAssetWithHash looks up an asset by its content hash, for duplicate
// detection during indexing.
func (s *Store) GetAssetWithHash(ctx context.Context, hash string) (Asset, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE content_hash = $1`, hash)
	a, err := scanAsset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Asset{}, false, nil
	}
	if err != nil {
		return Asset{}, false, fmt.Errorf("scan asset by hash: %w", err)
	}
	return a, true, nil
}

// GetAssetsWithMissingThumbnail returns assets where any of the four
// thumbnail flags is false, newest-added first, capped at limit (0 = no
// cap).
func (s *Store) GetAssetsWithMissingThumbnail(ctx context.Context, limit int) ([]Asset, error) {
	q := `SELECT ` + assetColumns + ` FROM assets
		WHERE NOT (thumb_small_avif AND thumb_small_webp AND thumb_large_avif AND thumb_large_webp)
		ORDER BY added_at DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}
	return s.queryAssets(ctx, q, args...)
}

// GetVideosInAcceptableCodecWithoutDash returns Video assets whose original
// codec (and audio codec, if any) is in the acceptable set and which have
// no DASH package yet — the cheap "package original" candidates.
func (s *Store) GetVideosInAcceptableCodecWithoutDash(ctx context.Context, acceptableVideo, acceptableAudio []string) ([]Asset, error) {
	return s.queryAssets(ctx, `
		SELECT `+assetColumns+` FROM assets
		WHERE kind = 'Video' AND NOT has_dash
		  AND video_codec_name = ANY($1)
		  AND (audio_codec_name IS NULL OR audio_codec_name = ANY($2))
		ORDER BY added_at`, acceptableVideo, acceptableAudio)
}

// GetVideoAssetsWithNoAcceptableRepr returns Video assets where neither the
// original (if its codec is acceptable) nor any VideoRepresentation carries
// an acceptable codec, OR the analogous audio condition holds — the
// "needs transcode" candidates.
func (s *Store) GetVideoAssetsWithNoAcceptableRepr(ctx context.Context, acceptableVideo, acceptableAudio []string) ([]Asset, error) {
	return s.queryAssets(ctx, `
		(SELECT `+assetColumns+` FROM assets a
		WHERE a.kind = 'Video'
		  AND NOT (
			a.video_codec_name = ANY($1)
			OR EXISTS (SELECT 1 FROM video_representations vr WHERE vr.asset_id = a.id AND vr.codec = ANY($1))
		  ))
		UNION
		(SELECT `+assetColumns+` FROM assets a
		WHERE a.kind = 'Video'
		  AND a.audio_codec_name IS NOT NULL
		  AND NOT (
			a.audio_codec_name = ANY($2)
			OR EXISTS (SELECT 1 FROM audio_representations ar WHERE ar.asset_id = a.id AND ar.codec = ANY($2))
		  ))
		ORDER BY added_at`, acceptableVideo, acceptableAudio)
}

// GetImageAssetsWithNoAcceptableRepr returns Image assets whose own format
// isn't acceptable and which have no acceptable ImageRepresentation either.
func (s *Store) GetImageAssetsWithNoAcceptableRepr(ctx context.Context, acceptable []string) ([]Asset, error) {
	return s.queryAssets(ctx, `
		SELECT `+assetColumns+` FROM assets a
		WHERE a.kind = 'Image'
		  AND NOT (a.image_format_name = ANY($1))
		  AND NOT EXISTS (
			SELECT 1 FROM image_representations ir WHERE ir.asset_id = a.id AND ir.format = ANY($1)
		  )
		ORDER BY a.added_at`, acceptable)
}

func (s *Store) queryAssets(ctx context.Context, q string, args ...any) ([]Asset, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetFailedThumbnailJob returns the memoized failure for assetID, if any.
func (s *Store) GetFailedThumbnailJob(ctx context.Context, assetID AssetID) (*FailedThumbnailJob, error) {
	var j FailedThumbnailJob
	j.AssetID = assetID
	err := s.pool.QueryRow(ctx, `SELECT hash, at FROM failed_thumbnail_jobs WHERE asset_id = $1`, assetID).
		Scan(&j.Hash, &j.At)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get failed thumbnail job %d: %w", assetID, err)
	}
	return &j, nil
}

// ListVideoRepresentations returns every VideoRepresentation for assetID.
func (s *Store) ListVideoRepresentations(ctx context.Context, assetID AssetID) ([]VideoRepresentation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, asset_id, codec, width, height, bitrate, file_key, media_info_key
		FROM video_representations WHERE asset_id = $1`, assetID)
	if err != nil {
		return nil, fmt.Errorf("list video representations: %w", err)
	}
	defer rows.Close()

	var out []VideoRepresentation
	for rows.Next() {
		var v VideoRepresentation
		if err := rows.Scan(&v.ID, &v.AssetID, &v.Codec, &v.Width, &v.Height, &v.Bitrate, &v.FileKey, &v.MediaInfoKey); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListAudioRepresentations returns every AudioRepresentation for assetID.
func (s *Store) ListAudioRepresentations(ctx context.Context, assetID AssetID) ([]AudioRepresentation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, asset_id, codec, file_key, media_info_key
		FROM audio_representations WHERE asset_id = $1`, assetID)
	if err != nil {
		return nil, fmt.Errorf("list audio representations: %w", err)
	}
	defer rows.Close()

	var out []AudioRepresentation
	for rows.Next() {
		var v AudioRepresentation
		if err := rows.Scan(&v.ID, &v.AssetID, &v.Codec, &v.FileKey, &v.MediaInfoKey); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
