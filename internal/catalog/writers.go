package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalogd/internal/catalogerr"
	"github.com/jackc/pgx/v5/pgconn"
)

// CreateAsset is the writer-side description of a new Asset row. Exactly
// one of Image/Video must be set, matching Kind.
type CreateAsset struct {
	RootID      AssetRootID
	Path        string
	Kind        AssetKind
	FileType    string
	ContentHash string // "" if not hashed (never expected in practice, but not enforced)
	TakenAt     time.Time
	Timestamp   TimestampInfo
	Width       int
	Height      int
	RotationDeg int
	GPS         *GPSCoords

	Image *ImageMeta
	Video *VideoMeta
}

// CreateAsset inserts a new Asset row, validating kind/field agreement
// (spec.md §3 invariant). Returns the allocated id.
func (s *Store) CreateAsset(ctx context.Context, in CreateAsset) (AssetID, error) {
	if err := validateKindFields(in.Kind, in.Image, in.Video); err != nil {
		return 0, err
	}

	var gpsLat, gpsLng *float64
	if in.GPS != nil {
		gpsLat, gpsLng = &in.GPS.Lat, &in.GPS.Lng
	}

	var imageFormat *string
	var videoCodec, audioCodec *string
	var videoBitrate *int
	var probeBlob []byte
	if in.Image != nil {
		imageFormat = &in.Image.FormatName
	}
	if in.Video != nil {
		videoCodec = &in.Video.VideoCodecName
		videoBitrate = &in.Video.VideoBitrate
		if in.Video.AudioCodecName != "" {
			audioCodec = &in.Video.AudioCodecName
		}
		probeBlob = in.Video.ProbeBlob
	}

	var contentHash any
	if in.ContentHash != "" {
		contentHash = in.ContentHash
	}

	var id AssetID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO assets (
			root_id, path, kind, file_type, content_hash, taken_at, ts_origin, tz_offset_min,
			width, height, rotation_deg, gps_lat, gps_lng,
			image_format_name, video_codec_name, video_bitrate, audio_codec_name, probe_blob
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		RETURNING id`,
		in.RootID, in.Path, in.Kind, in.FileType, contentHash, in.TakenAt, in.Timestamp.Origin, in.Timestamp.TZOffsetMin,
		in.Width, in.Height, in.RotationDeg, gpsLat, gpsLng,
		imageFormat, videoCodec, videoBitrate, audioCodec, probeBlob,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert asset: %w", classifyWriteErr(err, in.Path))
	}
	return id, nil
}

func validateKindFields(kind AssetKind, img *ImageMeta, vid *VideoMeta) error {
	switch kind {
	case KindImage:
		if img == nil || vid != nil {
			return &catalogerr.CatalogInvariant{Message: "image asset must carry ImageMeta and no VideoMeta"}
		}
	case KindVideo:
		if vid == nil || img != nil {
			return &catalogerr.CatalogInvariant{Message: "video asset must carry VideoMeta and no ImageMeta"}
		}
		if vid.VideoCodecName == "" {
			return &catalogerr.CatalogInvariant{Message: "video asset missing video_codec_name"}
		}
	default:
		return &catalogerr.CatalogInvariant{Message: fmt.Sprintf("unknown asset kind %q", kind)}
	}
	return nil
}

// InsertDuplicateAsset records a second discovery of content already
// present under existingID. Idempotent: re-indexing the same (root, path)
// is a no-op via AssetOrDuplicateWithPathExists, so this should only ever
// be called once per path.
func (s *Store) InsertDuplicateAsset(ctx context.Context, existingID AssetID, rootID AssetRootID, path string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO duplicate_assets (existing_asset_id, root_id, path) VALUES ($1, $2, $3)`,
		existingID, rootID, path)
	if err != nil {
		return fmt.Errorf("insert duplicate asset: %w", classifyWriteErr(err, path))
	}
	return nil
}

// InsertVideoRepresentation inserts a derived video track row. Use the Tx
// method ((*Tx).InsertVideoRepresentation) inside PackageVideo.Apply so the
// insert and the has_dash flip are atomic.
func (s *Store) InsertVideoRepresentation(ctx context.Context, v VideoRepresentation) (VideoReprID, error) {
	return insertVideoRepresentation(ctx, s.pool, v)
}

func (tx *Tx) InsertVideoRepresentation(ctx context.Context, v VideoRepresentation) (VideoReprID, error) {
	return insertVideoRepresentation(ctx, tx.Tx, v)
}

func insertVideoRepresentation(ctx context.Context, q Querier, v VideoRepresentation) (VideoReprID, error) {
	var id VideoReprID
	err := q.QueryRow(ctx, `
		INSERT INTO video_representations (asset_id, codec, width, height, bitrate, file_key, media_info_key)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		v.AssetID, v.Codec, v.Width, v.Height, v.Bitrate, v.FileKey, v.MediaInfoKey,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert video representation: %w", classifyWriteErr(err, v.FileKey))
	}
	return id, nil
}

func (tx *Tx) InsertAudioRepresentation(ctx context.Context, a AudioRepresentation) (AudioReprID, error) {
	var id AudioReprID
	err := tx.QueryRow(ctx, `
		INSERT INTO audio_representations (asset_id, codec, file_key, media_info_key)
		VALUES ($1,$2,$3,$4) RETURNING id`,
		a.AssetID, a.Codec, a.FileKey, a.MediaInfoKey,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert audio representation: %w", classifyWriteErr(err, a.FileKey))
	}
	return id, nil
}

func (s *Store) InsertImageRepresentation(ctx context.Context, img ImageRepresentation) (ImageReprID, error) {
	return insertImageRepresentation(ctx, s.pool, img)
}

func (tx *Tx) InsertImageRepresentation(ctx context.Context, img ImageRepresentation) (ImageReprID, error) {
	return insertImageRepresentation(ctx, tx.Tx, img)
}

func insertImageRepresentation(ctx context.Context, q Querier, img ImageRepresentation) (ImageReprID, error) {
	var id ImageReprID
	err := q.QueryRow(ctx, `
		INSERT INTO image_representations (asset_id, format, width, height, byte_size, file_key)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		img.AssetID, img.Format, img.Width, img.Height, img.ByteSize, img.FileKey,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert image representation: %w", classifyWriteErr(err, img.FileKey))
	}
	return id, nil
}

// SetAssetHasDash flips the has_dash flag. Exposed standalone for tests;
// PackageVideo.Apply uses the Tx-scoped variant so the flip lands in the
// same transaction as the representation inserts (spec.md §3 invariant).
func (s *Store) SetAssetHasDash(ctx context.Context, id AssetID, has bool) error {
	return setAssetHasDash(ctx, s.pool, id, has)
}

func (tx *Tx) SetAssetHasDash(ctx context.Context, id AssetID, has bool) error {
	return setAssetHasDash(ctx, tx.Tx, id, has)
}

func setAssetHasDash(ctx context.Context, q Querier, id AssetID, has bool) error {
	tag, err := q.Exec(ctx, `UPDATE assets SET has_dash = $2 WHERE id = $1`, id, has)
	if err != nil {
		return fmt.Errorf("set has_dash for asset %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &catalogerr.NotFound{Kind: "asset", ID: fmt.Sprint(id)}
	}
	return nil
}

// SetAssetSmallThumbnails flips the small-square thumbnail flags. Use the
// Tx-scoped variant inside CreateThumbnail.Apply so the flip and any
// FailedThumbnailJob write land in the same transaction.
func (s *Store) SetAssetSmallThumbnails(ctx context.Context, id AssetID, avif, webp bool) error {
	return setAssetSmallThumbnails(ctx, s.pool, id, avif, webp)
}

func (tx *Tx) SetAssetSmallThumbnails(ctx context.Context, id AssetID, avif, webp bool) error {
	return setAssetSmallThumbnails(ctx, tx.Tx, id, avif, webp)
}

func setAssetSmallThumbnails(ctx context.Context, q Querier, id AssetID, avif, webp bool) error {
	tag, err := q.Exec(ctx, `UPDATE assets SET thumb_small_avif = $2, thumb_small_webp = $3 WHERE id = $1`, id, avif, webp)
	if err != nil {
		return fmt.Errorf("set small thumbnails for asset %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &catalogerr.NotFound{Kind: "asset", ID: fmt.Sprint(id)}
	}
	return nil
}

// SetAssetLargeThumbnails flips the large-original-aspect thumbnail flags.
func (s *Store) SetAssetLargeThumbnails(ctx context.Context, id AssetID, avif, webp bool) error {
	return setAssetLargeThumbnails(ctx, s.pool, id, avif, webp)
}

func (tx *Tx) SetAssetLargeThumbnails(ctx context.Context, id AssetID, avif, webp bool) error {
	return setAssetLargeThumbnails(ctx, tx.Tx, id, avif, webp)
}

func setAssetLargeThumbnails(ctx context.Context, q Querier, id AssetID, avif, webp bool) error {
	tag, err := q.Exec(ctx, `UPDATE assets SET thumb_large_avif = $2, thumb_large_webp = $3 WHERE id = $1`, id, avif, webp)
	if err != nil {
		return fmt.Errorf("set large thumbnails for asset %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &catalogerr.NotFound{Kind: "asset", ID: fmt.Sprint(id)}
	}
	return nil
}

// InsertFailedThumbnailJob upserts the failure memo for assetID, carrying
// the file's content-hash as of the failure (spec.md §4.5).
func (s *Store) InsertFailedThumbnailJob(ctx context.Context, assetID AssetID, hash string, now time.Time) error {
	return insertFailedThumbnailJob(ctx, s.pool, assetID, hash, now)
}

func (tx *Tx) InsertFailedThumbnailJob(ctx context.Context, assetID AssetID, hash string, now time.Time) error {
	return insertFailedThumbnailJob(ctx, tx.Tx, assetID, hash, now)
}

func insertFailedThumbnailJob(ctx context.Context, q Querier, assetID AssetID, hash string, now time.Time) error {
	_, err := q.Exec(ctx, `
		INSERT INTO failed_thumbnail_jobs (asset_id, hash, at) VALUES ($1, $2, $3)
		ON CONFLICT (asset_id) DO UPDATE SET hash = EXCLUDED.hash, at = EXCLUDED.at`,
		assetID, hash, now)
	if err != nil {
		return fmt.Errorf("insert failed thumbnail job for asset %d: %w", assetID, err)
	}
	return nil
}

// CreateAssetRoot registers a new watched directory.
func (s *Store) CreateAssetRoot(ctx context.Context, path string) (AssetRootID, error) {
	var id AssetRootID
	err := s.pool.QueryRow(ctx, `INSERT INTO asset_roots (path) VALUES ($1) RETURNING id`, path).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create asset root %s: %w", path, classifyWriteErr(err, path))
	}
	return id, nil
}

// ListAssetRoots returns every configured AssetRoot.
func (s *Store) ListAssetRoots(ctx context.Context) ([]AssetRoot, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, path FROM asset_roots ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list asset roots: %w", err)
	}
	defer rows.Close()

	var out []AssetRoot
	for rows.Next() {
		var r AssetRoot
		if err := rows.Scan(&r.ID, &r.Path); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// classifyWriteErr turns an unexpected unique-constraint violation into a
// CatalogInvariant, per spec.md §4.1 ("unexpected constraint violations are
// fatal... and surface as CatalogInvariant errors"); well-defined idempotent
// cases are handled by callers checking existence before writing.
func classifyWriteErr(err error, context string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &catalogerr.CatalogInvariant{Message: fmt.Sprintf("unexpected unique constraint violation on %s: %s", context, pgErr.ConstraintName)}
	}
	return err
}
