package catalog

import (
	"context"
	"fmt"
	"time"

	"catalogd/internal/catalogerr"
)

// CreateTimelineGroup creates a group that can later own assets, overriding
// their natural taken-date ordering in the timeline (spec.md §3).
func (s *Store) CreateTimelineGroup(ctx context.Context, displayDate time.Time, name string) (TimelineGroupID, error) {
	var id TimelineGroupID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO timeline_groups (display_date, name) VALUES ($1, $2) RETURNING id`, displayDate, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create timeline group %q: %w", name, err)
	}
	return id, nil
}

// SetAssetTimelineGroup assigns (or clears, with nil) the TimelineGroup an
// asset sorts under.
func (s *Store) SetAssetTimelineGroup(ctx context.Context, assetID AssetID, groupID *TimelineGroupID) error {
	tag, err := s.pool.Exec(ctx, `UPDATE assets SET timeline_group_id = $2 WHERE id = $1`, assetID, groupID)
	if err != nil {
		return fmt.Errorf("set timeline group for asset %d: %w", assetID, err)
	}
	if tag.RowsAffected() == 0 {
		return &catalogerr.NotFound{Kind: "asset", ID: fmt.Sprint(assetID)}
	}
	return nil
}

// TimelineCursor identifies a position in the timeline ordering
// (sort_group_date DESC, album_id DESC, taken_date DESC, asset_id DESC),
// per spec.md §3. A zero-value cursor means "start from the top".
type TimelineCursor struct {
	SortGroupDate time.Time
	AlbumID       AlbumID
	TakenDate     time.Time
	AssetID       AssetID
	set           bool
}

// has reports whether c was ever advanced past the top.
func (c TimelineCursor) has() bool { return c.set }

// ListTimelinePage returns up to limit TimelineElements strictly after
// cursor in the ordering key, plus the cursor to pass for the next page.
// Concatenating successive pages from the zero cursor yields every visible
// asset exactly once, in strictly decreasing order (spec.md §8 property 7).
func (s *Store) ListTimelinePage(ctx context.Context, cursor TimelineCursor, limit int) ([]TimelineElement, TimelineCursor, error) {
	q := `
		SELECT ` + assetColumns + `,
			COALESCE(tg.tg_display_date, a.taken_at) AS sort_group_date,
			tg.tg_id, tg.tg_display_date, tg.tg_name, tg.tg_created_at, tg.tg_updated_at
		FROM assets a
		LEFT JOIN (SELECT id AS tg_id, display_date AS tg_display_date, name AS tg_name,
			created_at AS tg_created_at, updated_at AS tg_updated_at FROM timeline_groups) tg
			ON tg.tg_id = a.timeline_group_id
	`
	args := []any{}
	if cursor.has() {
		q += ` WHERE (COALESCE(tg.tg_display_date, a.taken_at), COALESCE(a.album_id, 0), a.taken_at, a.id) < ($1, $2, $3, $4)`
		args = append(args, cursor.SortGroupDate, cursor.AlbumID, cursor.TakenDate, cursor.AssetID)
	}
	q += ` ORDER BY sort_group_date DESC, COALESCE(a.album_id, 0) DESC, a.taken_at DESC, a.id DESC`
	q += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, TimelineCursor{}, fmt.Errorf("list timeline page: %w", err)
	}
	defer rows.Close()

	var out []TimelineElement
	var last TimelineCursor
	for rows.Next() {
		var a Asset
		var f assetScanFields
		var sortDate time.Time
		var groupID *int64
		var displayDate, createdAt, updatedAt *time.Time
		var name *string

		dest := f.dest(&a)
		dest = append(dest, &sortDate, &groupID, &displayDate, &name, &createdAt, &updatedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, TimelineCursor{}, fmt.Errorf("scan timeline row: %w", err)
		}
		f.apply(&a)

		el := TimelineElement{Asset: a, SortDate: sortDate}
		if groupID != nil {
			el.Group = &TimelineGroup{ID: TimelineGroupID(*groupID), DisplayDate: derefTime(displayDate), Name: derefStr(name), CreatedAt: derefTime(createdAt), UpdatedAt: derefTime(updatedAt)}
		}
		out = append(out, el)

		var albumID AlbumID
		if a.AlbumID != nil {
			albumID = *a.AlbumID
		}
		last = TimelineCursor{SortGroupDate: sortDate, AlbumID: albumID, TakenDate: a.TakenAt, AssetID: a.ID, set: true}
	}
	if err := rows.Err(); err != nil {
		return nil, TimelineCursor{}, err
	}
	return out, last, nil
}
