package catalog

import (
	"context"
	"fmt"

	"catalogd/internal/catalogerr"
)

// CreateAlbum creates an empty album.
func (s *Store) CreateAlbum(ctx context.Context, name, description string) (AlbumID, error) {
	var id AlbumID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO albums (name, description) VALUES ($1, $2) RETURNING id`, name, description).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create album %q: %w", name, err)
	}
	return id, nil
}

// AlbumItemInput is one entry to append: exactly one of AssetID/Text set.
type AlbumItemInput struct {
	AssetID *AssetID
	Text    *string
}

// AppendAlbumItems appends items to the end of an album's dense ordering,
// inside a transaction (spec.md §4.1, §5 multi-table write policy).
func (s *Store) AppendAlbumItems(ctx context.Context, albumID AlbumID, items []AlbumItemInput) ([]AlbumItemID, error) {
	var ids []AlbumItemID
	err := s.WithTx(ctx, func(tx *Tx) error {
		next, err := nextAlbumIndex(ctx, tx, albumID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if (it.AssetID == nil) == (it.Text == nil) {
				return &catalogerr.CatalogInvariant{Message: "album item must set exactly one of asset_id/text"}
			}
			var id AlbumItemID
			err := tx.QueryRow(ctx, `
				INSERT INTO album_items (album_id, index, asset_id, text) VALUES ($1,$2,$3,$4) RETURNING id`,
				albumID, next, it.AssetID, it.Text,
			).Scan(&id)
			if err != nil {
				return fmt.Errorf("append album item to album %d: %w", albumID, classifyWriteErr(err, "album_items"))
			}
			ids = append(ids, id)
			next++
		}
		_, err = tx.Exec(ctx, `UPDATE albums SET updated_at = now() WHERE id = $1`, albumID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func nextAlbumIndex(ctx context.Context, tx *Tx, albumID AlbumID) (int, error) {
	var max *int
	err := tx.QueryRow(ctx, `SELECT MAX(index) FROM album_items WHERE album_id = $1`, albumID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("find next album index for album %d: %w", albumID, err)
	}
	if max == nil {
		return 0, nil
	}
	return *max + 1, nil
}

// RemoveAlbumItems deletes the given items and renumbers the remainder into
// a contiguous 0..n-1 sequence, inside one transaction (spec.md §3
// invariant: "AlbumItem.index values for a given album form a contiguous
// 0..n sequence; removing items renumbers").
func (s *Store) RemoveAlbumItems(ctx context.Context, albumID AlbumID, itemIDs []AlbumItemID) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		for _, id := range itemIDs {
			tag, err := tx.Exec(ctx, `DELETE FROM album_items WHERE id = $1 AND album_id = $2`, id, albumID)
			if err != nil {
				return fmt.Errorf("remove album item %d: %w", id, err)
			}
			if tag.RowsAffected() == 0 {
				return &catalogerr.NotFound{Kind: "album_item", ID: fmt.Sprint(id)}
			}
		}
		if err := renumberAlbum(ctx, tx, albumID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE albums SET updated_at = now() WHERE id = $1`, albumID)
		return err
	})
}

// renumberAlbum collapses the remaining items' index column to a dense
// 0..n-1 sequence in their existing relative order. Runs inside the
// caller's transaction.
func renumberAlbum(ctx context.Context, tx *Tx, albumID AlbumID) error {
	rows, err := tx.Query(ctx, `SELECT id FROM album_items WHERE album_id = $1 ORDER BY index`, albumID)
	if err != nil {
		return fmt.Errorf("read album items for renumber: %w", err)
	}
	var ids []AlbumItemID
	for rows.Next() {
		var id AlbumItemID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	// Shift indices temporarily out of range first to dodge the
	// UNIQUE(album_id, index) constraint while reassigning in place.
	for i, id := range ids {
		if _, err := tx.Exec(ctx, `UPDATE album_items SET index = $2 WHERE id = $1`, id, -(i + 1)); err != nil {
			return fmt.Errorf("renumber album item %d (stage 1): %w", id, err)
		}
	}
	for i, id := range ids {
		if _, err := tx.Exec(ctx, `UPDATE album_items SET index = $2 WHERE id = $1`, id, i); err != nil {
			return fmt.Errorf("renumber album item %d (stage 2): %w", id, err)
		}
	}
	return nil
}

// GetAlbum returns the album row.
func (s *Store) GetAlbum(ctx context.Context, id AlbumID) (Album, error) {
	var a Album
	a.ID = id
	err := s.pool.QueryRow(ctx, `SELECT name, description, created_at, updated_at FROM albums WHERE id = $1`, id).
		Scan(&a.Name, &a.Description, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Album{}, fmt.Errorf("get album %d: %w", id, wrapNotFound(err, "album", id))
	}
	return a, nil
}

// ListAlbumItems returns an album's items in index order.
func (s *Store) ListAlbumItems(ctx context.Context, albumID AlbumID) ([]AlbumItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, album_id, index, asset_id, text FROM album_items
		WHERE album_id = $1 ORDER BY index`, albumID)
	if err != nil {
		return nil, fmt.Errorf("list album items for album %d: %w", albumID, err)
	}
	defer rows.Close()

	var out []AlbumItem
	for rows.Next() {
		var it AlbumItem
		var assetID *int64
		if err := rows.Scan(&it.ID, &it.AlbumID, &it.Index, &assetID, &it.Text); err != nil {
			return nil, err
		}
		if assetID != nil {
			id := AssetID(*assetID)
			it.AssetID = &id
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
