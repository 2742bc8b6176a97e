// Package indexing is the lazy filesystem walker SPEC_FULL.md §4.9 notes is
// out of the rules/operation core's scope but still needed to drive the
// system end-to-end: a minimal filepath.WalkDir-based implementation of
// spec.md §4.7's exact indexing algorithm (quick-skip, exiftool, codec/
// header probe, hash-based dedup, timestamp-origin ladder, GPS), talking to
// the catalog and runners only through their public interfaces. Grounded on
// the teacher's internal/processors/discover_task.go + ingest_task.go
// staged ingestion pipeline, generalized from "upload staging" to
// "directory walk".
package indexing

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"catalogd/internal/catalog"
	"catalogd/internal/hashutil"
	"catalogd/internal/runner"
)

// Event is indexing's per-file outcome (spec.md §4.7: "one event per file").
type Event interface {
	isEvent()
}

type NewAsset struct {
	ID   catalog.AssetID
	Path string
}

func (NewAsset) isEvent() {}

type DuplicateFound struct {
	ExistingID catalog.AssetID
	Path       string
}

func (DuplicateFound) isEvent() {}

type IndexingError struct {
	Root   catalog.AssetRootID
	Path   string
	Report string
}

func (IndexingError) isEvent() {}

// Skipped is emitted for the quick-skip and no-MIME-type cases, silently per
// spec.md's wording but surfaced here so a caller can count/log them.
type Skipped struct {
	Path   string
	Reason string
}

func (Skipped) isEvent() {}

// Walker runs spec.md §4.7's algorithm over every file under an AssetRoot.
type Walker struct {
	store *catalog.Store
	caps  *runner.Capabilities
	now   func() time.Time
}

func NewWalker(store *catalog.Store, caps *runner.Capabilities) *Walker {
	return &Walker{store: store, caps: caps, now: time.Now}
}

// WalkRoot walks root's directory tree, emitting one Event per file via
// emit. filepath.WalkDir does not descend into symlinked directories; a
// symlink to a file is indexed through the link. A WalkDir error that isn't a
// per-file processing error aborts the walk.
func (w *Walker) WalkRoot(ctx context.Context, root catalog.AssetRoot, emit func(Event)) error {
	return filepath.WalkDir(root.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		relPath, relErr := filepath.Rel(root.Path, path)
		if relErr != nil {
			relPath = path
		}

		ev, indexErr := w.indexFile(ctx, root.ID, path, relPath)
		if indexErr != nil {
			emit(IndexingError{Root: root.ID, Path: relPath, Report: indexErr.Error()})
			return nil // one bad file never aborts the walk
		}
		emit(ev)
		return nil
	})
}

func (w *Walker) indexFile(ctx context.Context, rootID catalog.AssetRootID, absPath, relPath string) (Event, error) {
	// Step 1: quick skip.
	exists, err := w.store.AssetOrDuplicateWithPathExists(ctx, rootID, relPath)
	if err != nil {
		return nil, fmt.Errorf("check existing: %w", err)
	}
	if exists {
		return Skipped{Path: relPath, Reason: "already cataloged"}, nil
	}

	// Step 2: exiftool metadata; skip if no MIME type can be determined.
	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", relPath, err)
	}
	defer f.Close()

	mime, err := mimetype.DetectFile(absPath)
	if err != nil || mime == nil {
		return Skipped{Path: relPath, Reason: "no MIME type"}, nil
	}

	tags, err := w.caps.Exiftool.ExtractFromStream(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("exiftool %s: %w", relPath, err)
	}

	// Step 3: branch on MIME; derive dimensions/codecs.
	kind := catalog.KindImage
	var img *catalog.ImageMeta
	var vid *catalog.VideoMeta
	var width, height, rotation int

	switch {
	case strings.HasPrefix(mime.String(), "video/"):
		kind = catalog.KindVideo
		probe, perr := w.caps.FFprobe.Probe(ctx, absPath)
		if perr != nil {
			return nil, fmt.Errorf("ffprobe %s: %w", relPath, perr)
		}
		width, height, rotation = probe.Width, probe.Height, probe.RotationDeg
		if rotation == 90 || rotation == 270 {
			width, height = height, width
		}
		vid = &catalog.VideoMeta{
			VideoCodecName: probe.VideoCodecName,
			VideoBitrate:   probe.BitRate,
			AudioCodecName: probe.AudioCodecName,
			ProbeBlob:      probe.Raw,
		}

	case strings.HasPrefix(mime.String(), "image/"):
		if _, err := f.Seek(0, 0); err != nil {
			return nil, fmt.Errorf("seek %s: %w", relPath, err)
		}
		width, height, err = w.caps.Image.Dimensions(f)
		if err != nil {
			return nil, fmt.Errorf("decode header %s: %w", relPath, err)
		}
		img = &catalog.ImageMeta{FormatName: formatNameFromMIME(mime.String())}

	default:
		return Skipped{Path: relPath, Reason: "unsupported MIME type " + mime.String()}, nil
	}

	// Step 4: hash and dedup.
	hash, err := hashutil.File(absPath, kind == catalog.KindVideo)
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", relPath, err)
	}
	if existing, found, err := w.store.GetAssetWithHash(ctx, hash); err != nil {
		return nil, fmt.Errorf("check hash %s: %w", relPath, err)
	} else if found {
		if err := w.store.InsertDuplicateAsset(ctx, existing.ID, rootID, relPath); err != nil {
			return nil, fmt.Errorf("insert duplicate %s: %w", relPath, err)
		}
		return DuplicateFound{ExistingID: existing.ID, Path: relPath}, nil
	}

	// Step 5/6: timestamp-origin ladder and GPS.
	ts, takenAt := resolveTimestamp(tags, w.now)
	gps := resolveGPS(tags)

	// Step 7: create the Asset row.
	id, err := w.store.CreateAsset(ctx, catalog.CreateAsset{
		RootID:      rootID,
		Path:        relPath,
		Kind:        kind,
		FileType:    extensionTag(relPath),
		ContentHash: hash,
		TakenAt:     takenAt,
		Timestamp:   ts,
		Width:       width,
		Height:      height,
		RotationDeg: rotation,
		GPS:         gps,
		Image:       img,
		Video:       vid,
	})
	if err != nil {
		return nil, fmt.Errorf("create asset %s: %w", relPath, err)
	}

	return NewAsset{ID: id, Path: relPath}, nil
}

func extensionTag(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return strings.ToLower(ext)
}

func formatNameFromMIME(mime string) string {
	_, sub, ok := strings.Cut(mime, "/")
	if !ok {
		return mime
	}
	sub, _, _ = strings.Cut(sub, ";")
	return sub
}

// exifDateLayout is the EXIF/QuickTime datetime format, e.g. "2024:03:05 14:02:00".
const exifDateLayout = "2006:01:02 15:04:05"

// resolveTimestamp implements spec.md §4.7 step 5's timestamp-origin ladder:
// explicit-offset tag -> TzCertain, UTC-certain tag -> UtcCertain,
// local-only datetime -> TzGuessedLocal(system offset), none -> NoTimestamp
// with a synthesized now.
func resolveTimestamp(tags runner.ExifTags, now func() time.Time) (catalog.TimestampInfo, time.Time) {
	if raw, ok := firstNonEmpty(tags, "DateTimeOriginal", "CreateDate"); ok {
		if offsetRaw, ok := firstNonEmpty(tags, "OffsetTimeOriginal", "OffsetTime", "OffsetTimeDigitized"); ok {
			if t, err := time.Parse(exifDateLayout+"-07:00", raw+offsetRaw); err == nil {
				_, offsetSec := t.Zone()
				return catalog.TimestampInfo{Origin: catalog.TzCertain, TZOffsetMin: offsetSec / 60}, t
			}
		}
	}

	if raw, ok := tags["CreateDate"]; ok && strings.Contains(strings.ToLower(tags["MIMEType"]), "quicktime") {
		if t, err := time.ParseInLocation(exifDateLayout, raw, time.UTC); err == nil {
			return catalog.TimestampInfo{Origin: catalog.UtcCertain}, t
		}
	}

	if raw, ok := firstNonEmpty(tags, "DateTimeOriginal", "CreateDate", "ModifyDate"); ok {
		if t, err := time.ParseInLocation(exifDateLayout, raw, time.Local); err == nil {
			_, offsetSec := t.Zone()
			return catalog.TimestampInfo{Origin: catalog.TzGuessedLocal, TZOffsetMin: offsetSec / 60}, t
		}
	}

	n := now()
	_, offsetSec := n.Zone()
	return catalog.TimestampInfo{Origin: catalog.NoTimestamp, TZOffsetMin: offsetSec / 60}, n
}

func firstNonEmpty(tags runner.ExifTags, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := tags[k]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// resolveGPS parses exiftool's composite GPSLatitude/GPSLongitude tags,
// which are returned as signed decimal-degree strings under -j.
func resolveGPS(tags runner.ExifTags) *catalog.GPSCoords {
	latRaw, okLat := tags["GPSLatitude"]
	lngRaw, okLng := tags["GPSLongitude"]
	if !okLat || !okLng {
		return nil
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(lngRaw), 64)
	if errLat != nil || errLng != nil {
		return nil
	}
	return &catalog.GPSCoords{Lat: lat, Lng: lng}
}
