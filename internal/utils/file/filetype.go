package file

import (
	"strings"
)

// AssetType is the coarse media kind a file validates as, independent of
// the catalog's own Image/Video asset kind split - used here purely for
// extension/MIME classification ahead of indexing.
type AssetType string

const (
	AssetTypePhoto AssetType = "PHOTO"
	AssetTypeVideo AssetType = "VIDEO"
	AssetTypeAudio AssetType = "AUDIO"
)

// DetermineAssetType 根据 HTTP Header 中的 Content-Type 决定资源类型
func DetermineAssetType(contentType string) AssetType {
	ct := strings.ToLower(strings.TrimSpace(contentType))

	switch {
	case strings.HasPrefix(ct, "image/"):
		return AssetTypePhoto
	case strings.HasPrefix(ct, "video/"):
		return AssetTypeVideo
	case strings.HasPrefix(ct, "audio/"):
		return AssetTypeAudio
	default:
		// TODO: error handeling
		return AssetTypePhoto
	}
}
