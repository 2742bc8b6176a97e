package file

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// SupportedFormats contains all file formats supported by the backend
type SupportedFormats struct {
	Photos map[string]bool
	Videos map[string]bool
	Audios map[string]bool
	RAW    map[string]bool
}

var (
	// Supported photo/image extensions
	supportedPhotoExts = map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".webp": true,
		".gif":  true,
		".bmp":  true,
		".tiff": true,
		".tif":  true,
		".heic": true,
		".heif": true,
	}

	// Supported RAW photo extensions
	supportedRAWExts = map[string]bool{
		".cr2": true, // Canon
		".cr3": true, // Canon
		".nef": true, // Nikon
		".arw": true, // Sony
		".dng": true, // Adobe Digital Negative
		".orf": true, // Olympus
		".rw2": true, // Panasonic
		".pef": true, // Pentax
		".raf": true, // Fujifilm
		".mrw": true, // Minolta/Konica Minolta
		".srw": true, // Samsung
		".rwl": true, // Leica
		".x3f": true, // Sigma
	}

	// Supported video extensions
	supportedVideoExts = map[string]bool{
		".mp4":  true,
		".mov":  true,
		".avi":  true,
		".mkv":  true,
		".webm": true,
		".flv":  true,
		".wmv":  true,
		".m4v":  true,
		".3gp":  true,
		".mpg":  true,
		".mpeg": true,
		".m2ts": true,
		".mts":  true,
		".ogv":  true,
	}

	// Supported audio extensions
	supportedAudioExts = map[string]bool{
		".mp3":  true,
		".aac":  true,
		".m4a":  true,
		".flac": true,
		".wav":  true,
		".ogg":  true,
		".aiff": true,
		".wma":  true,
		".opus": true,
		".oga":  true,
	}

	// MIME type to asset type mapping
	mimeTypeToAssetType = map[string]AssetType{
		// Images
		"image/jpeg":        AssetTypePhoto,
		"image/jpg":         AssetTypePhoto,
		"image/png":         AssetTypePhoto,
		"image/webp":        AssetTypePhoto,
		"image/gif":         AssetTypePhoto,
		"image/bmp":         AssetTypePhoto,
		"image/tiff":        AssetTypePhoto,
		"image/heic":        AssetTypePhoto,
		"image/heif":        AssetTypePhoto,
		"image/x-canon-cr2": AssetTypePhoto,
		"image/x-canon-cr3": AssetTypePhoto,
		"image/x-nikon-nef": AssetTypePhoto,
		"image/x-sony-arw":  AssetTypePhoto,
		"image/x-adobe-dng": AssetTypePhoto,

		// Videos
		"video/mp4":        AssetTypeVideo,
		"video/quicktime":  AssetTypeVideo,
		"video/x-msvideo":  AssetTypeVideo,
		"video/x-matroska": AssetTypeVideo,
		"video/webm":       AssetTypeVideo,
		"video/x-flv":      AssetTypeVideo,
		"video/x-ms-wmv":   AssetTypeVideo,
		"video/mpeg":       AssetTypeVideo,
		"video/3gpp":       AssetTypeVideo,
		"video/ogg":        AssetTypeVideo,

		// Audio
		"audio/mpeg":     AssetTypeAudio,
		"audio/mp3":      AssetTypeAudio,
		"audio/aac":      AssetTypeAudio,
		"audio/mp4":      AssetTypeAudio,
		"audio/x-m4a":    AssetTypeAudio,
		"audio/flac":     AssetTypeAudio,
		"audio/wav":      AssetTypeAudio,
		"audio/x-wav":    AssetTypeAudio,
		"audio/ogg":      AssetTypeAudio,
		"audio/x-aiff":   AssetTypeAudio,
		"audio/x-ms-wma": AssetTypeAudio,
		"audio/opus":     AssetTypeAudio,
	}
)

// Validator handles file validation logic
type Validator struct{}

// NewValidator creates a new file validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationResult contains the result of file validation
type ValidationResult struct {
	Valid       bool
	AssetType   AssetType
	Extension   string
	MimeType    string
	IsRAW       bool
	ErrorReason string
}

// ValidateFile validates a file based on filename and content type
func (v *Validator) ValidateFile(filename, contentType string) *ValidationResult {
	result := &ValidationResult{
		Extension: strings.ToLower(filepath.Ext(filename)),
		MimeType:  strings.ToLower(strings.TrimSpace(contentType)),
	}

	// Check if extension is empty
	if result.Extension == "" {
		result.Valid = false
		result.ErrorReason = "file has no extension"
		return result
	}

	// Determine asset type by extension first (more reliable)
	assetType, isSupported := v.GetAssetTypeByExtension(result.Extension)
	if !isSupported {
		result.Valid = false
		result.ErrorReason = fmt.Sprintf("unsupported file extension: %s", result.Extension)
		return result
	}

	result.AssetType = assetType
	result.IsRAW = supportedRAWExts[result.Extension]

	// Validate MIME type if provided
	if result.MimeType != "" {
		if !v.IsValidMimeType(result.MimeType, assetType) {
			result.Valid = false
			result.ErrorReason = fmt.Sprintf("MIME type '%s' does not match file extension '%s'", result.MimeType, result.Extension)
			return result
		}
	}

	result.Valid = true
	return result
}

// IsSupported checks if a file extension is supported
func (v *Validator) IsSupported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedPhotoExts[ext] ||
		supportedRAWExts[ext] ||
		supportedVideoExts[ext] ||
		supportedAudioExts[ext]
}

// IsSupportedExtension checks if an extension is supported
func (v *Validator) IsSupportedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return supportedPhotoExts[ext] ||
		supportedRAWExts[ext] ||
		supportedVideoExts[ext] ||
		supportedAudioExts[ext]
}

// GetAssetTypeByExtension determines asset type from file extension
func (v *Validator) GetAssetTypeByExtension(ext string) (AssetType, bool) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	if supportedPhotoExts[ext] || supportedRAWExts[ext] {
		return AssetTypePhoto, true
	}
	if supportedVideoExts[ext] {
		return AssetTypeVideo, true
	}
	if supportedAudioExts[ext] {
		return AssetTypeAudio, true
	}

	return "", false
}

// GetAssetTypeByMimeType determines asset type from MIME type
func (v *Validator) GetAssetTypeByMimeType(mimeType string) (AssetType, bool) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))

	// Try exact match first
	if assetType, exists := mimeTypeToAssetType[mimeType]; exists {
		return assetType, true
	}

	// Fallback to prefix matching
	if strings.HasPrefix(mimeType, "image/") {
		return AssetTypePhoto, true
	}
	if strings.HasPrefix(mimeType, "video/") {
		return AssetTypeVideo, true
	}
	if strings.HasPrefix(mimeType, "audio/") {
		return AssetTypeAudio, true
	}

	return "", false
}

// DetermineAssetType determines asset type from both filename and content type
// This is the main function that should be used throughout the application
func (v *Validator) DetermineAssetType(filename, contentType string) AssetType {
	// Prefer extension-based detection (more reliable)
	if filename != "" {
		if assetType, ok := v.GetAssetTypeByExtension(filepath.Ext(filename)); ok {
			return assetType
		}
	}

	// Fallback to MIME type
	if contentType != "" {
		if assetType, ok := v.GetAssetTypeByMimeType(contentType); ok {
			return assetType
		}
	}

	// Default fallback to photo
	return AssetTypePhoto
}

// IsValidMimeType checks if a MIME type is valid for the given asset type
func (v *Validator) IsValidMimeType(mimeType string, assetType AssetType) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))

	// Check exact match
	if mappedType, exists := mimeTypeToAssetType[mimeType]; exists {
		return mappedType == assetType
	}

	// Check prefix match
	switch assetType {
	case AssetTypePhoto:
		return strings.HasPrefix(mimeType, "image/")
	case AssetTypeVideo:
		return strings.HasPrefix(mimeType, "video/")
	case AssetTypeAudio:
		return strings.HasPrefix(mimeType, "audio/")
	}

	return false
}

// IsRAWFile checks if a file is a RAW camera format
func (v *Validator) IsRAWFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedRAWExts[ext]
}

// IsRAWFile reports whether filename's extension marks a RAW camera format.
func IsRAWFile(filename string) bool {
	return supportedRAWExts[strings.ToLower(filepath.Ext(filename))]
}

// GetMimeTypeFromExtension returns the MIME type for a given extension
func (v *Validator) GetMimeTypeFromExtension(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	// Use Go's mime package first
	mimeType := mime.TypeByExtension(ext)
	if mimeType != "" {
		return mimeType
	}

	// Fallback to common mappings
	switch ext {
	// RAW formats
	case ".cr2":
		return "image/x-canon-cr2"
	case ".cr3":
		return "image/x-canon-cr3"
	case ".nef":
		return "image/x-nikon-nef"
	case ".arw":
		return "image/x-sony-arw"
	case ".dng":
		return "image/x-adobe-dng"
	case ".orf":
		return "image/x-olympus-orf"
	case ".rw2":
		return "image/x-panasonic-rw2"
	case ".raf":
		return "image/x-fuji-raf"
	// Audio
	case ".m4a":
		return "audio/mp4"
	case ".opus":
		return "audio/opus"
	// Video
	case ".m4v":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	}

	return "application/octet-stream"
}

// GetSupportedFormats returns all supported formats organized by type
func (v *Validator) GetSupportedFormats() SupportedFormats {
	return SupportedFormats{
		Photos: copyMap(supportedPhotoExts),
		Videos: copyMap(supportedVideoExts),
		Audios: copyMap(supportedAudioExts),
		RAW:    copyMap(supportedRAWExts),
	}
}

// GetSupportedExtensions returns a flat list of all supported extensions
func (v *Validator) GetSupportedExtensions() []string {
	var extensions []string

	for ext := range supportedPhotoExts {
		extensions = append(extensions, ext)
	}
	for ext := range supportedRAWExts {
		extensions = append(extensions, ext)
	}
	for ext := range supportedVideoExts {
		extensions = append(extensions, ext)
	}
	for ext := range supportedAudioExts {
		extensions = append(extensions, ext)
	}

	return extensions
}

// GetSupportedExtensionsByType returns supported extensions for a specific asset type
func (v *Validator) GetSupportedExtensionsByType(assetType AssetType) []string {
	var extensions []string

	switch assetType {
	case AssetTypePhoto:
		for ext := range supportedPhotoExts {
			extensions = append(extensions, ext)
		}
		for ext := range supportedRAWExts {
			extensions = append(extensions, ext)
		}
	case AssetTypeVideo:
		for ext := range supportedVideoExts {
			extensions = append(extensions, ext)
		}
	case AssetTypeAudio:
		for ext := range supportedAudioExts {
			extensions = append(extensions, ext)
		}
	}

	return extensions
}

// Helper function to copy a map
func copyMap(m map[string]bool) map[string]bool {
	result := make(map[string]bool, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

// FormatValidationError creates a user-friendly validation error message
func (v *Validator) FormatValidationError(result *ValidationResult) string {
	if result.Valid {
		return ""
	}

	if result.ErrorReason != "" {
		return result.ErrorReason
	}

	return "file validation failed for unknown reason"
}
