package runner

import "context"

// MpdGenerator wraps mpd_generator: consumes a list of media-info keys and
// writes the DASH manifest (spec.md §6).
type MpdGenerator struct {
	Path string
}

func NewMpdGenerator(path string) *MpdGenerator { return &MpdGenerator{Path: path} }

// Generate writes a manifest at outPath from the given media-info files
// (new representations plus any pre-existing ones being re-referenced).
func (g *MpdGenerator) Generate(ctx context.Context, mediaInfoPaths []string, outPath string) error {
	args := append([]string{}, mediaInfoPaths...)
	args = append(args, "--output", outPath)
	_, err := runCommand(ctx, g.Path, args...)
	return err
}
