package runner

import (
	"context"
	"encoding/json"
	"strconv"

	"catalogd/internal/catalogerr"
)

// ProbeResult is the subset of ffprobe's stream JSON the core consults
// (spec.md §6: "the core parses width/height/codec_name/bit_rate/side_data
// rotation; the raw bytes are stored on the Asset row").
type ProbeResult struct {
	Width, Height  int
	VideoCodecName string
	AudioCodecName string // "" if no audio stream
	BitRate        int
	RotationDeg    int
	Raw            []byte // full ffprobe JSON, persisted verbatim on the Asset row
}

type FFprobe struct {
	Path string
}

func NewFFprobe(path string) *FFprobe { return &FFprobe{Path: path} }

// Probe runs ffprobe once against path and parses the fields the core needs.
func (f *FFprobe) Probe(ctx context.Context, path string) (ProbeResult, error) {
	raw, err := runCommand(ctx, f.Path,
		"-v", "quiet", "-print_format", "json",
		"-show_format", "-show_streams", path)
	if err != nil {
		return ProbeResult{}, err
	}

	var doc struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			CodecName string `json:"codec_name"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
			BitRate   string `json:"bit_rate"`
			SideData  []struct {
				Rotation int `json:"rotation"`
			} `json:"side_data_list"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ProbeResult{}, &catalogerr.DecodeError{Source: "ffprobe json", Err: err}
	}

	res := ProbeResult{Raw: raw}
	for _, s := range doc.Streams {
		switch s.CodecType {
		case "video":
			res.Width, res.Height = s.Width, s.Height
			res.VideoCodecName = s.CodecName
			if s.BitRate != "" {
				if br, err := strconv.Atoi(s.BitRate); err == nil {
					res.BitRate = br
				}
			}
			for _, sd := range s.SideData {
				if sd.Rotation != 0 {
					res.RotationDeg = normalizeRotation(sd.Rotation)
				}
			}
		case "audio":
			if res.AudioCodecName == "" {
				res.AudioCodecName = s.CodecName
			}
		}
	}
	return res, nil
}

func normalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}
